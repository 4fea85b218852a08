// Package oracle defines the position-evaluation capability the replay engine drives,
// and an adapter for UCI engines such as Stockfish.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrOracleUnavailable is returned when the evaluator cannot be started at all.
	// It is fatal for the job being processed.
	ErrOracleUnavailable = errors.New("evaluation oracle unavailable")
	// ErrIllegalMove is returned when a move cannot be applied to the current position
	ErrIllegalMove = errors.New("illegal move")
	// ErrInvalidPosition is returned when a FEN cannot be parsed
	ErrInvalidPosition = errors.New("invalid position")
)

// MateScore is the centipawn magnitude used to order mate scores above any material score
const MateScore = 100000

// Oracle is a stateful evaluator. Every instance belongs to a single worker for the
// duration of a job and is never shared.
type Oracle interface {
	// SetPosition resets the internal board to fen
	SetPosition(fen string) error
	// ApplyMove plays a UCI move on the internal board
	ApplyMove(move string) error
	// Evaluation evaluates the internal board, from White's point of view
	Evaluation(ctx context.Context) (Evaluation, error)
	// FEN returns the internal board
	FEN() string
	// Close releases the evaluator
	Close() error
}

// Line is one candidate move with the evaluation after it
type Line struct {
	Move       string
	Evaluation Evaluation
}

// Searcher is an optional capability for oracles that can rank candidate moves.
// Classifiers type-assert for it; the replay engine never needs it.
type Searcher interface {
	// TopMoves returns up to n best moves for the side to move, best first
	TopMoves(ctx context.Context, n int) ([]Line, error)
}

// Factory creates an oracle running with the given internal parallelism
type Factory func(threads int) (Oracle, error)

// Type distinguishes centipawn scores from forced mates
type Type string

const (
	// TypeCentipawns is a material/positional score
	TypeCentipawns Type = "cp"
	// TypeMate is a forced mate in Value moves
	TypeMate Type = "mate"
)

// Evaluation is a score from White's point of view. For TypeMate a positive Value means
// White mates in Value moves, negative means Black does.
type Evaluation struct {
	Type  Type `json:"type"`
	Value int  `json:"value"`
}

// Centipawns creates a centipawn evaluation
func Centipawns(cp int) Evaluation {
	return Evaluation{Type: TypeCentipawns, Value: cp}
}

// Mate creates a mate-in-n evaluation
func Mate(n int) Evaluation {
	return Evaluation{Type: TypeMate, Value: n}
}

// IsMate reports whether the evaluation is a forced mate
func (e Evaluation) IsMate() bool {
	return e.Type == TypeMate
}

// Score collapses the evaluation into one comparable number. Shorter mates score higher.
func (e Evaluation) Score() int {
	if !e.IsMate() {
		return e.Value
	}

	switch {
	case e.Value > 0:
		return MateScore - e.Value
	case e.Value < 0:
		return -MateScore - e.Value
	default:
		return 0
	}
}

// For returns the score from the point of view of one side
func (e Evaluation) For(white bool) int {
	if white {
		return e.Score()
	}

	return -e.Score()
}

// String renders the evaluation the way analysis boards do: "+0.35", "-1.20", "#3", "#-2"
func (e Evaluation) String() string {
	if e.IsMate() {
		return "#" + strconv.Itoa(e.Value)
	}

	return fmt.Sprintf("%+.2f", float64(e.Value)/100)
}
