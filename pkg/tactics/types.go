// Package tactics defines the tactic-classification boundary used by the replay engine:
// the position and tactic data model, the visited-position set, and the Classifier interface.
package tactics

import (
	"context"
	"strings"

	"github.com/ethpandaops/tactix/pkg/oracle"
)

// Color is a side of the board
type Color int8

const (
	// White moves first
	White Color = iota
	// Black moves second
	Black
)

// Other returns the opposing side
func (c Color) Other() Color {
	if c == White {
		return Black
	}

	return White
}

// IsWhite reports whether c is White
func (c Color) IsWhite() bool {
	return c == White
}

// String returns "white" or "black"
func (c Color) String() string {
	if c == White {
		return "white"
	}

	return "black"
}

// Position is the state of the board immediately before Move is played.
// Color is the side that moved into this position, which is the side that replies to Move.
// Positions are values and never mutated after creation.
type Position struct {
	Move       string            `json:"move"`
	Color      Color             `json:"color"`
	Evaluation oracle.Evaluation `json:"evaluation"`
	FEN        string            `json:"fen"`
}

// Tactic is a forced line discovered by a classifier. Positions[0] is the root: the move
// that allowed the tactic. The remaining positions are the solution and the replies to it.
type Tactic struct {
	FEN       string            `json:"fen"`
	Positions []Position        `json:"positions"`
	Solver    Color             `json:"solver"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// Variation is an inferior alternative the classifier rejected at one point of the line
type Variation struct {
	FEN        string            `json:"fen"`
	Move       string            `json:"move"`
	Evaluation oracle.Evaluation `json:"evaluation"`
}

// Variations are the side-lines explored while validating a Tactic
type Variations []Variation

// Request is one classifier invocation, rooted at the position before Root.Move.
// The oracle is positioned after Root.Move when the classifier is called.
type Request struct {
	Oracle  oracle.Oracle
	Mover   Color
	Root    Position
	Visited *VisitedSet
	Headers map[string]string
}

// Result is what a classifier found. Tactic is nil and Variations empty when nothing was found.
// Visited lists every position the classifier examined during this call.
type Result struct {
	Variations Variations
	Tactic     *Tactic
	Visited    []string
}

// Found reports whether the result carries a tactic worth keeping
func (r *Result) Found() bool {
	return r.Tactic != nil && len(r.Variations) > 0
}

// Classifier decides whether a tactic starts at a position.
// Implementations must not derive a tactic rooted at a position already in Request.Visited,
// and must leave the oracle where they found it.
type Classifier interface {
	Classify(ctx context.Context, req *Request) (Result, error)
}

// PositionKey reduces a FEN to piece placement, side to move, castling rights and en passant
// square, so the same position reached by different move orders maps to one key.
func PositionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}

	return strings.Join(fields, " ")
}
