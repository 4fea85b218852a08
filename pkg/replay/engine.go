// Package replay walks a game ply by ply against an oracle and collects the tactics a
// classifier finds along the way.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethpandaops/tactix/pkg/observability"
	"github.com/ethpandaops/tactix/pkg/oracle"
	"github.com/ethpandaops/tactix/pkg/pgn"
	"github.com/ethpandaops/tactix/pkg/tactics"
	"github.com/sirupsen/logrus"
)

// Output holds the tactics found in one game. Tactics and Variations are index-aligned.
type Output struct {
	Tactics    []*tactics.Tactic
	Variations []tactics.Variations
	// Visited is the size of the visited-position set when the replay finished
	Visited int
}

// Engine replays games. It holds no per-game state and is safe for concurrent use as long
// as each call gets its own oracle.
type Engine struct {
	log        logrus.FieldLogger
	classifier tactics.Classifier
}

// NewEngine creates a replay engine around a classifier
func NewEngine(log logrus.FieldLogger, classifier tactics.Classifier) *Engine {
	return &Engine{
		log:        log.WithField("component", "replay"),
		classifier: classifier,
	}
}

// Replay drives o through every move of game. Any oracle or classifier error aborts the
// game and discards whatever was found so far.
func (e *Engine) Replay(ctx context.Context, o oracle.Oracle, game *pgn.Game) (*Output, error) {
	start := game.InitialFEN()

	if err := o.SetPosition(start); err != nil {
		return nil, fmt.Errorf("failed to set start position: %w", err)
	}

	eval, err := o.Evaluation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate start position: %w", err)
	}

	visited := tactics.NewVisitedSet()
	out := &Output{}

	// The side that moved into the start position
	previous := tactics.Black
	if sideToMove(start) == tactics.Black {
		previous = tactics.White
	}

	for ply, move := range game.Moves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		root := tactics.Position{
			Move:       move,
			Color:      previous,
			Evaluation: eval,
			FEN:        o.FEN(),
		}
		mover := previous.Other()

		if err := o.ApplyMove(move); err != nil {
			return nil, plyError(ply, move, err)
		}

		if eval, err = o.Evaluation(ctx); err != nil {
			return nil, plyError(ply, move, err)
		}

		after := o.FEN()

		e.log.WithFields(logrus.Fields{
			"ply":  ply,
			"move": display(game, ply),
			"eval": eval.String(),
		}).Debug("Applied move")

		result, err := e.classifier.Classify(ctx, &tactics.Request{
			Oracle:  o,
			Mover:   mover.Other(),
			Root:    root,
			Visited: visited,
			Headers: game.Headers,
		})

		visited.Union(result.Visited)

		if err != nil {
			return nil, plyError(ply, move, err)
		}

		if o.FEN() != after {
			if err := o.SetPosition(after); err != nil {
				return nil, plyError(ply, move, err)
			}
		}

		observability.RecordPly()

		if result.Found() {
			observability.RecordTactic()

			out.Tactics = append(out.Tactics, result.Tactic)
			out.Variations = append(out.Variations, result.Variations)
		}

		previous = mover
	}

	out.Visited = visited.Len()

	return out, nil
}

func plyError(ply int, move string, err error) error {
	return fmt.Errorf("ply %d (%s): %w", ply, move, err)
}

func display(game *pgn.Game, ply int) string {
	if ply < len(game.SAN) {
		return game.SAN[ply]
	}

	return game.Moves[ply]
}

func sideToMove(fen string) tactics.Color {
	fields := strings.Fields(fen)
	if len(fields) > 1 && fields[1] == "b" {
		return tactics.Black
	}

	return tactics.White
}

// IsFatal reports whether err means the oracle itself is gone, so no further game of the
// job can be replayed
func IsFatal(err error) bool {
	return errors.Is(err, oracle.ErrOracleUnavailable)
}
