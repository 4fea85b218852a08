package replay

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethpandaops/tactix/internal/testutil"
	"github.com/ethpandaops/tactix/pkg/oracle"
	"github.com/ethpandaops/tactix/pkg/oracle/oracletest"
	"github.com/ethpandaops/tactix/pkg/pgn"
	"github.com/ethpandaops/tactix/pkg/tactics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	root    tactics.Position
	mover   tactics.Color
	visited int
}

// stubClassifier records every request and answers from a per-ply script
type stubClassifier struct {
	calls  []call
	answer func(ply int, req *tactics.Request) (tactics.Result, error)
}

func (s *stubClassifier) Classify(_ context.Context, req *tactics.Request) (tactics.Result, error) {
	ply := len(s.calls)
	s.calls = append(s.calls, call{root: req.Root, mover: req.Mover, visited: req.Visited.Len()})

	if s.answer == nil {
		return tactics.Result{Visited: []string{req.Root.FEN}}, nil
	}

	return s.answer(ply, req)
}

func threePlyGame() *pgn.Game {
	return &pgn.Game{
		Headers: map[string]string{"White": "alice"},
		Moves:   []string{"e2e4", "e7e5", "g1f3"},
		SAN:     []string{"e4", "e5", "Nf3"},
	}
}

func tacticAt(req *tactics.Request) tactics.Result {
	return tactics.Result{
		Tactic:     &tactics.Tactic{FEN: req.Root.FEN, Positions: []tactics.Position{req.Root}, Solver: req.Mover},
		Variations: tactics.Variations{{FEN: req.Root.FEN, Move: "alt"}},
		Visited:    []string{req.Root.FEN},
	}
}

func TestReplay_PositionRecords(t *testing.T) {
	fake := oracletest.New()
	std := pgn.StandardFEN
	fake.Evals[std] = oracle.Centipawns(20)
	fake.Evals[std+"/e2e4"] = oracle.Centipawns(30)
	fake.Evals[std+"/e2e4/e7e5"] = oracle.Centipawns(25)

	classifier := &stubClassifier{}
	engine := NewEngine(testutil.NewLogger(), classifier)

	out, err := engine.Replay(context.Background(), fake, threePlyGame())
	require.NoError(t, err)
	assert.Empty(t, out.Tactics)
	require.Len(t, classifier.calls, 3)

	first := classifier.calls[0]
	assert.Equal(t, tactics.Position{Move: "e2e4", Color: tactics.Black, Evaluation: oracle.Centipawns(20), FEN: std}, first.root)
	assert.Equal(t, tactics.Black, first.mover)

	second := classifier.calls[1]
	assert.Equal(t, tactics.Position{Move: "e7e5", Color: tactics.White, Evaluation: oracle.Centipawns(30), FEN: std + "/e2e4"}, second.root)
	assert.Equal(t, tactics.White, second.mover)

	third := classifier.calls[2]
	assert.Equal(t, oracle.Centipawns(25), third.root.Evaluation)
	assert.Equal(t, tactics.Black, third.mover)

	assert.Equal(t, []string{"e2e4", "e7e5", "g1f3"}, fake.Applied())
}

func TestReplay_BlackToMoveStart(t *testing.T) {
	fake := oracletest.New()
	classifier := &stubClassifier{}
	game := &pgn.Game{StartFEN: "4k3/8/8/8/8/8/4P3/4K3 b - - 0 1", Moves: []string{"e8d7"}}

	_, err := NewEngine(testutil.NewLogger(), classifier).Replay(context.Background(), fake, game)
	require.NoError(t, err)
	require.Len(t, classifier.calls, 1)

	assert.Equal(t, tactics.White, classifier.calls[0].root.Color)
	assert.Equal(t, tactics.White, classifier.calls[0].mover)
	assert.Equal(t, game.StartFEN, classifier.calls[0].root.FEN)
}

func TestReplay_VisitedSetIsMonotonic(t *testing.T) {
	classifier := &stubClassifier{
		answer: func(ply int, _ *tactics.Request) (tactics.Result, error) {
			// Overlapping visits: each call repeats the previous call's extra position
			return tactics.Result{Visited: []string{
				fmt.Sprintf("root-%d", ply),
				fmt.Sprintf("line-%d", ply),
				fmt.Sprintf("line-%d", ply-1),
			}}, nil
		},
	}

	out, err := NewEngine(testutil.NewLogger(), classifier).Replay(context.Background(), oracletest.New(), threePlyGame())
	require.NoError(t, err)

	sizes := make([]int, 0, len(classifier.calls))
	for _, c := range classifier.calls {
		sizes = append(sizes, c.visited)
	}

	assert.Equal(t, []int{0, 3, 5}, sizes)
	assert.Equal(t, 7, out.Visited)
	assert.IsNonDecreasing(t, sizes)
}

func TestReplay_CollectsFoundTactics(t *testing.T) {
	classifier := &stubClassifier{
		answer: func(ply int, req *tactics.Request) (tactics.Result, error) {
			switch ply {
			case 0:
				return tacticAt(req), nil
			case 1:
				// A tactic without variations is not kept
				result := tacticAt(req)
				result.Variations = nil

				return result, nil
			default:
				return tacticAt(req), nil
			}
		},
	}

	out, err := NewEngine(testutil.NewLogger(), classifier).Replay(context.Background(), oracletest.New(), threePlyGame())
	require.NoError(t, err)

	require.Len(t, out.Tactics, 2)
	require.Len(t, out.Variations, 2)
	assert.Equal(t, "e2e4", out.Tactics[0].Positions[0].Move)
	assert.Equal(t, "g1f3", out.Tactics[1].Positions[0].Move)
}

func TestReplay_ErrorAbortsGame(t *testing.T) {
	boom := errors.New("classifier exploded")
	classifier := &stubClassifier{
		answer: func(ply int, req *tactics.Request) (tactics.Result, error) {
			if ply == 1 {
				return tactics.Result{}, boom
			}

			return tacticAt(req), nil
		},
	}

	out, err := NewEngine(testutil.NewLogger(), classifier).Replay(context.Background(), oracletest.New(), threePlyGame())
	require.ErrorIs(t, err, boom)
	assert.Nil(t, out)
	assert.Len(t, classifier.calls, 2)
	assert.False(t, IsFatal(err))
}

func TestReplay_OracleUnavailableIsFatal(t *testing.T) {
	fake := oracletest.New()
	fake.EvalErrs[pgn.StandardFEN+"/e2e4"] = fmt.Errorf("%w: engine died", oracle.ErrOracleUnavailable)

	_, err := NewEngine(testutil.NewLogger(), &stubClassifier{}).Replay(context.Background(), fake, threePlyGame())
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestReplay_RestoresOracleAfterClassifier(t *testing.T) {
	classifier := &stubClassifier{
		answer: func(_ int, req *tactics.Request) (tactics.Result, error) {
			// Leave the oracle somewhere else
			_ = req.Oracle.ApplyMove("stray")

			return tactics.Result{}, nil
		},
	}

	fake := oracletest.New()
	_, err := NewEngine(testutil.NewLogger(), classifier).Replay(context.Background(), fake, threePlyGame())
	require.NoError(t, err)

	require.Len(t, classifier.calls, 3)
	assert.Equal(t, pgn.StandardFEN+"/e2e4", classifier.calls[1].root.FEN)
	assert.Equal(t, pgn.StandardFEN+"/e2e4/e7e5", classifier.calls[2].root.FEN)
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(testutil.NewLogger(), &stubClassifier{}).Replay(ctx, oracletest.New(), threePlyGame())
	assert.ErrorIs(t, err, context.Canceled)
}
