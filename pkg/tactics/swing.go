package tactics

import (
	"context"
	"fmt"

	"github.com/ethpandaops/tactix/pkg/oracle"
	"github.com/samber/lo"
)

// SwingClassifier is the default classifier. A tactic starts where a move hands the
// opponent a large evaluation swing, and continues while the solver's best move is clearly
// better than any alternative. It needs an oracle that also implements oracle.Searcher.
type SwingClassifier struct {
	cfg *Config
}

// NewSwingClassifier creates a swing classifier
func NewSwingClassifier(cfg *Config) *SwingClassifier {
	return &SwingClassifier{cfg: cfg}
}

// Classify walks the forced line following req.Root, if there is one
func (s *SwingClassifier) Classify(ctx context.Context, req *Request) (Result, error) {
	result := Result{Visited: []string{req.Root.FEN}}

	if req.Visited.Contains(req.Root.FEN) {
		return result, nil
	}

	searcher, ok := req.Oracle.(oracle.Searcher)
	if !ok {
		return result, nil
	}

	solver := req.Mover
	white := solver.IsWhite()

	after, err := req.Oracle.Evaluation(ctx)
	if err != nil {
		return result, err
	}

	swing := after.For(white) - req.Root.Evaluation.For(white)
	if swing < s.cfg.MinSwing || after.For(white) < s.cfg.MinAdvantage {
		return result, nil
	}

	start := req.Oracle.FEN()
	line, variations, visited, err := s.follow(ctx, req, searcher, after)
	result.Visited = append(result.Visited, visited...)

	if restoreErr := req.Oracle.SetPosition(start); restoreErr != nil && err == nil {
		err = fmt.Errorf("failed to restore oracle position: %w", restoreErr)
	}

	if err != nil {
		return result, err
	}

	solverMoves := lo.CountBy(line[1:], func(p Position) bool { return p.Color != solver })
	if solverMoves == 0 || len(variations) == 0 {
		return result, nil
	}

	result.Variations = variations
	result.Tactic = &Tactic{
		FEN:       req.Root.FEN,
		Positions: line,
		Solver:    solver,
		Headers:   req.Headers,
	}

	return result, nil
}

// follow plays the best line from the oracle's current position. It stops when the solver
// has no clearly best move, when the line reaches explored territory, or at MaxPlies.
// The returned line ends with a solver move unless KeepLastReply is set.
func (s *SwingClassifier) follow(ctx context.Context, req *Request, searcher oracle.Searcher, eval oracle.Evaluation) ([]Position, Variations, []string, error) {
	solver := req.Mover
	line := []Position{req.Root}
	variations := Variations{}
	visited := []string{}
	toMove := solver

	for ply := 0; ply < s.cfg.MaxPlies; ply++ {
		fen := req.Oracle.FEN()
		if ply > 0 && req.Visited.Contains(fen) {
			break
		}
		visited = append(visited, fen)

		want := 1
		if toMove == solver {
			want = 2
		}

		candidates, err := searcher.TopMoves(ctx, want)
		if err != nil {
			return nil, nil, visited, err
		}

		if len(candidates) == 0 {
			break
		}

		best := candidates[0]

		if toMove == solver && len(candidates) > 1 {
			runnerUp := candidates[1]
			margin := best.Evaluation.For(solver.IsWhite()) - runnerUp.Evaluation.For(solver.IsWhite())

			if margin < s.cfg.UniquenessMargin && !best.Evaluation.IsMate() {
				break
			}

			variations = append(variations, Variation{FEN: fen, Move: runnerUp.Move, Evaluation: runnerUp.Evaluation})
		}

		line = append(line, Position{Move: best.Move, Color: toMove.Other(), Evaluation: eval, FEN: fen})

		if err := req.Oracle.ApplyMove(best.Move); err != nil {
			return nil, nil, visited, err
		}

		eval = best.Evaluation
		toMove = toMove.Other()
	}

	// Unless configured otherwise, a solution never ends on the defender's reply
	for !s.cfg.KeepLastReply && len(line) > 1 && line[len(line)-1].Color == solver {
		line = line[:len(line)-1]
	}

	return line, variations, visited, nil
}

// Ensure SwingClassifier implements the interface
var _ Classifier = (*SwingClassifier)(nil)
