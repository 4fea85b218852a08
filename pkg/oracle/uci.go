package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"maps"
	"os/exec"
	"slices"
	"strconv"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
)

// UCIOracle drives an external UCI engine process. The board is tracked locally and sent
// to the engine with every search, so the engine itself holds no game state between calls.
type UCIOracle struct {
	engine *uci.Engine
	depth  int
	pos    *chess.Position
}

// NewUCIFactory returns a Factory starting one engine process per oracle
func NewUCIFactory(cfg *Config) Factory {
	return func(threads int) (Oracle, error) {
		return NewUCIOracle(cfg, threads)
	}
}

// NewUCIOracle starts the engine at cfg.Path with the given thread count
func NewUCIOracle(cfg *Config, threads int) (*UCIOracle, error) {
	engine, err := uci.New(cfg.Path, uci.Logger(log.New(io.Discard, "", 0)))
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %w", ErrOracleUnavailable, cfg.Path, err)
		}

		return nil, fmt.Errorf("failed to start engine %s: %w", cfg.Path, err)
	}

	if threads < 1 {
		threads = 1
	}

	cmds := []uci.Cmd{
		uci.CmdUCI,
		uci.CmdSetOption{Name: "Threads", Value: strconv.Itoa(threads)},
	}

	if cfg.HashMB > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Hash", Value: strconv.Itoa(cfg.HashMB)})
	}

	for _, name := range slices.Sorted(maps.Keys(cfg.Parameters)) {
		cmds = append(cmds, uci.CmdSetOption{Name: name, Value: cfg.Parameters[name]})
	}

	cmds = append(cmds, uci.CmdIsReady, uci.CmdUCINewGame)

	if err := engine.Run(cmds...); err != nil {
		_ = engine.Close()

		return nil, fmt.Errorf("%w: handshake with %s failed: %w", ErrOracleUnavailable, cfg.Path, err)
	}

	return &UCIOracle{
		engine: engine,
		depth:  cfg.Depth,
		pos:    chess.StartingPosition(),
	}, nil
}

// SetPosition resets the board to fen
func (o *UCIOracle) SetPosition(fen string) error {
	opt, err := chess.FEN(fen)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidPosition, fen, err)
	}

	o.pos = chess.NewGame(opt).Position()

	return nil
}

// ApplyMove plays a UCI move
func (o *UCIOracle) ApplyMove(move string) error {
	m, err := findMove(o.pos, move)
	if err != nil {
		return err
	}

	o.pos = o.pos.Update(m)

	return nil
}

// FEN returns the current board
func (o *UCIOracle) FEN() string {
	return o.pos.String()
}

// Evaluation searches the current board to the configured depth
func (o *UCIOracle) Evaluation(ctx context.Context) (Evaluation, error) {
	if eval, over := terminalEvaluation(o.pos); over {
		return eval, nil
	}

	results, err := o.search(ctx, nil)
	if err != nil {
		return Evaluation{}, err
	}

	return normalize(o.pos, results.Info.Score), nil
}

// TopMoves ranks the n best moves by repeatedly searching with the best found so far excluded
func (o *UCIOracle) TopMoves(ctx context.Context, n int) ([]Line, error) {
	remaining := o.pos.ValidMoves()
	lines := make([]Line, 0, n)

	for len(lines) < n && len(remaining) > 0 {
		results, err := o.search(ctx, remaining)
		if err != nil {
			return nil, err
		}

		if results.BestMove == nil {
			break
		}

		best := chess.UCINotation{}.Encode(o.pos, results.BestMove)
		lines = append(lines, Line{Move: best, Evaluation: normalize(o.pos, results.Info.Score)})

		remaining = slices.DeleteFunc(remaining, func(m *chess.Move) bool {
			return chess.UCINotation{}.Encode(o.pos, m) == best
		})
	}

	return lines, nil
}

// Close stops the engine process
func (o *UCIOracle) Close() error {
	return o.engine.Close()
}

func (o *UCIOracle) search(ctx context.Context, moves []*chess.Move) (uci.SearchResults, error) {
	if err := ctx.Err(); err != nil {
		return uci.SearchResults{}, err
	}

	cmdGo := uci.CmdGo{Depth: o.depth, SearchMoves: moves}
	if err := o.engine.Run(uci.CmdPosition{Position: o.pos}, cmdGo); err != nil {
		return uci.SearchResults{}, fmt.Errorf("engine search failed: %w", err)
	}

	return o.engine.SearchResults(), nil
}

// normalize converts a side-to-move score into White's point of view
func normalize(pos *chess.Position, score uci.Score) Evaluation {
	sign := 1
	if pos.Turn() == chess.Black {
		sign = -1
	}

	if score.Mate != 0 {
		return Mate(sign * score.Mate)
	}

	return Centipawns(sign * score.CP)
}

// terminalEvaluation scores positions the engine cannot search
func terminalEvaluation(pos *chess.Position) (Evaluation, bool) {
	switch pos.Status() {
	case chess.Checkmate:
		if pos.Turn() == chess.White {
			return Centipawns(-MateScore), true
		}

		return Centipawns(MateScore), true
	case chess.Stalemate:
		return Centipawns(0), true
	default:
		return Evaluation{}, false
	}
}

func findMove(pos *chess.Position, move string) (*chess.Move, error) {
	for _, m := range pos.ValidMoves() {
		if (chess.UCINotation{}).Encode(pos, m) == move {
			return m, nil
		}
	}

	return nil, fmt.Errorf("%w: %s in %s", ErrIllegalMove, move, pos.String())
}

// Ensure UCIOracle implements the interfaces
var (
	_ Oracle   = (*UCIOracle)(nil)
	_ Searcher = (*UCIOracle)(nil)
)
