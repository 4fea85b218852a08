// Package oracletest provides a scripted oracle for tests.
//
// The fake does not know chess. Its board is a path: SetPosition replaces it and
// ApplyMove appends "/"+move, so scripts key evaluations and candidate lines by
// strings such as "start/e2e4/e7e5".
package oracletest

import (
	"context"
	"sync"

	"github.com/ethpandaops/tactix/pkg/oracle"
)

// StartFEN is the board of a fresh fake
const StartFEN = "start"

// Fake is a scripted oracle.Oracle and oracle.Searcher
type Fake struct {
	mu sync.Mutex

	// Evals maps a board to its evaluation; unknown boards evaluate to 0
	Evals map[string]oracle.Evaluation
	// Lines maps a board to its ranked candidate moves
	Lines map[string][]oracle.Line
	// EvalErrs makes Evaluation fail on a board
	EvalErrs map[string]error

	Threads int

	fen          string
	applied      []string
	setPositions []string
	closed       bool
}

// New creates a fake at StartFEN
func New() *Fake {
	return &Fake{
		Evals:    make(map[string]oracle.Evaluation),
		Lines:    make(map[string][]oracle.Line),
		EvalErrs: make(map[string]error),
		fen:      StartFEN,
	}
}

// SetPosition replaces the board
func (f *Fake) SetPosition(fen string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fen = fen
	f.setPositions = append(f.setPositions, fen)

	return nil
}

// ApplyMove appends the move to the board path
func (f *Fake) ApplyMove(move string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fen = f.fen + "/" + move
	f.applied = append(f.applied, move)

	return nil
}

// Evaluation returns the scripted evaluation of the board
func (f *Fake) Evaluation(ctx context.Context) (oracle.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return oracle.Evaluation{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.EvalErrs[f.fen]; ok {
		return oracle.Evaluation{}, err
	}

	if eval, ok := f.Evals[f.fen]; ok {
		return eval, nil
	}

	return oracle.Centipawns(0), nil
}

// TopMoves returns up to n scripted candidates for the board
func (f *Fake) TopMoves(_ context.Context, n int) ([]oracle.Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := f.Lines[f.fen]
	if len(lines) > n {
		lines = lines[:n]
	}

	return lines, nil
}

// FEN returns the board path
func (f *Fake) FEN() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fen
}

// Close marks the fake closed
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// Applied returns every move applied so far
func (f *Fake) Applied() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.applied...)
}

// SetPositions returns every board passed to SetPosition
func (f *Fake) SetPositions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.setPositions...)
}

// Closed reports whether Close was called
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// Factory hands out oracles and records the thread count each was created with
type Factory struct {
	mu sync.Mutex

	// New builds each oracle; defaults to oracletest.New
	New func() *Fake
	// Err makes every creation fail
	Err error

	created []*Fake
}

// Create implements oracle.Factory
func (f *Factory) Create(threads int) (oracle.Oracle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}

	build := f.New
	if build == nil {
		build = New
	}

	fake := build()
	fake.Threads = threads
	f.created = append(f.created, fake)

	return fake, nil
}

// Created returns every oracle handed out so far
func (f *Factory) Created() []*Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*Fake(nil), f.created...)
}

// Ensure Fake implements the interfaces
var (
	_ oracle.Oracle   = (*Fake)(nil)
	_ oracle.Searcher = (*Fake)(nil)
	_ oracle.Factory  = (*Factory)(nil).Create
)
