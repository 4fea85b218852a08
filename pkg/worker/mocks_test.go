package worker

import (
	"context"
	"sync"

	"github.com/ethpandaops/tactix/pkg/delivery"
	"github.com/ethpandaops/tactix/pkg/jobs"
	"github.com/ethpandaops/tactix/pkg/tactics"
)

// recordingDeliverer records every request and fails those DeliverFunc rejects
type recordingDeliverer struct {
	mu          sync.Mutex
	requests    []delivery.Request
	DeliverFunc func(ctx context.Context, req *delivery.Request) error
}

func (d *recordingDeliverer) Deliver(ctx context.Context, req *delivery.Request) error {
	d.mu.Lock()
	d.requests = append(d.requests, *req)
	fn := d.DeliverFunc
	d.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	return nil
}

func (d *recordingDeliverer) Requests() []delivery.Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]delivery.Request(nil), d.requests...)
}

func (d *recordingDeliverer) LastFlags() []bool {
	flags := []bool{}
	for _, req := range d.Requests() {
		flags = append(flags, req.LastPuzzle)
	}

	return flags
}

// moveClassifier finds a tactic whenever the root move is listed, and fails on FailOn
type moveClassifier struct {
	Moves  map[string]bool
	FailOn string
}

func (c *moveClassifier) Classify(_ context.Context, req *tactics.Request) (tactics.Result, error) {
	result := tactics.Result{Visited: []string{req.Root.FEN}}

	if req.Root.Move == c.FailOn {
		return result, errClassifier
	}

	if !c.Moves[req.Root.Move] {
		return result, nil
	}

	result.Tactic = &tactics.Tactic{
		FEN: req.Root.FEN,
		Positions: []tactics.Position{
			req.Root,
			{Move: "reply", Color: req.Mover.Other(), FEN: req.Root.FEN + "/" + req.Root.Move},
		},
		Solver:  req.Mover,
		Headers: req.Headers,
	}
	result.Variations = tactics.Variations{{FEN: req.Root.FEN, Move: "alt"}}

	return result, nil
}

// stubExecutor records the jobs it runs
type stubExecutor struct {
	mu          sync.Mutex
	calls       []jobs.Entry
	threads     []int
	ExecuteFunc func(ctx context.Context, entry *jobs.Entry) error
}

func (e *stubExecutor) Execute(ctx context.Context, entry *jobs.Entry, threads int) error {
	e.mu.Lock()
	e.calls = append(e.calls, *entry)
	e.threads = append(e.threads, threads)
	fn := e.ExecuteFunc
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, entry)
	}

	return nil
}

func (e *stubExecutor) Calls() []jobs.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]jobs.Entry(nil), e.calls...)
}

func (e *stubExecutor) Threads() []int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]int(nil), e.threads...)
}
