package worker

import (
	"context"
	"sync"
)

// Task is one unit of work run by a pool worker
type Task func()

// Pool is a resizable set of goroutines. Idle workers offer themselves to Submit, which
// hands the task over only if the worker has not been retired in the meantime.
// Shrinking retires workers: an idle worker exits at once, a busy one exits after its
// current task. Running tasks are never interrupted by a resize.
type Pool struct {
	idle chan *poolWorker

	mu      sync.Mutex
	workers []*poolWorker
	wg      sync.WaitGroup
}

type poolWorker struct {
	inbox chan Task
	stop  chan struct{}
}

func (w *poolWorker) retired() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// NewPool creates a pool with no workers
func NewPool() *Pool {
	return &Pool{idle: make(chan *poolWorker)}
}

// Size returns the number of workers accepting new tasks
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.workers)
}

// Resize sets the number of workers accepting new tasks
func (p *Pool) Resize(n int) {
	if n < 0 {
		n = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.workers) < n {
		w := &poolWorker{inbox: make(chan Task, 1), stop: make(chan struct{})}
		p.workers = append(p.workers, w)

		p.wg.Add(1)

		go p.run(w)
	}

	for len(p.workers) > n {
		last := len(p.workers) - 1
		close(p.workers[last].stop)
		p.workers = p.workers[:last]
	}
}

// Submit hands task to an idle worker, blocking until one accepts it or ctx is done
func (p *Pool) Submit(ctx context.Context, task Task) error {
	for {
		select {
		case w := <-p.idle:
			if p.assign(w, task) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// assign gives task to w unless w was retired. Resize closes stop under the same lock,
// so a retired worker never starts a new task.
func (p *Pool) assign(w *poolWorker, task Task) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w.retired() {
		close(w.inbox)

		return false
	}

	w.inbox <- task

	return true
}

// Stop retires every worker and waits for running tasks to finish, or for ctx
func (p *Pool) Stop(ctx context.Context) error {
	p.Resize(0)

	finished := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(w *poolWorker) {
	defer p.wg.Done()

	for {
		select {
		case <-w.stop:
			return
		case p.idle <- w:
		}

		// Submit either assigns a task or closes the inbox of a retired worker
		task, ok := <-w.inbox
		if !ok {
			return
		}

		task()
	}
}
