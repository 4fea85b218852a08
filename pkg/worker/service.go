package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethpandaops/tactix/pkg/jobs"
	"github.com/ethpandaops/tactix/pkg/observability"
	"github.com/ethpandaops/tactix/pkg/queue"
	"github.com/sirupsen/logrus"
)

// Service defines the public interface for the worker service
type Service interface {
	// Start requeues orphaned in-flight jobs, then starts the dispatch loop
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker service
	Stop() error

	// Ready reports whether the dispatch loop is running
	Ready() bool
}

// service supervises the worker pool
type service struct {
	config *Config
	log    logrus.FieldLogger

	// Synchronization - per ethPandaOps standards
	done   chan struct{}  // Signal shutdown
	wg     sync.WaitGroup // Track goroutines
	cancel context.CancelFunc
	ready  atomic.Bool

	broker   queue.Broker
	executor Executor
	policy   Policy
	pool     *Pool

	// active is only touched by the dispatch loop
	active Concurrency
}

// NewService creates a new worker supervisor
func NewService(log logrus.FieldLogger, cfg *Config, broker queue.Broker, executor Executor) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &service{
		log:      log.WithField("service", "worker"),
		config:   cfg,
		done:     make(chan struct{}),
		broker:   broker,
		executor: executor,
		policy:   cfg.EffectivePolicy(),
		pool:     NewPool(),
	}, nil
}

// Start runs crash recovery to completion, then dispatches in the background
func (s *service) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	moved, err := s.requeueOrphans(ctx)
	if err != nil {
		s.cancel()

		return fmt.Errorf("failed to requeue orphaned jobs: %w", err)
	}

	s.log.WithField("requeued", moved).Info("Recovered in-flight jobs")

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.dispatchLoop(ctx)
	}()

	s.ready.Store(true)

	s.log.Info("Worker service started successfully")

	return nil
}

// Stop gracefully shuts down the worker service
func (s *service) Stop() error {
	// Signal all goroutines to stop
	close(s.done)

	if s.cancel != nil {
		s.cancel()
	}

	s.ready.Store(false)

	// Wait for all goroutines to complete
	s.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.pool.Stop(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkerShutdownTimeout, err)
	}

	s.log.Info("Worker service stopped successfully")

	return nil
}

// Ready reports whether the dispatch loop is running
func (s *service) Ready() bool {
	return s.ready.Load()
}

// requeueOrphans moves every entry left in flight by a previous process back to pending.
// It must finish before the first claim, or a fresh claim could be requeued as an orphan.
func (s *service) requeueOrphans(ctx context.Context) (int, error) {
	return retry.DoWithData(
		func() (int, error) {
			return s.broker.RequeueOrphans(ctx)
		},
		s.retryOptions(ctx, "requeue")...,
	)
}

func (s *service) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		depth, err := retry.DoWithData(
			func() (int64, error) {
				return s.broker.Depth(ctx)
			},
			s.retryOptions(ctx, "depth")...,
		)
		if err != nil {
			// Only a cancelled context ends the retries
			return
		}

		observability.RecordQueueDepth("pending", depth)
		s.scale(depth)

		raw, err := retry.DoWithData(
			func() (string, error) {
				return s.broker.Claim(ctx, s.config.PollTimeout)
			},
			s.retryOptions(ctx, "claim", queue.ErrEmpty)...,
		)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}

			return
		}

		s.dispatch(ctx, raw)
	}
}

// scale resizes the pool when the policy asks for a different concurrency. Threads are
// captured per job at dispatch, so running jobs keep the oracle they started with.
func (s *service) scale(depth int64) {
	desired := s.policy.Choose(depth)
	if desired == s.active {
		return
	}

	s.log.WithFields(logrus.Fields{
		"depth":        depth,
		"workers":      desired.Workers,
		"threads":      desired.Threads,
		"prev_workers": s.active.Workers,
		"prev_threads": s.active.Threads,
	}).Info("Scaling worker pool")

	s.pool.Resize(desired.Workers)
	s.active = desired

	observability.RecordConcurrency(desired.Workers, desired.Threads)
}

func (s *service) dispatch(ctx context.Context, raw string) {
	entry, err := jobs.Decode(raw)
	if err != nil {
		s.log.WithError(err).WithField("job_id", entry.ID()).Warn("Dropping malformed job")
		observability.RecordMalformedJob()
		s.complete(ctx, entry)

		return
	}

	threads := s.active.Threads
	log := s.log.WithFields(logrus.Fields{
		"job_id":  entry.ID(),
		"set_id":  entry.Job.SetID,
		"user_id": entry.Job.UserID,
		"threads": threads,
	})

	task := func() {
		start := time.Now()

		observability.RecordJobStart()
		log.Info("Processing job")

		err := s.executor.Execute(ctx, entry, threads)
		elapsed := time.Since(start).Seconds()

		switch {
		case err != nil && ctx.Err() != nil:
			// Left in flight; the next startup requeues it
			observability.RecordJobComplete("interrupted", elapsed)
			log.WithError(err).Warn("Job interrupted by shutdown")

			return
		case err != nil:
			observability.RecordJobComplete("failed", elapsed)
			observability.RecordError("worker", "job_failed")
			log.WithError(err).Error("Job failed, not retrying")
		default:
			observability.RecordJobComplete("success", elapsed)
		}

		s.complete(ctx, entry)
	}

	if err := s.pool.Submit(ctx, task); err != nil {
		log.WithError(err).Warn("Shutdown before job was dispatched, leaving it in flight")
	}
}

// complete removes the entry from the in-flight list. It outlives shutdown of the
// dispatch context so a finished job is never reprocessed because of a late stop.
func (s *service) complete(ctx context.Context, entry *jobs.Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.CompleteTimeout)
	defer cancel()

	err := retry.Do(
		func() error {
			return s.broker.Complete(ctx, entry.Raw)
		},
		s.retryOptions(ctx, "complete", queue.ErrNotInFlight)...,
	)

	switch {
	case err == nil:
	case errors.Is(err, queue.ErrNotInFlight):
		s.log.WithField("job_id", entry.ID()).Warn("Job was no longer in flight")
	default:
		observability.RecordError("worker", "complete_failed")
		s.log.WithError(err).WithField("job_id", entry.ID()).Error("Failed to remove job from in-flight queue")
	}
}

// retryOptions retry broker calls forever at a fixed delay, until ctx is done.
// Errors matching final are answers, not outages, and are returned at once.
func (s *service) retryOptions(ctx context.Context, op string, final ...error) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			if ctx.Err() != nil {
				return false
			}

			for _, target := range final {
				if errors.Is(err, target) {
					return false
				}
			}

			return true
		}),
		retry.Attempts(0),
		retry.Delay(s.config.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			observability.RecordError("broker", op)
			s.log.WithError(err).WithFields(logrus.Fields{
				"operation": op,
				"attempt":   n + 1,
			}).Warn("Broker unavailable, retrying")
		}),
	}
}

// Ensure service implements the interface
var _ Service = (*service)(nil)
