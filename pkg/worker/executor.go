// Package worker implements the job supervisor: adaptive pool sizing, crash-safe dispatch
// and the per-job analysis pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/tactix/pkg/delivery"
	"github.com/ethpandaops/tactix/pkg/jobs"
	"github.com/ethpandaops/tactix/pkg/observability"
	"github.com/ethpandaops/tactix/pkg/oracle"
	"github.com/ethpandaops/tactix/pkg/pgn"
	"github.com/ethpandaops/tactix/pkg/puzzle"
	"github.com/ethpandaops/tactix/pkg/replay"
	"github.com/sirupsen/logrus"
)

// Executor runs one job to completion
type Executor interface {
	Execute(ctx context.Context, entry *jobs.Entry, threads int) error
}

// Summary counts what one job produced
type Summary struct {
	Games       int
	FailedGames int
	Puzzles     int
	Delivered   int
}

// JobExecutor parses the job's games, replays each against a dedicated oracle and delivers
// the resulting puzzles in order
type JobExecutor struct {
	log       logrus.FieldLogger
	factory   oracle.Factory
	engine    *replay.Engine
	extractor *puzzle.Extractor
	deliverer delivery.Deliverer
}

// NewJobExecutor creates the job pipeline
func NewJobExecutor(log logrus.FieldLogger, factory oracle.Factory, engine *replay.Engine, extractor *puzzle.Extractor, deliverer delivery.Deliverer) *JobExecutor {
	return &JobExecutor{
		log:       log.WithField("component", "executor"),
		factory:   factory,
		engine:    engine,
		extractor: extractor,
		deliverer: deliverer,
	}
}

// Execute runs the job with an oracle using the given thread count
func (e *JobExecutor) Execute(ctx context.Context, entry *jobs.Entry, threads int) error {
	_, err := e.Run(ctx, entry, threads)

	return err
}

// Run is Execute returning the job summary
func (e *JobExecutor) Run(ctx context.Context, entry *jobs.Entry, threads int) (Summary, error) {
	log := e.log.WithFields(logrus.Fields{
		"job_id":  entry.ID(),
		"set_id":  entry.Job.SetID,
		"user_id": entry.Job.UserID,
	})

	summary := Summary{}

	games, err := pgn.Parse(entry.Job.PGN)
	if err != nil {
		return summary, fmt.Errorf("failed to parse pgn: %w", err)
	}

	summary.Games = len(games)

	o, err := e.factory(threads)
	if err != nil {
		return summary, fmt.Errorf("failed to create oracle: %w", err)
	}

	defer func() {
		if closeErr := o.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close oracle")
		}
	}()

	send := newSender(log, e.deliverer, &entry.Job, &summary)

	for i := range games {
		game := &games[i]
		gameLog := log.WithFields(logrus.Fields{
			"game":  i,
			"white": game.Header("White", "?"),
			"black": game.Header("Black", "?"),
		})

		out, err := e.engine.Replay(ctx, o, game)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}

			if replay.IsFatal(err) {
				send.flush(ctx)

				return summary, err
			}

			summary.FailedGames++

			observability.RecordError("replay", "game_aborted")
			gameLog.WithError(err).Warn("Game replay aborted")

			continue
		}

		records := e.extractor.ExtractAll(out.Tactics)
		summary.Puzzles += len(records)

		gameLog.WithFields(logrus.Fields{
			"plies":   len(game.Moves),
			"visited": out.Visited,
			"puzzles": len(records),
		}).Info("Game analyzed")

		for _, record := range records {
			send.add(ctx, record)
		}
	}

	send.flush(ctx)

	// Puzzles held back by a shutdown are only sent once the job runs again
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	log.WithFields(logrus.Fields{
		"games":        summary.Games,
		"failed_games": summary.FailedGames,
		"puzzles":      summary.Puzzles,
		"delivered":    summary.Delivered,
	}).Info("Job finished")

	return summary, nil
}

// sender keeps one record back so the final record of the job, and only that one, goes
// out with last_puzzle set
type sender struct {
	log       logrus.FieldLogger
	deliverer delivery.Deliverer
	job       *jobs.Job
	summary   *Summary
	pending   *puzzle.Record
}

func newSender(log logrus.FieldLogger, deliverer delivery.Deliverer, job *jobs.Job, summary *Summary) *sender {
	return &sender{log: log, deliverer: deliverer, job: job, summary: summary}
}

func (s *sender) add(ctx context.Context, record puzzle.Record) {
	if s.pending != nil {
		s.send(ctx, *s.pending, false)
	}

	s.pending = &record
}

func (s *sender) flush(ctx context.Context) {
	if s.pending == nil {
		return
	}

	s.send(ctx, *s.pending, true)
	s.pending = nil
}

func (s *sender) send(ctx context.Context, record puzzle.Record, last bool) {
	if ctx.Err() != nil {
		return
	}

	log := s.log.WithFields(logrus.Fields{
		"puzzle_id":   record.ID,
		"last_puzzle": last,
	})

	err := s.deliverer.Deliver(ctx, &delivery.Request{
		Puzzle:     record,
		UserID:     s.job.UserID,
		SetID:      s.job.SetID,
		LastPuzzle: last,
	})

	switch {
	case err == nil:
		s.summary.Delivered++

		observability.RecordDelivery("success")
	case ctx.Err() != nil:
		log.WithError(err).Debug("Puzzle delivery interrupted by shutdown")
	case errors.Is(err, delivery.ErrTimeout):
		observability.RecordDelivery("timeout")
		log.WithError(err).Warn("Puzzle delivery timed out")
	default:
		observability.RecordDelivery("failed")
		log.WithError(err).Warn("Puzzle delivery failed")
	}
}

// Ensure JobExecutor implements the interface
var _ Executor = (*JobExecutor)(nil)
