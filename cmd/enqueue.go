package cmd

import (
	"context"
	"os"

	"github.com/ethpandaops/tactix/pkg/engine"
	"github.com/ethpandaops/tactix/pkg/jobs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var (
	enqueuePGN  string
	enqueueUser string
	enqueueSet  string
)

// enqueueCmd represents the enqueue command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Push a PGN analysis job onto the queue",
	Long: `Enqueue reads a PGN file and pushes it as a job for the given user and
puzzle set, exactly as the training application does.

Examples:
  tactix enqueue --pgn games.pgn --user 42 --set 7`,
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().StringVar(&enqueuePGN, "pgn", "", "PGN file to analyse")
	enqueueCmd.Flags().StringVar(&enqueueUser, "user", "", "user id puzzles are delivered for")
	enqueueCmd.Flags().StringVar(&enqueueSet, "set", "", "puzzle set id")

	_ = enqueueCmd.MarkFlagRequired("pgn")
	_ = enqueueCmd.MarkFlagRequired("user")
	_ = enqueueCmd.MarkFlagRequired("set")
}

func runEnqueue(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := engine.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if err := setLogLevel(config.Logging); err != nil {
		return err
	}

	text, err := os.ReadFile(enqueuePGN) //nolint:gosec // User-provided PGN file path
	if err != nil {
		return err
	}

	job := jobs.Job{
		PGN:    string(text),
		UserID: enqueueUser,
		SetID:  enqueueSet,
	}

	raw, err := job.Encode()
	if err != nil {
		return err
	}

	broker, closeBroker := engine.NewBroker(&config.Redis)
	defer func() {
		if closeErr := closeBroker(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close redis client")
		}
	}()

	if err := broker.Push(context.Background(), raw); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"job_id": jobs.NewID(raw),
		"queue":  config.Redis.PendingKey(),
	}).Info("Job enqueued")

	return nil
}
