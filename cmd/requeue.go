package cmd

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethpandaops/tactix/pkg/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Command flags need to be global for cobra
var requeueAttempts uint

// requeueCmd represents the requeue command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var requeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Move every in-flight job back to the pending queue",
	Long: `Requeue performs the crash recovery step of the worker without starting it.
Use it after a worker was lost for good. It must not run while a worker
is processing jobs, as their in-flight entries would be duplicated.`,
	RunE: runRequeue,
}

func init() {
	rootCmd.AddCommand(requeueCmd)

	requeueCmd.Flags().UintVar(&requeueAttempts, "attempts", 5, "broker attempts before giving up")
}

func runRequeue(cmd *cobra.Command, _ []string) error {
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

	broker, closeBroker := engine.NewBroker(&config.Redis)
	defer func() {
		if closeErr := closeBroker(); closeErr != nil {
			logger.WithError(closeErr).Error("Failed to close redis client")
		}
	}()

	ctx := context.Background()

	moved, err := retry.DoWithData(
		func() (int, error) {
			return broker.RequeueOrphans(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(requeueAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.WithError(err).WithField("attempt", n+1).Warn("Broker unavailable, retrying")
		}),
	)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"requeued": moved,
		"queue":    config.Redis.PendingKey(),
	}).Info("In-flight jobs requeued")

	return nil
}
