package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/tactix/pkg/engine"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the tactix worker",
	Long: `Run recovers jobs interrupted by a previous crash, then claims jobs from the
queue and analyses them until interrupted.`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	// Load configuration
	config, err := engine.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if err := setLogLevel(config.Logging); err != nil {
		return err
	}

	logger.Info("Configuration loaded")

	service, err := engine.NewService(logger, config, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return service.Start(ctx)
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()

		logger.Info("Received shutdown signal")

		return nil
	})

	startErr := g.Wait()

	// Graceful shutdown
	if err := service.Stop(); err != nil {
		return err
	}

	return startErr
}
