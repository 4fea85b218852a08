package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof is intentionally exposed when pprofAddr is configured
	"time"

	"github.com/ethpandaops/tactix/pkg/api"
	"github.com/ethpandaops/tactix/pkg/delivery"
	"github.com/ethpandaops/tactix/pkg/jobs"
	"github.com/ethpandaops/tactix/pkg/observability"
	"github.com/ethpandaops/tactix/pkg/oracle"
	"github.com/ethpandaops/tactix/pkg/puzzle"
	"github.com/ethpandaops/tactix/pkg/queue"
	r "github.com/ethpandaops/tactix/pkg/redis"
	"github.com/ethpandaops/tactix/pkg/replay"
	"github.com/ethpandaops/tactix/pkg/tactics"
	"github.com/ethpandaops/tactix/pkg/worker"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Service owns every long-running component of the worker process
type Service struct {
	config *Config
	log    logrus.FieldLogger

	redisClient *redis.Client
	broker      *queue.RedisBroker
	monitor     *queue.Monitor
	worker      worker.Service
	api         api.Service

	// Servers
	healthServer *http.Server
	pprofServer  *http.Server
}

// Options override collaborators, mainly for tests
type Options struct {
	// Factory replaces the UCI engine factory
	Factory oracle.Factory
	// Classifier replaces the swing classifier
	Classifier tactics.Classifier
}

// NewService builds the worker process from cfg
func NewService(log logrus.FieldLogger, cfg *Config, opts *Options) (*Service, error) {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if opts == nil {
		opts = &Options{}
	}

	factory := opts.Factory
	if factory == nil {
		factory = oracle.NewUCIFactory(&cfg.Oracle)
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = tactics.NewSwingClassifier(&cfg.Classifier)
	}

	redisClient := redis.NewClient(r.NewOptions(&cfg.Redis))
	broker := queue.NewRedisBroker(redisClient, &cfg.Redis)

	executor := worker.NewJobExecutor(
		log,
		factory,
		replay.NewEngine(log, classifier),
		puzzle.NewExtractor(&cfg.Puzzle),
		delivery.NewClient(log, &cfg.Delivery),
	)

	workerService, err := worker.NewService(log, &cfg.Worker, broker, executor)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker service: %w", err)
	}

	return &Service{
		config:      cfg,
		log:         log.WithField("service", "engine"),
		redisClient: redisClient,
		broker:      broker,
		monitor:     queue.NewMonitor(log, broker, cfg.MonitorSchedule),
		worker:      workerService,
		api:         api.NewService(&cfg.API, broker, cfg.Redis.Queue, log),
	}, nil
}

// NewBroker connects to the configured queue without starting any service
func NewBroker(cfg *r.Config) (*queue.RedisBroker, func() error) {
	client := redis.NewClient(r.NewOptions(cfg))

	return queue.NewRedisBroker(client, cfg), client.Close
}

// Start initializes and starts every component. It returns once crash recovery is done
// and the dispatch loop runs.
func (a *Service) Start(ctx context.Context) error {
	a.log.WithFields(logrus.Fields{
		"queue":       a.config.Redis.PendingKey(),
		"in_flight":   a.config.Redis.ProcessingKey(),
		"endpoint":    a.config.Delivery.Endpoint,
		"oracle_path": a.config.Oracle.Path,
	}).Info("Starting tactix engine...")

	// Start metrics server
	observability.StartMetricsServer(a.log, a.config.MetricsAddr)

	// Start health check server if configured
	if a.config.HealthCheckAddr != "" {
		a.startHealthCheck()
	}

	// Start pprof server if configured
	if a.config.PProfAddr != "" {
		a.startPProf()
	}

	if a.config.DevSeed {
		a.seed(ctx)
	}

	if err := a.monitor.Start(); err != nil {
		return fmt.Errorf("failed to start queue monitor: %w", err)
	}

	if err := a.api.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API service: %w", err)
	}

	if err := a.worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	a.log.Info("tactix engine started successfully")

	return nil
}

// Stop gracefully shuts down every component
func (a *Service) Stop() error {
	a.log.Info("Shutting down engine...")

	// Create a timeout context for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Helper function to stop a service
	stopService := func(name string, stopFunc func() error) {
		if stopFunc == nil {
			return
		}
		if err := stopFunc(); err != nil {
			a.log.WithError(err).Errorf("Failed to stop %s", name)
		}
	}

	// 1. Stop API (no new jobs from this process)
	if a.api != nil {
		stopService("API service", a.api.Stop)
	}

	// 2. Stop worker (running jobs finish or stay in flight)
	if a.worker != nil {
		stopService("worker service", a.worker.Stop)
	}

	// 3. Stop the monitor
	if a.monitor != nil {
		a.monitor.Stop()
	}

	// 4. Close Redis (now safe, nothing is using it)
	if a.redisClient != nil {
		stopService("Redis client", a.redisClient.Close)
	}

	// Stop HTTP servers
	if a.healthServer != nil {
		stopService("health check server", func() error { return a.healthServer.Shutdown(ctx) })
	}
	if a.pprofServer != nil {
		stopService("pprof server", func() error { return a.pprofServer.Shutdown(ctx) })
	}

	stopService("metrics server", func() error { return observability.StopMetricsServer(ctx) })

	return nil
}

// seed pushes the development sample job
func (a *Service) seed(ctx context.Context) {
	sample := jobs.Sample()

	raw, err := sample.Encode()
	if err != nil {
		a.log.WithError(err).Error("Failed to encode sample job")
		return
	}

	if err := a.broker.Push(ctx, raw); err != nil {
		a.log.WithError(err).Warn("Failed to seed sample job")
		return
	}

	a.log.WithField("job_id", jobs.NewID(raw)).Info("Seeded sample job")
}

// healthHandler serves liveness on /health and dispatch readiness on /ready
func (a *Service) healthHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, _ *http.Request) {
		if !a.worker.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT READY"))

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return mux
}

func (a *Service) startHealthCheck() {
	a.log.WithField("addr", a.config.HealthCheckAddr).Info("Starting health check server")

	a.healthServer = &http.Server{
		Addr:              a.config.HealthCheckAddr,
		Handler:           a.healthHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := a.healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Health check server failed")
		}
	}()
}

func (a *Service) startPProf() {
	a.log.WithField("addr", a.config.PProfAddr).Info("Starting pprof server")

	a.pprofServer = &http.Server{
		Addr:              a.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}

	go func() {
		if err := a.pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("Pprof server failed")
		}
	}()
}
