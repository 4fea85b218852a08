package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// JobsTotal tracks the total number of jobs processed
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tactix_jobs_total",
			Help: "Total number of jobs processed",
		},
		[]string{"status"}, // status: success, failed, malformed, aborted
	)

	// JobDuration measures job execution duration in seconds
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tactix_job_duration_seconds",
			Help:    "Job execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
		[]string{"status"},
	)

	// JobsRunning tracks the number of jobs currently held by workers
	JobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tactix_jobs_running",
			Help: "Number of jobs currently being analyzed",
		},
	)

	// QueueDepth measures number of entries per list
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tactix_queue_depth",
			Help: "Number of entries in the job lists",
		},
		[]string{"queue"}, // queue: pending, processing
	)

	// PoolWorkers is the current worker pool size
	PoolWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tactix_pool_workers",
			Help: "Current number of analysis workers",
		},
	)

	// OracleThreads is the per-worker evaluator thread count handed to new jobs
	OracleThreads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tactix_oracle_threads",
			Help: "Evaluator threads per worker for newly dispatched jobs",
		},
	)

	// PliesAnalyzed counts plies replayed against the evaluator
	PliesAnalyzed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tactix_plies_analyzed_total",
			Help: "Total number of plies replayed",
		},
	)

	// TacticsFound counts tactics returned by the classifier
	TacticsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tactix_tactics_found_total",
			Help: "Total number of tactics discovered",
		},
	)

	// PuzzlesDelivered counts delivery attempts by outcome
	PuzzlesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tactix_puzzles_delivered_total",
			Help: "Total number of puzzle delivery attempts",
		},
		[]string{"status"}, // status: success, timeout, failed
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tactix_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordJobStart records the start of a job
func RecordJobStart() {
	JobsRunning.Inc()
}

// RecordJobComplete records job completion
func RecordJobComplete(status string, duration float64) {
	JobsRunning.Dec()
	JobsTotal.WithLabelValues(status).Inc()
	JobDuration.WithLabelValues(status).Observe(duration)
}

// RecordMalformedJob records a job dropped before analysis
func RecordMalformedJob() {
	JobsTotal.WithLabelValues("malformed").Inc()
}

// RecordQueueDepth records the length of a job list
func RecordQueueDepth(queue string, depth int64) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordConcurrency records the active pool configuration
func RecordConcurrency(workers, threads int) {
	PoolWorkers.Set(float64(workers))
	OracleThreads.Set(float64(threads))
}

// RecordPly records one replayed ply
func RecordPly() {
	PliesAnalyzed.Inc()
}

// RecordTactic records a discovered tactic
func RecordTactic() {
	TacticsFound.Inc()
}

// RecordDelivery records a puzzle delivery outcome
func RecordDelivery(status string) {
	PuzzlesDelivered.WithLabelValues(status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
