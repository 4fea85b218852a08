package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/tactix/pkg/observability"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Monitor periodically publishes list lengths as metrics
type Monitor struct {
	log      logrus.FieldLogger
	broker   Broker
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
}

// NewMonitor creates a monitor sampling broker on the given cron schedule (e.g. "@every 15s")
func NewMonitor(log logrus.FieldLogger, broker Broker, schedule string) *Monitor {
	return &Monitor{
		log:      log.WithField("component", "queue-monitor"),
		broker:   broker,
		schedule: schedule,
		timeout:  5 * time.Second,
	}
}

// Start registers the sampling job and starts the cron runner
func (m *Monitor) Start() error {
	c := cron.New()

	if _, err := c.AddFunc(m.schedule, m.Sample); err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", m.schedule, err)
	}

	m.cron = c
	m.cron.Start()

	m.log.WithField("schedule", m.schedule).Info("Queue monitor started")

	return nil
}

// Stop halts the cron runner and waits for a running sample to finish
func (m *Monitor) Stop() {
	if m.cron == nil {
		return
	}

	<-m.cron.Stop().Done()
}

// Sample records the current pending and in-flight depths
func (m *Monitor) Sample() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	pending, err := m.broker.Depth(ctx)
	if err != nil {
		m.log.WithError(err).Debug("Failed to sample pending depth")
		observability.RecordError("queue-monitor", "depth")

		return
	}

	processing, err := m.broker.InFlight(ctx)
	if err != nil {
		m.log.WithError(err).Debug("Failed to sample in-flight depth")
		observability.RecordError("queue-monitor", "in_flight")

		return
	}

	observability.RecordQueueDepth("pending", pending)
	observability.RecordQueueDepth("processing", processing)
}
