package worker

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPollTimeout is returned when the claim timeout is below one second
	ErrInvalidPollTimeout = errors.New("pollTimeout must be at least 1s")
	// ErrInvalidRetryDelay is returned when the broker retry delay is not positive
	ErrInvalidRetryDelay = errors.New("retryDelay must be positive")
	// ErrInvalidCompleteTimeout is returned when the completion timeout is not positive
	ErrInvalidCompleteTimeout = errors.New("completeTimeout must be positive")
	// ErrWorkerShutdownTimeout is returned when worker shutdown times out
	ErrWorkerShutdownTimeout = errors.New("worker shutdown timed out")
)

// Config contains worker-specific settings
type Config struct {
	// PollTimeout bounds each blocking claim so concurrency is re-evaluated regularly.
	// Redis accepts whole seconds only.
	PollTimeout time.Duration `yaml:"pollTimeout" default:"1s"`
	// RetryDelay is the fixed sleep between attempts while the broker is unreachable
	RetryDelay time.Duration `yaml:"retryDelay" default:"5s"`
	// CompleteTimeout bounds the removal of a finished job from the in-flight list
	CompleteTimeout time.Duration `yaml:"completeTimeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"30s"`
	// Policy maps pending depth to pool size and oracle threads; empty means DefaultPolicy
	Policy Policy `yaml:"policy,omitempty"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.PollTimeout < time.Second {
		return ErrInvalidPollTimeout
	}

	if c.RetryDelay <= 0 {
		return ErrInvalidRetryDelay
	}

	if c.CompleteTimeout <= 0 {
		return ErrInvalidCompleteTimeout
	}

	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}

	return nil
}

// EffectivePolicy returns the configured policy or DefaultPolicy when none is set
func (c *Config) EffectivePolicy() Policy {
	if len(c.Policy) == 0 {
		return DefaultPolicy()
	}

	return c.Policy
}
