package delivery

import (
	"errors"
	"time"
)

var (
	// ErrEndpointRequired is returned when no ingestion endpoint is configured
	ErrEndpointRequired = errors.New("endpoint is required")
	// ErrInvalidTimeout is returned when the request timeout is not positive
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// Config configures the ingestion endpoint client
type Config struct {
	Endpoint string        `yaml:"endpoint" default:"https://chesstraining.app/api/tactics/addPuzzleToSet"`
	Timeout  time.Duration `yaml:"timeout" default:"10s"`
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrEndpointRequired
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}
