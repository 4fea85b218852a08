package oracle

import "errors"

var (
	// ErrPathRequired is returned when no evaluator executable is configured
	ErrPathRequired = errors.New("oracle path is required")
	// ErrInvalidDepth is returned when the search depth is not positive
	ErrInvalidDepth = errors.New("oracle depth must be positive")
)

// Config contains evaluator settings. Thread count is not configured here: it is chosen
// per job by the worker concurrency policy.
type Config struct {
	Path       string            `yaml:"path" default:"stockfish"`
	Depth      int               `yaml:"depth" default:"18"`
	HashMB     int               `yaml:"hashMB" default:"128"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return ErrPathRequired
	}

	if c.Depth <= 0 {
		return ErrInvalidDepth
	}

	return nil
}
