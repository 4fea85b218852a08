package puzzle

import "errors"

var (
	// ErrInvalidRating is returned when the default rating is not positive
	ErrInvalidRating = errors.New("defaultRating must be positive")
)

// Config controls how tactics are flattened into records
type Config struct {
	// DefaultRating is used when the solver has no Elo header
	DefaultRating int `yaml:"defaultRating" default:"1500"`
	// IgnoreFirstMove starts the puzzle after the opponent's move that allowed the tactic
	IgnoreFirstMove bool `yaml:"ignoreFirstMove" default:"false"`
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.DefaultRating <= 0 {
		return ErrInvalidRating
	}

	return nil
}
