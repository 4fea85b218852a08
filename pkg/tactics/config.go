package tactics

import "errors"

var (
	// ErrInvalidMaxPlies is returned when the line length limit is not positive
	ErrInvalidMaxPlies = errors.New("classifier maxPlies must be positive")
)

// Config tunes the swing classifier
type Config struct {
	// MinSwing is the evaluation gain in centipawns the root move must hand the solver
	MinSwing int `yaml:"minSwing" default:"200"`
	// MinAdvantage is the score the solver must hold after the root move
	MinAdvantage int `yaml:"minAdvantage" default:"150"`
	// UniquenessMargin is how much better the solver's best move must be than the runner-up
	UniquenessMargin int `yaml:"uniquenessMargin" default:"100"`
	// MaxPlies caps the solution line, replies included
	MaxPlies int `yaml:"maxPlies" default:"8"`
	// KeepLastReply keeps the defender's reply when the line ends on one
	KeepLastReply bool `yaml:"keepLastReply" default:"false"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxPlies <= 0 {
		return ErrInvalidMaxPlies
	}

	return nil
}
