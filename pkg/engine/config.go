// Package engine wires the tactix services together
package engine

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/tactix/pkg/api"
	"github.com/ethpandaops/tactix/pkg/delivery"
	"github.com/ethpandaops/tactix/pkg/oracle"
	"github.com/ethpandaops/tactix/pkg/puzzle"
	r "github.com/ethpandaops/tactix/pkg/redis"
	"github.com/ethpandaops/tactix/pkg/tactics"
	"github.com/ethpandaops/tactix/pkg/worker"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidEnv is returned when an environment override cannot be parsed
	ErrInvalidEnv = errors.New("invalid environment variable")
)

// Config represents the complete engine configuration
type Config struct {
	// Core settings
	Logging         string `yaml:"logging" default:"info"`
	MetricsAddr     string `yaml:"metricsAddr" default:":9091"`
	HealthCheckAddr string `yaml:"healthCheckAddr"`
	PProfAddr       string `yaml:"pprofAddr"`

	// DevSeed pushes one sample job at startup
	DevSeed bool `yaml:"devSeed" default:"false"`

	// MonitorSchedule is the cron spec for sampling queue depth
	MonitorSchedule string `yaml:"monitorSchedule" default:"@every 15s"`

	// Dependencies
	Redis r.Config `yaml:"redis"`

	// Worker specific settings
	Worker worker.Config `yaml:"worker"`

	// Analysis pipeline
	Oracle     oracle.Config   `yaml:"oracle"`
	Classifier tactics.Config  `yaml:"classifier"`
	Puzzle     puzzle.Config   `yaml:"puzzle"`
	Delivery   delivery.Config `yaml:"delivery"`

	// API service configuration
	API api.Config `yaml:"api"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging); err != nil {
		return fmt.Errorf("invalid logging level: %w", err)
	}

	validators := []struct {
		name string
		fn   func() error
	}{
		{"redis", c.Redis.Validate},
		{"worker", c.Worker.Validate},
		{"oracle", c.Oracle.Validate},
		{"classifier", c.Classifier.Validate},
		{"puzzle", c.Puzzle.Validate},
		{"delivery", c.Delivery.Validate},
		{"api", c.API.Validate},
	}

	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}

	return nil
}

// LoadConfig builds the configuration from defaults, the optional YAML file at path and
// then the environment
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	if path != "" {
		// Try to read the file, but allow it to not exist
		yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}

		if err == nil {
			if err := yaml.Unmarshal(yamlFile, config); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"REDIS_HOST":     &c.Redis.Host,
		"REDIS_PASSWORD": &c.Redis.Password,
		"REDIS_QUEUE":    &c.Redis.Queue,
		"API_ENDPOINT":   &c.Delivery.Endpoint,
		"STOCKFISH_PATH": &c.Oracle.Path,
		"LOG_LEVEL":      &c.Logging,
	}

	for key, target := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*target = v
		}
	}

	ints := map[string]*int{
		"REDIS_PORT": &c.Redis.Port,
		"REDIS_DB":   &c.Redis.DB,
	}

	for key, target := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v)
		}

		*target = n
	}

	if v, ok := lookup("DEV_SEED"); ok && v != "" {
		seed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: DEV_SEED=%q", ErrInvalidEnv, v)
		}

		c.DevSeed = seed
	}

	return nil
}
