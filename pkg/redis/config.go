// Package redis provides Redis client configuration
package redis

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Define static errors
var (
	ErrHostRequired  = errors.New("redis host is required")
	ErrInvalidPort   = errors.New("redis port must be between 1 and 65535")
	ErrQueueRequired = errors.New("redis queue name is required")
)

// processingSuffix is appended to the pending queue name to form the in-flight list
const processingSuffix = "_processing"

// Config holds Redis client configuration
type Config struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" default:"0"`
	Queue    string `yaml:"queue" default:"pgn_queue"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrHostRequired
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}

	if c.Queue == "" {
		return ErrQueueRequired
	}

	return nil
}

// Addr returns the host:port address of the broker
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PendingKey is the list producers push jobs onto
func (c *Config) PendingKey() string {
	return c.Queue
}

// ProcessingKey is the in-flight list holding claimed, unfinished jobs
func (c *Config) ProcessingKey() string {
	return c.Queue + processingSuffix
}
