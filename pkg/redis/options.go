package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// NewOptions converts the configuration to go-redis client options
func NewOptions(c *Config) *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
