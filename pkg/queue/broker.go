// Package queue implements the durable pending/in-flight job lists on Redis
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	r "github.com/ethpandaops/tactix/pkg/redis"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrEmpty is returned by Claim when nothing arrived on the pending list before the timeout
	ErrEmpty = errors.New("pending queue is empty")
	// ErrNotInFlight is returned by Complete when the entry is no longer on the in-flight list
	ErrNotInFlight = errors.New("entry not found in in-flight queue")
)

// requeueScript moves every in-flight entry back onto the consuming end of the pending list
// in one server-side step. The newest claim is popped first and pushed right, so the oldest
// claim ends up rightmost and is claimed again first.
const requeueScript = `
local moved = 0
while true do
  local entry = redis.call('LPOP', KEYS[2])
  if not entry then
    break
  end
  redis.call('RPUSH', KEYS[1], entry)
  moved = moved + 1
end
return moved
`

// Broker is the set of atomic operations the supervisor performs against the job lists
type Broker interface {
	// Push enqueues a raw entry the way producers do
	Push(ctx context.Context, raw string) error
	// Claim atomically moves the oldest pending entry onto the in-flight list.
	// It blocks for at most timeout and returns ErrEmpty when nothing arrived.
	Claim(ctx context.Context, timeout time.Duration) (string, error)
	// Complete removes exactly one occurrence of raw from the in-flight list
	Complete(ctx context.Context, raw string) error
	// RequeueOrphans moves all in-flight entries back to pending and returns how many moved
	RequeueOrphans(ctx context.Context) (int, error)
	// Depth returns the length of the pending list
	Depth(ctx context.Context) (int64, error)
	// InFlight returns the length of the in-flight list
	InFlight(ctx context.Context) (int64, error)
}

// RedisBroker implements Broker on two Redis lists
type RedisBroker struct {
	client     *redis.Client
	pending    string
	processing string
	requeue    *redis.Script
}

// NewRedisBroker creates a broker over the lists named by cfg
func NewRedisBroker(client *redis.Client, cfg *r.Config) *RedisBroker {
	return &RedisBroker{
		client:     client,
		pending:    cfg.PendingKey(),
		processing: cfg.ProcessingKey(),
		requeue:    redis.NewScript(requeueScript),
	}
}

// Push enqueues raw on the producer end of the pending list
func (b *RedisBroker) Push(ctx context.Context, raw string) error {
	return b.client.LPush(ctx, b.pending, raw).Err()
}

// Claim moves one entry from pending to in-flight
func (b *RedisBroker) Claim(ctx context.Context, timeout time.Duration) (string, error) {
	raw, err := b.client.BLMove(ctx, b.pending, b.processing, "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEmpty
		}

		return "", fmt.Errorf("failed to claim from %s: %w", b.pending, err)
	}

	return raw, nil
}

// Complete drops raw from the in-flight list
func (b *RedisBroker) Complete(ctx context.Context, raw string) error {
	removed, err := b.client.LRem(ctx, b.processing, 1, raw).Result()
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", b.processing, err)
	}

	if removed == 0 {
		return ErrNotInFlight
	}

	return nil
}

// RequeueOrphans returns interrupted jobs to the pending list
func (b *RedisBroker) RequeueOrphans(ctx context.Context) (int, error) {
	moved, err := b.requeue.Run(ctx, b.client, []string{b.pending, b.processing}).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to requeue %s: %w", b.processing, err)
	}

	return moved, nil
}

// Depth returns the number of pending entries
func (b *RedisBroker) Depth(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.pending).Result()
}

// InFlight returns the number of claimed, unfinished entries
func (b *RedisBroker) InFlight(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.processing).Result()
}

// Ensure RedisBroker implements the interface
var _ Broker = (*RedisBroker)(nil)
