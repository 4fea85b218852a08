package worker

import (
	"errors"
	"fmt"
)

// Unbounded marks the catch-all tier of a Policy
const Unbounded int64 = -1

var (
	// ErrInvalidTier is returned for tiers with no workers or no threads
	ErrInvalidTier = errors.New("tier needs at least one worker and one thread")
	// ErrTierOrder is returned when tier depths are not strictly increasing
	ErrTierOrder = errors.New("tier maxDepth must be strictly increasing")
)

// Concurrency is a pool size and the oracle threads each worker's oracle is created with
type Concurrency struct {
	Workers int `yaml:"workers"`
	Threads int `yaml:"threads"`
}

// Tier applies to pending depths up to and including MaxDepth
type Tier struct {
	MaxDepth    int64 `yaml:"maxDepth"`
	Concurrency `yaml:",inline"`
}

// Policy is an ordered list of tiers. A depth beyond every bounded tier uses the
// Unbounded tier, or the last tier if there is none.
type Policy []Tier

// DefaultPolicy favours deep single-job searches when idle and more independent oracles
// under backlog
func DefaultPolicy() Policy {
	return Policy{
		{MaxDepth: 1, Concurrency: Concurrency{Workers: 1, Threads: 6}},
		{MaxDepth: 3, Concurrency: Concurrency{Workers: 2, Threads: 4}},
		{MaxDepth: 6, Concurrency: Concurrency{Workers: 4, Threads: 2}},
		{MaxDepth: Unbounded, Concurrency: Concurrency{Workers: 6, Threads: 1}},
	}
}

// Choose maps a pending depth to a concurrency. It is a pure function of p and depth.
func (p Policy) Choose(depth int64) Concurrency {
	if len(p) == 0 {
		return DefaultPolicy().Choose(depth)
	}

	for _, tier := range p {
		if tier.MaxDepth == Unbounded || depth <= tier.MaxDepth {
			return tier.Concurrency
		}
	}

	return p[len(p)-1].Concurrency
}

// Validate checks tier values and ordering. An empty policy is valid.
func (p Policy) Validate() error {
	last := int64(-1)

	for i, tier := range p {
		if tier.Workers < 1 || tier.Threads < 1 {
			return fmt.Errorf("tier %d: %w", i, ErrInvalidTier)
		}

		if tier.MaxDepth == Unbounded {
			if i != len(p)-1 {
				return fmt.Errorf("tier %d: unbounded tier must be last: %w", i, ErrTierOrder)
			}

			continue
		}

		if tier.MaxDepth <= last {
			return fmt.Errorf("tier %d: %w", i, ErrTierOrder)
		}

		last = tier.MaxDepth
	}

	return nil
}

// ChooseConcurrency applies the default policy
func ChooseConcurrency(depth int64) Concurrency {
	return DefaultPolicy().Choose(depth)
}
