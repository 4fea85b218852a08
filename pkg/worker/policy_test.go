package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChooseConcurrency_ReferencePolicy(t *testing.T) {
	tests := []struct {
		depth int64
		want  Concurrency
	}{
		{0, Concurrency{Workers: 1, Threads: 6}},
		{1, Concurrency{Workers: 1, Threads: 6}},
		{2, Concurrency{Workers: 2, Threads: 4}},
		{3, Concurrency{Workers: 2, Threads: 4}},
		{4, Concurrency{Workers: 4, Threads: 2}},
		{6, Concurrency{Workers: 4, Threads: 2}},
		{7, Concurrency{Workers: 6, Threads: 1}},
		{100, Concurrency{Workers: 6, Threads: 1}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ChooseConcurrency(tt.depth), "depth %d", tt.depth)
		// Same answer every time
		assert.Equal(t, ChooseConcurrency(tt.depth), ChooseConcurrency(tt.depth))
	}
}

func TestPolicy_Custom(t *testing.T) {
	policy := Policy{
		{MaxDepth: 0, Concurrency: Concurrency{Workers: 1, Threads: 8}},
		{MaxDepth: 10, Concurrency: Concurrency{Workers: 3, Threads: 2}},
	}

	assert.NoError(t, policy.Validate())
	assert.Equal(t, Concurrency{Workers: 1, Threads: 8}, policy.Choose(0))
	assert.Equal(t, Concurrency{Workers: 3, Threads: 2}, policy.Choose(5))
	// Past the last bounded tier the last tier still applies
	assert.Equal(t, Concurrency{Workers: 3, Threads: 2}, policy.Choose(50))
}

func TestPolicy_Empty(t *testing.T) {
	var policy Policy

	assert.NoError(t, policy.Validate())
	assert.Equal(t, ChooseConcurrency(7), policy.Choose(7))
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr error
	}{
		{
			name:   "default",
			policy: DefaultPolicy(),
		},
		{
			name:    "zero workers",
			policy:  Policy{{MaxDepth: 1, Concurrency: Concurrency{Workers: 0, Threads: 1}}},
			wantErr: ErrInvalidTier,
		},
		{
			name:    "zero threads",
			policy:  Policy{{MaxDepth: 1, Concurrency: Concurrency{Workers: 1, Threads: 0}}},
			wantErr: ErrInvalidTier,
		},
		{
			name: "out of order",
			policy: Policy{
				{MaxDepth: 5, Concurrency: Concurrency{Workers: 1, Threads: 1}},
				{MaxDepth: 2, Concurrency: Concurrency{Workers: 2, Threads: 1}},
			},
			wantErr: ErrTierOrder,
		},
		{
			name: "unbounded not last",
			policy: Policy{
				{MaxDepth: Unbounded, Concurrency: Concurrency{Workers: 1, Threads: 1}},
				{MaxDepth: 2, Concurrency: Concurrency{Workers: 2, Threads: 1}},
			},
			wantErr: ErrTierOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
