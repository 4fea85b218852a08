package testutil

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniredisClient returns both a miniredis server and a connected client.
// Both are automatically closed when the test completes.
func NewMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("failed to close miniredis client: %v", err)
		}
	})

	return mr, client
}

// ListContents returns the entries of a miniredis list, left to right.
// A missing key is reported as an empty list.
func ListContents(t *testing.T, mr *miniredis.Miniredis, key string) []string {
	t.Helper()

	entries, err := mr.List(key)
	if err != nil {
		if errors.Is(err, miniredis.ErrKeyNotFound) {
			return nil
		}
		t.Fatalf("failed to read list %s: %v", key, err)
	}

	return entries
}
