// Package jobs defines the game-analysis job carried on the queue
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrMalformedJob is returned when a queue entry cannot be turned into a runnable job.
	// Malformed jobs are dropped, never requeued.
	ErrMalformedJob = errors.New("malformed job")
)

// jobNamespace scopes the name-based job ids so they never collide with ids minted elsewhere
//
//nolint:gochecknoglobals // Constant UUID namespace
var jobNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tactix/jobs"))

// Job is the payload producers push onto the pending queue
type Job struct {
	PGN    string `json:"pgn"`
	UserID string `json:"userId"`
	SetID  string `json:"setId"`
}

// Validate checks that every required field is present
func (j *Job) Validate() error {
	var missing []string

	if strings.TrimSpace(j.PGN) == "" {
		missing = append(missing, "pgn")
	}

	if j.UserID == "" {
		missing = append(missing, "userId")
	}

	if j.SetID == "" {
		missing = append(missing, "setId")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedJob, strings.Join(missing, ", "))
	}

	return nil
}

// Encode serializes the job into its queue representation
func (j *Job) Encode() (string, error) {
	if err := j.Validate(); err != nil {
		return "", err
	}

	data, err := json.Marshal(j)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Entry is a raw queue entry together with the job decoded from it.
// Raw is kept verbatim because the in-flight list is cleaned up by value.
type Entry struct {
	Raw string
	Job Job
}

// ID returns a deterministic identifier for the entry, stable across restarts
func (e *Entry) ID() string {
	return NewID(e.Raw)
}

// NewID derives the job id for a raw queue entry
func NewID(raw string) string {
	return uuid.NewSHA1(jobNamespace, []byte(raw)).String()
}

// Decode parses and validates a raw queue entry
func Decode(raw string) (*Entry, error) {
	entry := &Entry{Raw: raw}

	if err := json.Unmarshal([]byte(raw), &entry.Job); err != nil {
		return entry, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}

	if err := entry.Job.Validate(); err != nil {
		return entry, err
	}

	return entry, nil
}
