// Package delivery posts puzzle records to the ingestion endpoint.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/ethpandaops/tactix/pkg/puzzle"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx response
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrTimeout is returned when the endpoint does not answer within the configured timeout
	ErrTimeout = errors.New("delivery timed out")
)

// Request is the JSON body sent for one puzzle
type Request struct {
	Puzzle     puzzle.Record `json:"puzzle"`
	UserID     string        `json:"userId"`
	SetID      string        `json:"setId"`
	LastPuzzle bool          `json:"last_puzzle"`
}

// Deliverer sends one puzzle to the ingestion endpoint
type Deliverer interface {
	Deliver(ctx context.Context, req *Request) error
}

// Client is the HTTP Deliverer
type Client struct {
	log    logrus.FieldLogger
	cfg    *Config
	client *http.Client
}

// NewClient creates an HTTP delivery client
func NewClient(log logrus.FieldLogger, cfg *Config) *Client {
	return &Client{
		log:    log.WithField("component", "delivery"),
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Deliver POSTs req and succeeds on any 2xx response. It never retries: a later run of the
// same job produces the same puzzle ids, so the endpoint can deduplicate.
func (c *Client) Deliver(ctx context.Context, req *Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal puzzle %s: %w", req.Puzzle.ID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w after %s: %w", ErrTimeout, c.cfg.Timeout, err)
		}

		return fmt.Errorf("failed to post puzzle %s: %w", req.Puzzle.ID, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	c.log.WithFields(logrus.Fields{
		"puzzle_id":   req.Puzzle.ID,
		"set_id":      req.SetID,
		"last_puzzle": req.LastPuzzle,
	}).Debug("Delivered puzzle")

	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// Ensure Client implements the interface
var _ Deliverer = (*Client)(nil)
