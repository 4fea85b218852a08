// Package testutil provides test utilities for tactix, including:
//   - Miniredis helpers for unit tests (miniredis.go)
//   - A quiet logrus logger for services under test
//
// None of the helpers need Docker or a real Redis.
package testutil

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger that discards output unless a test raises the level and output
func NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)

	return log
}
