package gtest

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// NewLogger returns a *slog.Logger associated with the test t.
func NewLogger(t testing.TB) *slog.Logger {
	// Keep slogt behind this helper so tests depend on gtest,
	// not directly on the external module.
	return slogt.New(t, slogt.Text())
}
