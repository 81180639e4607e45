package glog

import (
	"log/slog"

	"github.com/gordian-engine/gibctest/gchain"
)

// Chain returns a copy of log that includes the chain ID field.
//
// Multi-chain tests interleave output from every chain under test,
// so every log line from a per-chain component should carry this.
func Chain(log *slog.Logger, id gchain.ChainID) *slog.Logger {
	return log.With("chain_id", string(id))
}
