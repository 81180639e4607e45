package main

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"testing"

	"github.com/gordian-engine/gibctest/gchain/gchaintest"
	"github.com/gordian-engine/gibctest/internal/gtest"
	"github.com/stretchr/testify/require"
)

// CmdEnv runs gibcq commands in-process against a fake chain.
type CmdEnv struct {
	log   *slog.Logger
	chain *gchaintest.FakeChain
}

func NewCmdEnv(t *testing.T, chain *gchaintest.FakeChain) CmdEnv {
	t.Helper()

	return CmdEnv{
		log:   gtest.NewLogger(t),
		chain: chain,
	}
}

// Run executes args with the connection flags for the fake chain appended.
func (e CmdEnv) Run(args ...string) RunResult {
	return e.RunC(context.Background(), args...)
}

func (e CmdEnv) RunC(ctx context.Context, args ...string) RunResult {
	args = append(
		slices.Clone(args),
		"--chain-id", string(e.chain.ChainID()),
		"--command", e.chain.CommandPath(),
		"--node", e.chain.RPCAddress(),
	)
	return e.RunRaw(ctx, args...)
}

// RunRaw executes args as given.
func (e CmdEnv) RunRaw(ctx context.Context, args ...string) RunResult {
	var res RunResult

	cmd := NewRootCmd(e.log, e.chain)
	cmd.SetArgs(args)
	cmd.SetOut(&res.Stdout)
	cmd.SetErr(&res.Stderr)

	res.Err = cmd.ExecuteContext(ctx)
	return res
}

type RunResult struct {
	Stdout, Stderr bytes.Buffer
	Err            error
}

func (r RunResult) NoError(t *testing.T) {
	t.Helper()

	require.NoErrorf(t, r.Err, "OUT: %s\n\nERR: %s", r.Stdout.String(), r.Stderr.String())
}
