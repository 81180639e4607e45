package gchain

import (
	"context"
	"io"

	"google.golang.org/protobuf/types/known/anypb"
)

// Driver operates on one running chain.
//
// Implementations own all process, CLI, and RPC interaction,
// including the retry and timeout policy of eventual assertions.
// Whether a Driver is safe for concurrent use is up to the implementation.
type Driver interface {
	ChainID() ChainID
	TxConfig() *TxConfig

	// CommandPath is the path of the chain binary.
	CommandPath() string

	// RPCListenAddress is the address the chain's RPC server listens on,
	// suitable for a --node flag.
	RPCListenAddress() string

	// Runner executes chain binary commands on behalf of the driver.
	Runner() CommandRunner

	// SendTx signs the messages with wallet and broadcasts them.
	SendTx(ctx context.Context, wallet Wallet, msgs []*anypb.Any) error

	// QueryBalance returns the balance of addr in denom.
	QueryBalance(ctx context.Context, addr WalletAddress, denom Denom) (uint64, error)

	// AssertEventualWalletAmount blocks until the balance of addr in denom
	// equals target, or until the driver gives up.
	AssertEventualWalletAmount(ctx context.Context, addr WalletAddress, target uint64, denom Denom) error
}

// CommandRunner runs a chain binary and returns its standard output.
// A nil stdin means no input.
type CommandRunner interface {
	RunCommand(ctx context.Context, stdin io.Reader, path string, args ...string) ([]byte, error)
}

// CommandRunnerFunc adapts a function to the [CommandRunner] interface.
type CommandRunnerFunc func(ctx context.Context, stdin io.Reader, path string, args ...string) ([]byte, error)

func (f CommandRunnerFunc) RunCommand(ctx context.Context, stdin io.Reader, path string, args ...string) ([]byte, error) {
	return f(ctx, stdin, path, args...)
}
