package gchaintest

import (
	"context"
	"slices"
	"sync"

	"github.com/gordian-engine/gibctest/gchain"
	"google.golang.org/protobuf/types/known/anypb"
)

// DriverCall is one recorded call to a [RecordingDriver] operation.
type DriverCall struct {
	Method string

	// Arguments after the context, as passed.
	Args []any
}

// RecordingDriver is a [gchain.Driver] that records every call
// and answers with its scripted fields.
// Unset functions answer with zero values.
type RecordingDriver struct {
	ID      gchain.ChainID
	Config  gchain.TxConfig
	Command string
	RPCAddr string

	CommandRunner gchain.CommandRunner

	SendTxFunc                     func(ctx context.Context, wallet gchain.Wallet, msgs []*anypb.Any) error
	QueryBalanceFunc               func(ctx context.Context, addr gchain.WalletAddress, denom gchain.Denom) (uint64, error)
	AssertEventualWalletAmountFunc func(ctx context.Context, addr gchain.WalletAddress, target uint64, denom gchain.Denom) error

	mu    sync.Mutex
	calls []DriverCall
}

var _ gchain.Driver = (*RecordingDriver)(nil)

// Calls returns a copy of the calls recorded so far, in order.
func (d *RecordingDriver) Calls() []DriverCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

func (d *RecordingDriver) record(method string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, DriverCall{Method: method, Args: args})
}

func (d *RecordingDriver) ChainID() gchain.ChainID {
	d.record("ChainID")
	return d.ID
}

func (d *RecordingDriver) TxConfig() *gchain.TxConfig {
	d.record("TxConfig")
	return &d.Config
}

func (d *RecordingDriver) CommandPath() string {
	d.record("CommandPath")
	return d.Command
}

func (d *RecordingDriver) RPCListenAddress() string {
	d.record("RPCListenAddress")
	return d.RPCAddr
}

func (d *RecordingDriver) Runner() gchain.CommandRunner {
	d.record("Runner")
	return d.CommandRunner
}

func (d *RecordingDriver) SendTx(ctx context.Context, wallet gchain.Wallet, msgs []*anypb.Any) error {
	d.record("SendTx", wallet, msgs)
	if d.SendTxFunc == nil {
		return nil
	}
	return d.SendTxFunc(ctx, wallet, msgs)
}

func (d *RecordingDriver) QueryBalance(ctx context.Context, addr gchain.WalletAddress, denom gchain.Denom) (uint64, error) {
	d.record("QueryBalance", addr, denom)
	if d.QueryBalanceFunc == nil {
		return 0, nil
	}
	return d.QueryBalanceFunc(ctx, addr, denom)
}

func (d *RecordingDriver) AssertEventualWalletAmount(
	ctx context.Context, addr gchain.WalletAddress, target uint64, denom gchain.Denom,
) error {
	d.record("AssertEventualWalletAmount", addr, target, denom)
	if d.AssertEventualWalletAmountFunc == nil {
		return nil
	}
	return d.AssertEventualWalletAmountFunc(ctx, addr, target, denom)
}
