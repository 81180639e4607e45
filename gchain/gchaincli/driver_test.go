package gchaincli_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"cosmossdk.io/math"
	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gchain/gchaincli"
	"github.com/gordian-engine/gibctest/gchain/gchaintest"
	"github.com/gordian-engine/gibctest/internal/gtest"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/anypb"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newFixture(t *testing.T, chainID gchain.ChainID) (*gchaintest.FakeChain, *gchaincli.Driver) {
	t.Helper()

	log := gtest.NewLogger(t)
	fc := gchaintest.NewFakeChain(log, gchaintest.FakeChainConfig{ChainID: chainID})

	d, err := gchaincli.NewDriver(log, fc.DriverConfig())
	require.NoError(t, err)

	return fc, d
}

func mustMsg(t *testing.T) func(*anypb.Any, error) *anypb.Any {
	return func(a *anypb.Any, err error) *anypb.Any {
		t.Helper()
		require.NoError(t, err)
		return a
	}
}

func TestNewDriver_validation(t *testing.T) {
	t.Parallel()

	log := gtest.NewLogger(t)
	fc := gchaintest.NewFakeChain(log, gchaintest.FakeChainConfig{ChainID: "chain-a"})

	t.Run("empty command path", func(t *testing.T) {
		cfg := fc.DriverConfig()
		cfg.CommandPath = ""
		_, err := gchaincli.NewDriver(log, cfg)
		require.Error(t, err)
	})

	t.Run("invalid tx config", func(t *testing.T) {
		cfg := fc.DriverConfig()
		cfg.TxConfig.Gas.GasLimit = 0
		_, err := gchaincli.NewDriver(log, cfg)
		require.ErrorContains(t, err, "gas limit")
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := fc.DriverConfig()
		cfg.Runner = nil
		cfg.RPCListenAddress = ""
		d, err := gchaincli.NewDriver(log, cfg)
		require.NoError(t, err)

		require.Equal(t, fc.RPCAddress(), d.RPCListenAddress())
		require.Equal(t, gchaincli.ExecRunner{}, d.Runner())
		require.Equal(t, gchain.ChainID("chain-a"), d.ChainID())
		require.Equal(t, gchain.ChainID("chain-a"), d.TxConfig().ChainID)
		require.Equal(t, "/fake/chain-a", d.HomeDir())
	})
}

func TestDriver_AddWallet(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fc, d := newFixture(t, "chain-a")

	t.Run("recover", func(t *testing.T) {
		w, err := d.AddWallet(ctx, "user1", testMnemonic)
		require.NoError(t, err)
		require.Equal(t, gchain.Wallet{
			ID:       "user1",
			Address:  fc.AddressFor(testMnemonic),
			Mnemonic: testMnemonic,
		}, w)
	})

	t.Run("generate", func(t *testing.T) {
		w, err := d.AddWallet(ctx, "user2", "")
		require.NoError(t, err)
		require.NotEmpty(t, w.Mnemonic)
		require.Equal(t, fc.AddressFor(w.Mnemonic), w.Address)
	})

	t.Run("name conflict", func(t *testing.T) {
		_, err := d.AddWallet(ctx, "user1", "a different mnemonic")

		var ce gchaincli.CommandError
		require.ErrorAs(t, err, &ce)
		require.Contains(t, ce.Stderr, "duplicated key name")
	})
}

func TestDriver_SendTx(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fc, d := newFixture(t, "chain-a")

	sender, err := d.AddWallet(ctx, "sender", testMnemonic)
	require.NoError(t, err)
	receiver, err := d.AddWallet(ctx, "receiver", "")
	require.NoError(t, err)

	stake := gchain.BaseDenom("stake")
	fc.Mint(sender.Address, stake, math.NewInt(1000))

	msg := mustMsg(t)

	t.Run("bank send", func(t *testing.T) {
		require.NoError(t, d.SendTx(ctx, sender, []*anypb.Any{
			msg(gchaintest.BankSendMsg(sender.Address, receiver.Address, 100, stake)),
		}))

		bal, err := d.QueryBalance(ctx, receiver.Address, stake)
		require.NoError(t, err)
		require.Equal(t, uint64(100), bal)

		bal, err = d.QueryBalance(ctx, sender.Address, stake)
		require.NoError(t, err)
		require.Equal(t, uint64(900), bal)
	})

	t.Run("identical messages are distinct transactions", func(t *testing.T) {
		for range 2 {
			require.NoError(t, d.SendTx(ctx, sender, []*anypb.Any{
				msg(gchaintest.BankSendMsg(sender.Address, receiver.Address, 1, stake)),
			}))
		}

		bal, err := d.QueryBalance(ctx, receiver.Address, stake)
		require.NoError(t, err)
		require.Equal(t, uint64(102), bal)
	})

	t.Run("rejected transaction", func(t *testing.T) {
		err := d.SendTx(ctx, sender, []*anypb.Any{
			msg(gchaintest.BankSendMsg(sender.Address, receiver.Address, 1_000_000, stake)),
		})

		var tfe gchaincli.TxFailedError
		require.ErrorAs(t, err, &tfe)
		require.Equal(t, gchaintest.CodeInsufficientFunds, tfe.Code)
		require.Equal(t, gchain.ChainID("chain-a"), tfe.ChainID)
		require.NotEmpty(t, tfe.TxHash)
		require.Contains(t, tfe.RawLog, "insufficient funds")

		// Nothing moved.
		bal, err := d.QueryBalance(ctx, receiver.Address, stake)
		require.NoError(t, err)
		require.Equal(t, uint64(102), bal)
	})

	t.Run("wrong signer", func(t *testing.T) {
		err := d.SendTx(ctx, receiver, []*anypb.Any{
			msg(gchaintest.BankSendMsg(sender.Address, receiver.Address, 1, stake)),
		})

		var tfe gchaincli.TxFailedError
		require.ErrorAs(t, err, &tfe)
		require.Equal(t, gchaintest.CodeUnauthorized, tfe.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		err := d.SendTx(ctx, gchain.Wallet{ID: "nobody"}, []*anypb.Any{
			msg(gchaintest.BankSendMsg(sender.Address, receiver.Address, 1, stake)),
		})

		var ce gchaincli.CommandError
		require.ErrorAs(t, err, &ce)
		require.Contains(t, ce.Stderr, "key not found")
	})

	t.Run("no messages", func(t *testing.T) {
		require.Error(t, d.SendTx(ctx, sender, nil))
	})
}

func TestDriver_SendTx_maxMsgNum(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := gtest.NewLogger(t)
	fc := gchaintest.NewFakeChain(log, gchaintest.FakeChainConfig{ChainID: "chain-a"})

	cfg := fc.DriverConfig()
	cfg.TxConfig.MaxMsgNum = 2
	d, err := gchaincli.NewDriver(log, cfg)
	require.NoError(t, err)

	sender, err := d.AddWallet(ctx, "sender", testMnemonic)
	require.NoError(t, err)
	receiver := gchain.WalletAddress("cosmos1receiver")

	stake := gchain.BaseDenom("stake")
	fc.Mint(sender.Address, stake, math.NewInt(1000))

	msg := mustMsg(t)
	msgs := make([]*anypb.Any, 5)
	for i := range msgs {
		msgs[i] = msg(gchaintest.BankSendMsg(sender.Address, receiver, 10, stake))
	}
	require.NoError(t, d.SendTx(ctx, sender, msgs))

	doc, err := gchaincli.QueryRecipientTransactions(
		ctx, d.Runner(), d.ChainID(), d.CommandPath(), d.RPCListenAddress(), receiver,
	)
	require.NoError(t, err)

	m := doc.(map[string]any)
	require.Len(t, m["txs"], 3)

	bal, err := d.QueryBalance(ctx, receiver, stake)
	require.NoError(t, err)
	require.Equal(t, uint64(50), bal)
}

func TestDriver_QueryBalance(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fc, d := newFixture(t, "chain-a")
	addr := fc.AddressFor(testMnemonic)

	t.Run("unfunded", func(t *testing.T) {
		bal, err := d.QueryBalance(ctx, addr, gchain.BaseDenom("stake"))
		require.NoError(t, err)
		require.Zero(t, bal)
	})

	t.Run("ibc denom", func(t *testing.T) {
		ibc := gchain.DeriveIBCDenom("transfer", "channel-0", gchain.BaseDenom("uatom"))
		fc.Mint(addr, ibc, math.NewInt(42))

		bal, err := d.QueryBalance(ctx, addr, ibc)
		require.NoError(t, err)
		require.Equal(t, uint64(42), bal)
	})

	t.Run("overflow", func(t *testing.T) {
		big := gchain.BaseDenom("big")
		huge, ok := math.NewIntFromString("18446744073709551616") // 2^64
		require.True(t, ok)
		fc.Mint(addr, big, huge)

		_, err := d.QueryBalance(ctx, addr, big)

		var oe gchaincli.AmountOverflowError
		require.ErrorAs(t, err, &oe)
		require.Equal(t, "18446744073709551616", oe.Amount)
		require.Equal(t, big, oe.Denom)
	})

	t.Run("unreachable node", func(t *testing.T) {
		cfg := fc.DriverConfig()
		cfg.RPCListenAddress = "tcp://elsewhere:26657"
		other, err := gchaincli.NewDriver(gtest.NewLogger(t), cfg)
		require.NoError(t, err)

		_, err = other.QueryBalance(ctx, addr, gchain.BaseDenom("stake"))

		var ce gchaincli.CommandError
		require.ErrorAs(t, err, &ce)
		require.Contains(t, ce.Stderr, "connection refused")
	})
}

func TestDriver_AssertEventualWalletAmount(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := gtest.NewLogger(t)
	fc := gchaintest.NewFakeChain(log, gchaintest.FakeChainConfig{ChainID: "chain-a"})
	stake := gchain.BaseDenom("stake")
	addr := fc.AddressFor(testMnemonic)

	newDriver := func(attempts int) *gchaincli.Driver {
		cfg := fc.DriverConfig()
		cfg.WaitAttempts = attempts
		cfg.WaitInterval = gtest.ScaleMs(5).Duration()
		d, err := gchaincli.NewDriver(log, cfg)
		require.NoError(t, err)
		return d
	}

	t.Run("already reached", func(t *testing.T) {
		fc.Mint(addr, stake, math.NewInt(7))
		require.NoError(t, newDriver(1).AssertEventualWalletAmount(ctx, addr, 7, stake))
	})

	t.Run("gives up", func(t *testing.T) {
		err := newDriver(3).AssertEventualWalletAmount(ctx, addr, 8, stake)

		var ee gchaincli.EventualAmountError
		require.ErrorAs(t, err, &ee)
		require.Equal(t, 3, ee.Attempts)
		require.True(t, ee.LastOK)
		require.Equal(t, uint64(7), ee.Last)
		require.Equal(t, uint64(8), ee.Want)
		require.NoError(t, ee.Err)
	})

	t.Run("canceled", func(t *testing.T) {
		cctx, ccancel := context.WithCancel(ctx)
		ccancel()

		err := newDriver(100).AssertEventualWalletAmount(cctx, addr, 8, stake)
		require.ErrorIs(t, err, context.Canceled)

		var ee gchaincli.EventualAmountError
		require.ErrorAs(t, err, &ee)
		require.Equal(t, 1, ee.Attempts)
	})

	t.Run("query errors are reported", func(t *testing.T) {
		cfg := fc.DriverConfig()
		cfg.WaitAttempts = 2
		cfg.WaitInterval = gtest.ScaleMs(1).Duration()
		cfg.CommandPath = "not-the-fake"
		d, err := gchaincli.NewDriver(log, cfg)
		require.NoError(t, err)

		err = d.AssertEventualWalletAmount(ctx, addr, 8, stake)

		var ee gchaincli.EventualAmountError
		require.ErrorAs(t, err, &ee)
		require.False(t, ee.LastOK)

		var ce gchaincli.CommandError
		require.True(t, errors.As(err, &ce))
	})
}

func TestQueryRecipientTransactions_output(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	query := func(out string) (any, error) {
		runner := gchain.CommandRunnerFunc(func(context.Context, io.Reader, string, ...string) ([]byte, error) {
			return []byte(out), nil
		})
		return gchaincli.QueryRecipientTransactions(
			ctx, runner, "chain-a", "chaind", "tcp://chain-a:26657", "cosmos1user2",
		)
	}

	t.Run("single document", func(t *testing.T) {
		doc, err := query(`{"txs":[]}` + "\n")
		require.NoError(t, err)
		require.Equal(t, map[string]any{"txs": []any{}}, doc)
	})

	for name, out := range map[string]string{
		"trailing text":     `{"txs":[]} this is not json`,
		"second document":   `{"txs":[]}{"txs":[]}`,
		"truncated":         `{"txs":[`,
		"empty":             ``,
		"log line appended": `{"txs":[]}` + "\nI[2025-01-01] done\n",
	} {
		t.Run(name, func(t *testing.T) {
			doc, err := query(out)
			require.Error(t, err)
			require.Nil(t, doc)
		})
	}
}

func TestExecRunner(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("stdout", func(t *testing.T) {
		out, err := gchaincli.ExecRunner{}.RunCommand(ctx, nil, "sh", "-c", "echo hello")
		require.NoError(t, err)
		require.Equal(t, "hello\n", string(out))
	})

	t.Run("env", func(t *testing.T) {
		r := gchaincli.ExecRunner{Env: []string{"GIBCTEST_GREETING=hi"}}
		out, err := r.RunCommand(ctx, nil, "sh", "-c", "echo $GIBCTEST_GREETING")
		require.NoError(t, err)
		require.Equal(t, "hi\n", string(out))
	})

	t.Run("failure", func(t *testing.T) {
		_, err := gchaincli.ExecRunner{}.RunCommand(ctx, nil, "sh", "-c", "echo oops >&2; exit 3")

		var ce gchaincli.CommandError
		require.ErrorAs(t, err, &ce)
		require.Equal(t, "sh", ce.Path)
		require.Equal(t, "oops", ce.Stderr)
		require.ErrorContains(t, err, "exit status 3")
	})

	t.Run("missing binary", func(t *testing.T) {
		_, err := gchaincli.ExecRunner{}.RunCommand(ctx, nil, "/nonexistent/gibctest-chaind")

		var ce gchaincli.CommandError
		require.ErrorAs(t, err, &ce)
	})
}
