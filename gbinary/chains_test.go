package gbinary_test

import (
	"context"
	"testing"

	"cosmossdk.io/math"
	"github.com/gordian-engine/gibctest/gbinary"
	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gchain/gchaincli"
	"github.com/gordian-engine/gibctest/gchain/gchaintag"
	"github.com/gordian-engine/gibctest/gchain/gchaintest"
	"github.com/gordian-engine/gibctest/gtag"
	"github.com/gordian-engine/gibctest/internal/gtest"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	Chains  gbinary.ConnectedChains[gbinary.ChainA, gbinary.ChainB]
	Channel gbinary.ConnectedChannel[gbinary.ChainA, gbinary.ChainB]

	FakeA, FakeB *gchaintest.FakeChain
}

const initialFunds = 1000

func newFixture(ctx context.Context, t *testing.T) fixture {
	t.Helper()

	log := gtest.NewLogger(t)

	fakeA := gchaintest.NewFakeChain(log, gchaintest.FakeChainConfig{
		ChainID:       "chain-a",
		AddressPrefix: "chaina",
		RelayDelay:    gtest.ScaleMs(20).Duration(),
	})
	fakeB := gchaintest.NewFakeChain(log, gchaintest.FakeChainConfig{
		ChainID:       "chain-b",
		AddressPrefix: "chainb",
		RelayDelay:    gtest.ScaleMs(20).Duration(),
	})
	fakeA.Connect("transfer", "channel-0", fakeB, "transfer", "channel-1")
	t.Cleanup(fakeA.WaitRelays)
	t.Cleanup(fakeB.WaitRelays)

	nodeA := newNode[gbinary.ChainA](ctx, t, fakeA, "uatom")
	nodeB := newNode[gbinary.ChainB](ctx, t, fakeB, "ustake")

	return fixture{
		Chains: gbinary.ConnectedChains[gbinary.ChainA, gbinary.ChainB]{
			NodeA: nodeA,
			NodeB: nodeB,
		},
		Channel: gbinary.NewConnectedChannel[gbinary.ChainA, gbinary.ChainB](
			"transfer", "channel-0",
			"transfer", "channel-1",
		),

		FakeA: fakeA,
		FakeB: fakeB,
	}
}

func newNode[Chain any](ctx context.Context, t *testing.T, fc *gchaintest.FakeChain, denom string) gbinary.Node[Chain] {
	t.Helper()

	d, err := gchaincli.NewDriver(gtest.NewLogger(t), fc.DriverConfig())
	require.NoError(t, err)

	var ws [3]gchain.Wallet
	for i, id := range []gchain.WalletID{"validator", "user1", "user2"} {
		ws[i], err = d.AddWallet(ctx, id, "")
		require.NoError(t, err)
		fc.Mint(ws[i].Address, gchain.BaseDenom(denom), math.NewInt(initialFunds))
	}

	return gbinary.NewNode[Chain](d, gchain.BaseDenom(denom), ws[0], ws[1], ws[2])
}

// assertTransfer sends tokens from user1 on A to user2 on B
// and checks both sides, for either orientation of the chains.
func assertTransfer[A, B any](
	ctx context.Context,
	t *testing.T,
	chains gbinary.ConnectedChains[A, B],
	ch gbinary.ConnectedChannel[A, B],
	amount uint64,
) gtag.Mono[B, gchain.Denom] {
	t.Helper()

	sender := chains.NodeA.Wallets.User1
	receiver := gchaintag.WalletAddressOf(chains.NodeB.Wallets.User2)

	before, err := chains.NodeB.Driver.QueryBalance(ctx, receiver, gbinary.ReceivedDenom(ch, chains.NodeA.Denom))
	require.NoError(t, err)

	require.NoError(t, gbinary.Transfer(
		ctx, chains.NodeA.Driver, ch, gchaintest.TransferMsg,
		sender, receiver, amount, chains.NodeA.Denom,
	))

	denomB := gbinary.ReceivedDenom(ch, chains.NodeA.Denom)
	require.NoError(t, chains.NodeB.Driver.AssertEventualWalletAmount(ctx, receiver, before+amount, denomB))

	return denomB
}

func TestTransfer_bothDirections(t *testing.T) {
	t.Parallel()

	t.Run("A to B", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fx := newFixture(ctx, t)
		denomB := assertTransfer(ctx, t, fx.Chains, fx.Channel, 100)

		require.Equal(t, "transfer/channel-1", denomB.Value().Path)
		require.Equal(t, "uatom", denomB.Value().Base)

		bal, err := fx.Chains.NodeA.Driver.QueryBalance(
			ctx, gchaintag.WalletAddressOf(fx.Chains.NodeA.Wallets.User1), fx.Chains.NodeA.Denom,
		)
		require.NoError(t, err)
		require.Equal(t, uint64(initialFunds-100), bal)
	})

	t.Run("B to A", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		fx := newFixture(ctx, t)
		denomA := assertTransfer(ctx, t, fx.Chains.Flip(), fx.Channel.Flip(), 250)

		require.Equal(t, "transfer/channel-0", denomA.Value().Path)
		require.Equal(t, "ustake", denomA.Value().Base)

		require.Equal(
			t,
			math.NewInt(250),
			fx.FakeB.Balance(gchaintest.EscrowAddress("transfer", "channel-1"), gchain.BaseDenom("ustake")),
		)
	})
}

func TestTransfer_roundTrip(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fx := newFixture(ctx, t)
	chains := fx.Chains

	denomB := assertTransfer(ctx, t, chains, fx.Channel, 300)

	// Send the vouchers back from user2 on B to user1 on A.
	returner := chains.NodeB.Wallets.User2
	home := gchaintag.WalletAddressOf(chains.NodeA.Wallets.User1)
	require.NoError(t, gbinary.Transfer(
		ctx, chains.NodeB.Driver, fx.Channel.Flip(), gchaintest.TransferMsg,
		returner, home, 300, denomB,
	))

	// The original denomination comes back, not a voucher of a voucher.
	require.NoError(t, chains.NodeA.Driver.AssertEventualWalletAmount(ctx, home, initialFunds, chains.NodeA.Denom))

	bal, err := chains.NodeB.Driver.QueryBalance(ctx, gchaintag.WalletAddressOf(returner), denomB)
	require.NoError(t, err)
	require.Zero(t, bal)

	fx.FakeA.WaitRelays()
	fx.FakeB.WaitRelays()
	require.True(t, fx.FakeA.Balance(gchaintest.EscrowAddress("transfer", "channel-0"), chains.NodeA.Denom.Value()).IsZero())
}

func TestQueryRecipientTransactions_twoChains(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fx := newFixture(ctx, t)
	chains := fx.Chains

	assertTransfer(ctx, t, chains, fx.Channel, 10)

	recipient := gchaintag.WalletAddressOf(chains.NodeB.Wallets.User2)

	tagged, err := chains.NodeB.Driver.QueryRecipientTransactions(ctx, recipient)
	require.NoError(t, err)

	d := chains.NodeB.Driver.Value()
	direct, err := gchaincli.QueryRecipientTransactions(
		ctx, d.Runner(), d.ChainID(), d.CommandPath(), d.RPCListenAddress(), recipient.Value(),
	)
	require.NoError(t, err)
	require.Equal(t, direct, tagged)

	txs := tagged.(map[string]any)["txs"].([]any)
	require.Len(t, txs, 1)

	// Chain A has no record of the receiver.
	onA, err := gchaincli.QueryRecipientTransactions(
		ctx,
		chains.NodeA.Driver.Value().Runner(),
		chains.NodeA.Driver.ChainID().Value(),
		chains.NodeA.Driver.Value().CommandPath(),
		chains.NodeA.Driver.Value().RPCListenAddress(),
		recipient.Value(),
	)
	require.NoError(t, err)
	require.Empty(t, onA.(map[string]any)["txs"])
}

func TestConnectedChannel_Flip(t *testing.T) {
	t.Parallel()

	ch := gbinary.NewConnectedChannel[gbinary.ChainA, gbinary.ChainB](
		"transfer", "channel-0",
		"transfer", "channel-7",
	)

	flipped := ch.Flip()
	require.Equal(t, gchain.ChannelID("channel-7"), flipped.ChannelA.Value())
	require.Equal(t, gchain.ChannelID("channel-0"), flipped.ChannelB.Value())

	require.Equal(t, ch, flipped.Flip())
}

func TestDeriveIBCDenom(t *testing.T) {
	t.Parallel()

	ch := gbinary.NewConnectedChannel[gbinary.ChainA, gbinary.ChainB](
		"transfer", "channel-3",
		"transfer", "channel-0",
	)
	uatom := gtag.Tag[gbinary.ChainA](gchain.BaseDenom("uatom"))

	got := gbinary.DeriveIBCDenom(ch.PortB, ch.ChannelB, uatom)
	require.Equal(t, gchain.DeriveIBCDenom("transfer", "channel-0", uatom.Value()), got.Value())
	require.Equal(
		t,
		"ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2",
		got.Value().String(),
	)

	require.Equal(t, got, gbinary.ReceivedDenom(ch, uatom))
}
