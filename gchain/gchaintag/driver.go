// Package gchaintag provides the tagged form of a [gchain.Driver].
//
// A driver tagged with a chain marker, gtag.Mono[Chain, gchain.Driver],
// is extended into a [TaggedDriver], whose methods only accept
// wallets, addresses, and denominations tagged with the same marker.
// Every method unwraps its arguments, calls the underlying driver,
// and re-tags instance-scoped results;
// errors from the driver are returned unchanged.
package gchaintag

import (
	"context"

	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gchain/gchaincli"
	"github.com/gordian-engine/gibctest/gtag"
	"google.golang.org/protobuf/types/known/anypb"
)

// TaggedDriverExt is the set of driver operations
// whose instance-scoped arguments and results carry the Chain marker.
type TaggedDriverExt[Chain any] interface {
	ChainID() gtag.Mono[Chain, gchain.ChainID]

	TxConfig() gtag.Mono[Chain, *gchain.TxConfig]

	// SendTx is the tagged version of [gchain.Driver.SendTx].
	// Messages are not tagged;
	// any addresses they contain are the caller's responsibility.
	SendTx(ctx context.Context, wallet gtag.Mono[Chain, gchain.Wallet], msgs []*anypb.Any) error

	// QueryBalance is the tagged version of [gchain.Driver.QueryBalance].
	//
	// Query the balance of a wallet that belongs to Chain
	// in a denomination that belongs to Chain.
	QueryBalance(
		ctx context.Context,
		addr gtag.Mono[Chain, gchain.WalletAddress],
		denom gtag.Mono[Chain, gchain.Denom],
	) (uint64, error)

	// AssertEventualWalletAmount is the tagged version of
	// [gchain.Driver.AssertEventualWalletAmount].
	//
	// Assert that a wallet that belongs to Chain reaches the target amount
	// in a denomination that belongs to Chain.
	AssertEventualWalletAmount(
		ctx context.Context,
		addr gtag.Mono[Chain, gchain.WalletAddress],
		target uint64,
		denom gtag.Mono[Chain, gchain.Denom],
	) error

	// QueryRecipientTransactions is the tagged version of
	// [gchaincli.QueryRecipientTransactions].
	//
	// Query the transactions on Chain in which the recipient,
	// a wallet on Chain, received a token transfer.
	QueryRecipientTransactions(
		ctx context.Context,
		recipient gtag.Mono[Chain, gchain.WalletAddress],
	) (any, error)
}

// TaggedDriver is a driver tagged with the Chain marker.
// It implements [TaggedDriverExt].
//
// The embedded Mono exposes the untagged driver through Value,
// for operations that have no tagged form.
type TaggedDriver[Chain any] struct {
	gtag.Mono[Chain, gchain.Driver]
}

var _ TaggedDriverExt[struct{}] = TaggedDriver[struct{}]{}

// TagDriver tags d with the Chain marker.
func TagDriver[Chain any](d gchain.Driver) TaggedDriver[Chain] {
	return TaggedDriver[Chain]{Mono: gtag.Tag[Chain](d)}
}

// ExtendDriver adds the tagged driver operations to an already tagged driver.
func ExtendDriver[Chain any](d gtag.Mono[Chain, gchain.Driver]) TaggedDriver[Chain] {
	return TaggedDriver[Chain]{Mono: d}
}

func (d TaggedDriver[Chain]) ChainID() gtag.Mono[Chain, gchain.ChainID] {
	return gtag.Map(d.Mono, gchain.Driver.ChainID)
}

func (d TaggedDriver[Chain]) TxConfig() gtag.Mono[Chain, *gchain.TxConfig] {
	return gtag.Map(d.Mono, gchain.Driver.TxConfig)
}

func (d TaggedDriver[Chain]) SendTx(
	ctx context.Context,
	wallet gtag.Mono[Chain, gchain.Wallet],
	msgs []*anypb.Any,
) error {
	return d.Value().SendTx(ctx, wallet.Value(), msgs)
}

func (d TaggedDriver[Chain]) QueryBalance(
	ctx context.Context,
	addr gtag.Mono[Chain, gchain.WalletAddress],
	denom gtag.Mono[Chain, gchain.Denom],
) (uint64, error) {
	return d.Value().QueryBalance(ctx, addr.Value(), denom.Value())
}

func (d TaggedDriver[Chain]) AssertEventualWalletAmount(
	ctx context.Context,
	addr gtag.Mono[Chain, gchain.WalletAddress],
	target uint64,
	denom gtag.Mono[Chain, gchain.Denom],
) error {
	return d.Value().AssertEventualWalletAmount(ctx, addr.Value(), target, denom.Value())
}

func (d TaggedDriver[Chain]) QueryRecipientTransactions(
	ctx context.Context,
	recipient gtag.Mono[Chain, gchain.WalletAddress],
) (any, error) {
	driver := d.Value()
	return gchaincli.QueryRecipientTransactions(
		ctx,
		driver.Runner(),
		driver.ChainID(),
		driver.CommandPath(),
		driver.RPCListenAddress(),
		recipient.Value(),
	)
}
