package gbinary

import (
	"context"
	"fmt"

	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gchain/gchaintag"
	"github.com/gordian-engine/gibctest/gtag"
	"google.golang.org/protobuf/types/known/anypb"
)

// TransferMsgBuilder builds a token transfer message
// sent over the channel end (sourcePort, sourceChannel).
type TransferMsgBuilder func(
	sourcePort gchain.PortID,
	sourceChannel gchain.ChannelID,
	sender, receiver gchain.WalletAddress,
	amount uint64,
	denom gchain.Denom,
) (*anypb.Any, error)

// Transfer sends amount of denom from sender on A
// to receiver on B over the A end of ch.
func Transfer[A, B any](
	ctx context.Context,
	driver gchaintag.TaggedDriver[A],
	ch ConnectedChannel[A, B],
	build TransferMsgBuilder,
	sender gtag.Mono[A, gchain.Wallet],
	receiver gtag.Mono[B, gchain.WalletAddress],
	amount uint64,
	denom gtag.Mono[A, gchain.Denom],
) error {
	msg, err := build(
		ch.PortA.Value(), ch.ChannelA.Value(),
		sender.Value().Address, receiver.Value(),
		amount, denom.Value(),
	)
	if err != nil {
		return fmt.Errorf("failed to build transfer of %d%s: %w", amount, denom, err)
	}

	return driver.SendTx(ctx, sender, []*anypb.Any{msg})
}
