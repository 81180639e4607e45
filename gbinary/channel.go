package gbinary

import (
	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gtag"
)

// ConnectedChannel is an open channel between chains A and B.
// Each end is identified by the port and channel IDs its own chain assigned,
// tagged with the owning chain first.
type ConnectedChannel[A, B any] struct {
	PortA    gtag.Dual[A, B, gchain.PortID]
	ChannelA gtag.Dual[A, B, gchain.ChannelID]

	PortB    gtag.Dual[B, A, gchain.PortID]
	ChannelB gtag.Dual[B, A, gchain.ChannelID]
}

// NewConnectedChannel tags the identifiers of both ends of a channel.
func NewConnectedChannel[A, B any](
	portA gchain.PortID, channelA gchain.ChannelID,
	portB gchain.PortID, channelB gchain.ChannelID,
) ConnectedChannel[A, B] {
	return ConnectedChannel[A, B]{
		PortA:    gtag.TagDual[A, B](portA),
		ChannelA: gtag.TagDual[A, B](channelA),
		PortB:    gtag.TagDual[B, A](portB),
		ChannelB: gtag.TagDual[B, A](channelB),
	}
}

// Flip returns the same channel seen from B.
func (c ConnectedChannel[A, B]) Flip() ConnectedChannel[B, A] {
	return ConnectedChannel[B, A]{
		PortA:    c.PortB,
		ChannelA: c.ChannelB,
		PortB:    c.PortA,
		ChannelB: c.ChannelA,
	}
}

// DeriveIBCDenom returns the denomination on B of tokens of denom from A
// that arrived through the B end of a channel, identified by port and channel.
func DeriveIBCDenom[A, B any](
	port gtag.Dual[B, A, gchain.PortID],
	channel gtag.Dual[B, A, gchain.ChannelID],
	denom gtag.Mono[A, gchain.Denom],
) gtag.Mono[B, gchain.Denom] {
	return gtag.Tag[B](gchain.DeriveIBCDenom(port.Value(), channel.Value(), denom.Value()))
}

// ReceivedDenom is [DeriveIBCDenom] for the B end of ch.
func ReceivedDenom[A, B any](ch ConnectedChannel[A, B], denom gtag.Mono[A, gchain.Denom]) gtag.Mono[B, gchain.Denom] {
	return DeriveIBCDenom(ch.PortB, ch.ChannelB, denom)
}
