package gbinary

import (
	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gchain/gchaintag"
	"github.com/gordian-engine/gibctest/gtag"
)

// Wallets are the wallets a test setup funds on one chain.
type Wallets[Chain any] struct {
	Validator gtag.Mono[Chain, gchain.Wallet]
	User1     gtag.Mono[Chain, gchain.Wallet]
	User2     gtag.Mono[Chain, gchain.Wallet]
}

// Node is one running chain of a binary setup.
type Node[Chain any] struct {
	Driver gchaintag.TaggedDriver[Chain]

	// Native denomination that funded wallets hold.
	Denom gtag.Mono[Chain, gchain.Denom]

	Wallets Wallets[Chain]
}

// NewNode tags the driver, denomination, and wallets of a chain with the Chain marker.
func NewNode[Chain any](d gchain.Driver, denom gchain.Denom, validator, user1, user2 gchain.Wallet) Node[Chain] {
	return Node[Chain]{
		Driver: gchaintag.TagDriver[Chain](d),
		Denom:  gtag.Tag[Chain](denom),
		Wallets: Wallets[Chain]{
			Validator: gtag.Tag[Chain](validator),
			User1:     gtag.Tag[Chain](user1),
			User2:     gtag.Tag[Chain](user2),
		},
	}
}

// ConnectedChains is a pair of chains with an IBC connection between them.
type ConnectedChains[A, B any] struct {
	NodeA Node[A]
	NodeB Node[B]
}

// Flip returns the same chains with the roles of A and B swapped.
func (c ConnectedChains[A, B]) Flip() ConnectedChains[B, A] {
	return ConnectedChains[B, A]{
		NodeA: c.NodeB,
		NodeB: c.NodeA,
	}
}
