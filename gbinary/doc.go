// Package gbinary describes a pair of chains connected over IBC,
// with every per-chain value tagged by the chain it belongs to.
//
// Test code written against ConnectedChains[A, B] can be run in the other direction
// by flipping the chains, and the type checker rejects any place
// where a value of one chain is used on the other.
package gbinary

// ChainA and ChainB are the conventional markers for the two chains of a binary setup.
type (
	ChainA struct{}
	ChainB struct{}
)
