// Package gtag (Gordian tag) associates values with a compile-time marker type
// identifying which running instance the value belongs to.
//
// A multi-chain integration test typically holds two or more drivers,
// wallets, and denominations that all share the same Go types.
// Wrapping each of them in a [Mono] parameterized by a per-instance marker,
// such as:
//
//	type ChainA struct{}
//	type ChainB struct{}
//
// means that a gtag.Mono[ChainA, gchain.WalletAddress]
// cannot be passed where a gtag.Mono[ChainB, gchain.WalletAddress] is expected.
// The check happens entirely in the type checker;
// the marker occupies no memory and nothing is validated at runtime.
//
// Values are tagged with [Tag], transformed with [Map] (which cannot change the marker),
// and unwrapped with [Mono.Value] when they need to be handed to untagged code.
// Re-tagging a value under a different marker requires unwrapping it first,
// so it is always visible at the call site.
//
// [Dual] is the two-marker counterpart,
// for values that relate one instance to another,
// such as a channel on chain A whose counterparty is chain B.
package gtag
