// Package gchain holds the untagged domain types of the integration test harness
// (chain IDs, wallets, denominations, transaction configuration)
// and the [Driver] contract for operating on one running chain.
//
// Test code rarely uses a Driver directly.
// Instead it tags each driver with a per-chain marker
// and goes through the gchaintag package,
// so that values from different chains cannot be mixed up.
package gchain
