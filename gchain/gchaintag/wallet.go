package gchaintag

import (
	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gtag"
)

// WalletAddressOf projects a tagged wallet onto its address.
func WalletAddressOf[Chain any](w gtag.Mono[Chain, gchain.Wallet]) gtag.Mono[Chain, gchain.WalletAddress] {
	return gtag.Map(w, func(w gchain.Wallet) gchain.WalletAddress { return w.Address })
}

// WalletIDOf projects a tagged wallet onto its keyring ID.
func WalletIDOf[Chain any](w gtag.Mono[Chain, gchain.Wallet]) gtag.Mono[Chain, gchain.WalletID] {
	return gtag.Map(w, func(w gchain.Wallet) gchain.WalletID { return w.ID })
}

// ChainIDOf projects a tagged transaction config onto its chain ID.
func ChainIDOf[Chain any](c gtag.Mono[Chain, *gchain.TxConfig]) gtag.Mono[Chain, gchain.ChainID] {
	return gtag.Map(c, func(c *gchain.TxConfig) gchain.ChainID { return c.ChainID })
}
