package gchain

// ChainID identifies a running chain, e.g. "ibc-alpha".
type ChainID string

func (id ChainID) String() string { return string(id) }

// PortID is an IBC port identifier, e.g. "transfer".
type PortID string

func (id PortID) String() string { return string(id) }

// ChannelID is an IBC channel identifier assigned by one chain, e.g. "channel-0".
type ChannelID string

func (id ChannelID) String() string { return string(id) }

// WalletID is the keyring name of a wallet.
type WalletID string

func (id WalletID) String() string { return string(id) }

// WalletAddress is the bech32 account address of a wallet.
type WalletAddress string

func (a WalletAddress) String() string { return string(a) }

// Wallet is a keyring entry on one chain.
type Wallet struct {
	ID      WalletID
	Address WalletAddress

	// Mnemonic used to recover the key into a keyring.
	// Empty when the key was generated by the chain binary and never exported.
	Mnemonic string
}
