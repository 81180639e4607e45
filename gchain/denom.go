package gchain

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Denom is a token denomination.
//
// A base denomination has only Base set.
// A denomination that arrived over IBC also records the trace Path
// (e.g. "transfer/channel-0") and the Hash form ("ibc/<HEX>")
// that the chain uses in balances and messages.
type Denom struct {
	Path string
	Base string
	Hash string
}

// BaseDenom returns a native denomination.
func BaseDenom(base string) Denom {
	return Denom{Base: base}
}

// IBCDenom returns a denomination that arrived over IBC.
func IBCDenom(path, base, hash string) Denom {
	return Denom{Path: path, Base: base, Hash: hash}
}

// IsIBC reports whether d has an IBC trace.
func (d Denom) IsIBC() bool {
	return d.Path != ""
}

// String returns the denomination as the chain refers to it:
// the hash form for IBC denominations, the base otherwise.
func (d Denom) String() string {
	if d.IsIBC() {
		return d.Hash
	}
	return d.Base
}

// FullPath returns the unhashed trace, "path/base", or the base for native denominations.
func (d Denom) FullPath() string {
	if d.IsIBC() {
		return d.Path + "/" + d.Base
	}
	return d.Base
}

// DeriveIBCDenom returns the denomination that tokens of d have
// on the chain that received them over the given port and channel.
// The port and channel are those of the receiving end.
//
// The hash is computed as in ICS-20:
// "ibc/" followed by the upper case hex SHA-256 of the full trace.
func DeriveIBCDenom(port PortID, channel ChannelID, d Denom) Denom {
	path := string(port) + "/" + string(channel)
	if d.IsIBC() {
		path += "/" + d.Path
	}

	sum := sha256.Sum256([]byte(path + "/" + d.Base))

	return IBCDenom(path, d.Base, "ibc/"+strings.ToUpper(fmt.Sprintf("%x", sum)))
}
