package gchain

import (
	"fmt"
	"time"

	"cosmossdk.io/math"
)

// TxConfig holds the parameters a driver uses when submitting transactions to a chain.
type TxConfig struct {
	ChainID ChainID

	// Tendermint RPC address, e.g. "tcp://127.0.0.1:26657".
	RPCAddress string

	// gRPC address, e.g. "127.0.0.1:9090".
	// Optional for CLI drivers.
	GRPCAddress string

	// Upper bound on a single RPC round trip.
	RPCTimeout time.Duration

	Gas GasConfig

	// Maximum number of messages in one transaction.
	// Zero means no limit.
	MaxMsgNum int

	Memo string
}

// GasConfig is the fixed gas limit and fee attached to every transaction.
type GasConfig struct {
	GasLimit uint64
	Fee      Coin
}

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string
	Amount math.Int
}

func (c Coin) String() string {
	if c.Amount.IsNil() {
		return "0" + c.Denom
	}
	return c.Amount.String() + c.Denom
}

// Validate reports obvious misconfiguration.
func (c TxConfig) Validate() error {
	if c.ChainID == "" {
		return fmt.Errorf("tx config: chain ID must not be empty")
	}
	if c.RPCAddress == "" {
		return fmt.Errorf("tx config for %s: RPC address must not be empty", c.ChainID)
	}
	if c.Gas.GasLimit == 0 {
		return fmt.Errorf("tx config for %s: gas limit must be positive", c.ChainID)
	}
	if c.Gas.Fee.Denom == "" {
		return fmt.Errorf("tx config for %s: fee denom must not be empty", c.ChainID)
	}
	if !c.Gas.Fee.Amount.IsNil() && c.Gas.Fee.Amount.IsNegative() {
		return fmt.Errorf("tx config for %s: fee amount must not be negative (got %s)", c.ChainID, c.Gas.Fee.Amount)
	}
	if c.MaxMsgNum < 0 {
		return fmt.Errorf("tx config for %s: max message count must not be negative (got %d)", c.ChainID, c.MaxMsgNum)
	}
	return nil
}
