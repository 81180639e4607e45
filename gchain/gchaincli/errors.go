package gchaincli

import (
	"fmt"
	"strings"

	"github.com/gordian-engine/gibctest/gchain"
)

// CommandError is returned by [ExecRunner] when the chain binary
// cannot be started or exits unsuccessfully.
type CommandError struct {
	Path string
	Args []string

	// Captured standard error, trimmed of surrounding whitespace.
	Stderr string

	Err error
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("command %s %s failed: %v", e.Path, strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += "; stderr: " + e.Stderr
	}
	return msg
}

func (e CommandError) Unwrap() error {
	return e.Err
}

// TxFailedError is returned by [*Driver.SendTx] when the chain
// accepted the broadcast request but rejected the transaction.
type TxFailedError struct {
	ChainID gchain.ChainID

	TxHash    string
	Code      uint32
	Codespace string
	RawLog    string
}

func (e TxFailedError) Error() string {
	return fmt.Sprintf(
		"transaction %s rejected by %s with code %d (codespace %q): %s",
		e.TxHash, e.ChainID, e.Code, e.Codespace, e.RawLog,
	)
}

// AmountOverflowError is returned by [*Driver.QueryBalance]
// when the chain reports a balance that does not fit in a uint64.
type AmountOverflowError struct {
	Address gchain.WalletAddress
	Denom   gchain.Denom
	Amount  string
}

func (e AmountOverflowError) Error() string {
	return fmt.Sprintf("balance of %s in %s exceeds uint64: %s", e.Address, e.Denom, e.Amount)
}

// EventualAmountError is returned by [*Driver.AssertEventualWalletAmount]
// when the balance did not reach the target in the allotted attempts,
// or when the context was canceled first.
type EventualAmountError struct {
	Address gchain.WalletAddress
	Denom   gchain.Denom

	Want uint64

	// Last successfully queried balance.
	// Only meaningful if LastOK is set.
	Last   uint64
	LastOK bool

	Attempts int

	// The last query error, or the context's cause on cancellation.
	// Nil if every query succeeded but returned the wrong amount.
	Err error
}

func (e EventualAmountError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "balance of %s in %s did not reach %d after %d attempt(s)", e.Address, e.Denom, e.Want, e.Attempts)
	if e.LastOK {
		fmt.Fprintf(&b, "; last balance: %d", e.Last)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, "; last error: %v", e.Err)
	}
	return b.String()
}

func (e EventualAmountError) Unwrap() error {
	return e.Err
}
