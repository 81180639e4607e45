package gchaincli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"cosmossdk.io/math"
	"github.com/gordian-engine/gibctest/gchain"
)

// balanceOutput accepts both shapes of "query bank balance --output json":
// newer SDKs nest the coin under "balance", older ones print the coin directly.
type balanceOutput struct {
	Balance *CoinJSON `json:"balance"`

	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func (d *Driver) QueryBalance(ctx context.Context, addr gchain.WalletAddress, denom gchain.Denom) (uint64, error) {
	args := []string{
		"query", "bank", "balance", string(addr), denom.String(),
		"--node", d.rpcAddr,
		"--output", "json",
	}
	if d.homeDir != "" {
		args = append(args, "--home", d.homeDir)
	}

	out, err := d.run(ctx, nil, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to query balance of %s in %s: %w", addr, denom, err)
	}

	var bo balanceOutput
	if err := json.Unmarshal(out, &bo); err != nil {
		return 0, fmt.Errorf("failed to decode balance of %s in %s: %w", addr, denom, err)
	}

	amount := bo.Amount
	if bo.Balance != nil {
		amount = bo.Balance.Amount
	}
	if amount == "" {
		// Accounts with no coins of a denomination report an empty amount on some versions.
		return 0, nil
	}

	n, ok := math.NewIntFromString(amount)
	if !ok {
		return 0, fmt.Errorf("failed to parse balance of %s in %s: invalid amount %q", addr, denom, amount)
	}
	if !n.IsUint64() {
		return 0, AmountOverflowError{Address: addr, Denom: denom, Amount: amount}
	}

	return n.Uint64(), nil
}

// AssertEventualWalletAmount polls the balance of addr in denom
// until it equals target.
// It makes at most the configured number of attempts,
// waiting the configured interval between attempts,
// and stops early if ctx is canceled.
func (d *Driver) AssertEventualWalletAmount(ctx context.Context, addr gchain.WalletAddress, target uint64, denom gchain.Denom) error {
	e := EventualAmountError{
		Address: addr,
		Denom:   denom,
		Want:    target,
	}

	for attempt := 1; attempt <= d.waitAttempts; attempt++ {
		e.Attempts = attempt

		bal, err := d.QueryBalance(ctx, addr, denom)
		if err == nil {
			if bal == target {
				return nil
			}
			e.Last, e.LastOK = bal, true
		}
		e.Err = err

		if attempt == d.waitAttempts {
			break
		}

		select {
		case <-ctx.Done():
			e.Err = context.Cause(ctx)
			return e
		case <-time.After(d.waitInterval):
			// Next attempt.
		}
	}

	d.log.Info(
		"Balance did not reach target",
		"addr", addr, "denom", denom, "want", target, "attempts", e.Attempts, "err", e.Err,
	)
	return e
}

// QueryRecipientTransactions runs the chain binary at commandPath through runner
// to list the transactions on chainID in which recipient received a transfer.
//
// The result is the decoded JSON output of the "query txs" command.
// Numbers are decoded as [json.Number] so that large amounts and heights are not rounded.
func QueryRecipientTransactions(
	ctx context.Context,
	runner gchain.CommandRunner,
	chainID gchain.ChainID,
	commandPath, rpcAddr string,
	recipient gchain.WalletAddress,
) (any, error) {
	out, err := runner.RunCommand(
		ctx, nil, commandPath,
		"query", "txs",
		"--query", "transfer.recipient='"+string(recipient)+"'",
		"--chain-id", string(chainID),
		"--node", rpcAddr,
		"--output", "json",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions received by %s on %s: %w", recipient, chainID, err)
	}

	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode transactions received by %s on %s: %w", recipient, chainID, err)
	}

	// The output must be exactly one document.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf(
			"unexpected data after transactions received by %s on %s (offset %d)",
			recipient, chainID, dec.InputOffset(),
		)
	}

	return doc, nil
}
