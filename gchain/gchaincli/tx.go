package gchaincli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gordian-engine/gibctest/gchain"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/anypb"
)

// UnsignedTx is the JSON shape of a transaction written for "tx sign",
// matching the SDK's JSON encoding of cosmos.tx.v1beta1.Tx.
type UnsignedTx struct {
	Body       TxBody            `json:"body"`
	AuthInfo   AuthInfo          `json:"auth_info"`
	Signatures []json.RawMessage `json:"signatures"`
}

type TxBody struct {
	// Each message is the protojson encoding of an Any.
	Messages []json.RawMessage `json:"messages"`

	Memo          string `json:"memo"`
	TimeoutHeight string `json:"timeout_height"`

	ExtensionOptions            []json.RawMessage `json:"extension_options"`
	NonCriticalExtensionOptions []json.RawMessage `json:"non_critical_extension_options"`
}

type AuthInfo struct {
	SignerInfos []json.RawMessage `json:"signer_infos"`
	Fee         Fee               `json:"fee"`
}

type Fee struct {
	Amount   []CoinJSON `json:"amount"`
	GasLimit string     `json:"gas_limit"`
	Payer    string     `json:"payer"`
	Granter  string     `json:"granter"`
}

type CoinJSON struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// BroadcastResult is the subset of the "tx broadcast --output json" output we consume.
type BroadcastResult struct {
	Height    string `json:"height"`
	TxHash    string `json:"txhash"`
	Code      uint32 `json:"code"`
	Codespace string `json:"codespace"`
	RawLog    string `json:"raw_log"`
}

// SendTx signs msgs with wallet and broadcasts them.
//
// If the configured MaxMsgNum is smaller than len(msgs),
// the messages are split across multiple transactions, sent in order;
// the first failing transaction stops the sequence.
func (d *Driver) SendTx(ctx context.Context, wallet gchain.Wallet, msgs []*anypb.Any) error {
	if len(msgs) == 0 {
		return errors.New("refusing to send transaction with no messages")
	}

	batch := len(msgs)
	if d.txCfg.MaxMsgNum > 0 && d.txCfg.MaxMsgNum < batch {
		batch = d.txCfg.MaxMsgNum
	}

	dir, err := os.MkdirTemp("", "gchaincli-tx-*")
	if err != nil {
		return fmt.Errorf("failed to create transaction directory: %w", err)
	}
	defer os.RemoveAll(dir)

	for i := 0; i < len(msgs); i += batch {
		end := min(i+batch, len(msgs))
		if err := d.sendBatch(ctx, dir, i, wallet, msgs[i:end]); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) sendBatch(ctx context.Context, dir string, idx int, wallet gchain.Wallet, msgs []*anypb.Any) error {
	tx, err := d.unsignedTx(msgs)
	if err != nil {
		return err
	}

	j, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to encode unsigned transaction: %w", err)
	}

	unsignedPath := filepath.Join(dir, fmt.Sprintf("unsigned_%d.json", idx))
	signedPath := filepath.Join(dir, fmt.Sprintf("signed_%d.json", idx))

	if err := os.WriteFile(unsignedPath, j, 0o600); err != nil {
		return fmt.Errorf("failed to write unsigned transaction: %w", err)
	}

	signArgs := []string{
		"tx", "sign", unsignedPath,
		"--from", string(wallet.ID),
		"--chain-id", string(d.txCfg.ChainID),
		"--node", d.rpcAddr,
		"--output-document", signedPath,
	}
	signArgs = append(signArgs, d.keyringArgs()...)
	if _, err := d.run(ctx, nil, signArgs...); err != nil {
		return fmt.Errorf("failed to sign transaction from %s: %w", wallet.ID, err)
	}

	broadcastArgs := []string{
		"tx", "broadcast", signedPath,
		"--node", d.rpcAddr,
		"--broadcast-mode", "sync",
		"--output", "json",
	}
	if d.homeDir != "" {
		broadcastArgs = append(broadcastArgs, "--home", d.homeDir)
	}
	out, err := d.run(ctx, nil, broadcastArgs...)
	if err != nil {
		return fmt.Errorf("failed to broadcast transaction from %s: %w", wallet.ID, err)
	}

	var res BroadcastResult
	if err := json.Unmarshal(out, &res); err != nil {
		return fmt.Errorf("failed to decode broadcast result: %w", err)
	}

	if res.Code != 0 {
		return TxFailedError{
			ChainID: d.txCfg.ChainID,

			TxHash:    res.TxHash,
			Code:      res.Code,
			Codespace: res.Codespace,
			RawLog:    res.RawLog,
		}
	}

	d.log.Debug("Broadcast transaction", "txhash", res.TxHash, "n_msgs", len(msgs), "from", wallet.Address)
	return nil
}

func (d *Driver) unsignedTx(msgs []*anypb.Any) (UnsignedTx, error) {
	encoded := make([]json.RawMessage, len(msgs))
	for i, m := range msgs {
		b, err := protojson.Marshal(m)
		if err != nil {
			return UnsignedTx{}, fmt.Errorf("failed to encode message %d (%s): %w", i, m.GetTypeUrl(), err)
		}
		encoded[i] = b
	}

	fee := d.txCfg.Gas.Fee
	feeAmount := "0"
	if !fee.Amount.IsNil() {
		feeAmount = fee.Amount.String()
	}

	return UnsignedTx{
		Body: TxBody{
			Messages:      encoded,
			Memo:          d.txCfg.Memo,
			TimeoutHeight: "0",

			ExtensionOptions:            []json.RawMessage{},
			NonCriticalExtensionOptions: []json.RawMessage{},
		},
		AuthInfo: AuthInfo{
			SignerInfos: []json.RawMessage{},
			Fee: Fee{
				Amount:   []CoinJSON{{Denom: fee.Denom, Amount: feeAmount}},
				GasLimit: strconv.FormatUint(d.txCfg.Gas.GasLimit, 10),
			},
		},
		Signatures: []json.RawMessage{},
	}, nil
}
