package gchaintest

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gchain/gchaincli"
	"github.com/gordian-engine/gibctest/internal/glog"
	"github.com/gordian-engine/gibctest/internal/gtest"
	"github.com/gordian-engine/gibctest/txstore"
	"github.com/gordian-engine/gibctest/txstore/txmemstore"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/anypb"
)

// Result codes reported by FakeChain broadcasts,
// matching the SDK's codes for the same conditions.
const (
	CodeInsufficientFunds uint32 = 5
	CodeUnauthorized      uint32 = 4
	CodeInvalidCoins      uint32 = 10
	CodeTxInMempoolCache  uint32 = 19
	CodeChannelNotFound   uint32 = 1
)

// FakeChainConfig is the configuration for [NewFakeChain].
type FakeChainConfig struct {
	ChainID gchain.ChainID

	// Command path the chain answers to. Defaults to "fakechaind".
	CommandPath string

	// Address expected in --node flags.
	// Defaults to "tcp://<ChainID>:26657".
	RPCAddress string

	// Human readable part of wallet addresses. Defaults to "cosmos".
	AddressPrefix string

	// Delay between a transfer leaving this chain
	// and the tokens being credited on the counterparty.
	RelayDelay time.Duration

	// Transaction index. Defaults to a [txmemstore.Store].
	Store txstore.Store
}

// FakeChain is an in-process stand-in for a chain binary and the chain behind it.
// It implements [gchain.CommandRunner], answering the subset of commands
// that [gchaincli.Driver] issues, so a real Driver can be exercised without processes.
//
// A FakeChain is safe for concurrent use.
type FakeChain struct {
	log *slog.Logger

	chainID       gchain.ChainID
	commandPath   string
	rpcAddr       string
	addressPrefix string
	relayDelay    time.Duration

	store txstore.Store

	mu     sync.Mutex
	height uint64
	keys   map[gchain.WalletID]gchain.WalletAddress
	nKeys  int

	// Next sequence number per signer.
	// Assigned at signing so that repeated identical messages
	// produce distinct transactions.
	sequences map[gchain.WalletAddress]uint64

	balances map[gchain.WalletAddress]map[string]math.Int

	// IBC denominations by hash, for denominations this chain has received.
	traces map[string]gchain.Denom

	channels map[channelEnd]counterpartyEnd

	relays sync.WaitGroup
}

type channelEnd struct {
	Port    gchain.PortID
	Channel gchain.ChannelID
}

type counterpartyEnd struct {
	Chain *FakeChain
	End   channelEnd
}

func NewFakeChain(log *slog.Logger, cfg FakeChainConfig) *FakeChain {
	if cfg.CommandPath == "" {
		cfg.CommandPath = "fakechaind"
	}
	if cfg.RPCAddress == "" {
		cfg.RPCAddress = "tcp://" + string(cfg.ChainID) + ":26657"
	}
	if cfg.AddressPrefix == "" {
		cfg.AddressPrefix = "cosmos"
	}

	log = glog.Chain(log.With("sys", "fakechain"), cfg.ChainID)

	if cfg.Store == nil {
		cfg.Store = txmemstore.NewStore(log.With("sys", "txstore"))
	}

	return &FakeChain{
		log: log,

		chainID:       cfg.ChainID,
		commandPath:   cfg.CommandPath,
		rpcAddr:       cfg.RPCAddress,
		addressPrefix: cfg.AddressPrefix,
		relayDelay:    cfg.RelayDelay,

		store: cfg.Store,

		keys:      make(map[gchain.WalletID]gchain.WalletAddress),
		sequences: make(map[gchain.WalletAddress]uint64),
		balances:  make(map[gchain.WalletAddress]map[string]math.Int),
		traces:    make(map[string]gchain.Denom),
		channels:  make(map[channelEnd]counterpartyEnd),
	}
}

func (c *FakeChain) ChainID() gchain.ChainID {
	return c.chainID
}

func (c *FakeChain) CommandPath() string {
	return c.commandPath
}

func (c *FakeChain) RPCAddress() string {
	return c.rpcAddr
}

// TxConfig returns a valid transaction configuration for this chain,
// with a zero fee in the "stake" denomination.
func (c *FakeChain) TxConfig() gchain.TxConfig {
	return gchain.TxConfig{
		ChainID:    c.chainID,
		RPCAddress: c.rpcAddr,
		Gas: gchain.GasConfig{
			GasLimit: 200_000,
			Fee:      gchain.Coin{Denom: "stake", Amount: math.ZeroInt()},
		},
	}
}

// DriverConfig returns a configuration for a [gchaincli.Driver]
// that runs its commands against c,
// polling balances every 10ms for up to 2s scaled by [gtest.TimeFactor].
func (c *FakeChain) DriverConfig() gchaincli.DriverConfig {
	return gchaincli.DriverConfig{
		CommandPath: c.commandPath,
		HomeDir:     "/fake/" + string(c.chainID),
		TxConfig:    c.TxConfig(),
		Runner:      c,

		WaitAttempts: 200 * int(gtest.TimeFactor),
		WaitInterval: 10 * time.Millisecond,
	}
}

// AddressFor returns the address that recovering mnemonic yields on this chain.
func (c *FakeChain) AddressFor(mnemonic string) gchain.WalletAddress {
	sum := sha256.Sum256([]byte(mnemonic))
	return gchain.WalletAddress(c.addressPrefix + "1" + hex.EncodeToString(sum[:])[:38])
}

// Mint credits amount of denom to addr, outside of any transaction.
func (c *FakeChain) Mint(addr gchain.WalletAddress, denom gchain.Denom, amount math.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if denom.IsIBC() {
		c.traces[denom.Hash] = denom
	}
	c.credit(addr, denom.String(), amount)
}

// Balance returns the balance of addr in denom.
func (c *FakeChain) Balance(addr gchain.WalletAddress, denom gchain.Denom) math.Int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.balance(addr, denom.String())
}

// Connect opens a channel between the end (port, channel) on c
// and the end (cpPort, cpChannel) on counterparty.
// Transfers in either direction are relayed after each sender's RelayDelay.
func (c *FakeChain) Connect(
	port gchain.PortID, channel gchain.ChannelID,
	counterparty *FakeChain,
	cpPort gchain.PortID, cpChannel gchain.ChannelID,
) {
	local := channelEnd{Port: port, Channel: channel}
	remote := channelEnd{Port: cpPort, Channel: cpChannel}

	c.mu.Lock()
	c.channels[local] = counterpartyEnd{Chain: counterparty, End: remote}
	c.mu.Unlock()

	counterparty.mu.Lock()
	counterparty.channels[remote] = counterpartyEnd{Chain: c, End: local}
	counterparty.mu.Unlock()
}

// WaitRelays blocks until every transfer sent from c has been credited on its counterparty.
func (c *FakeChain) WaitRelays() {
	c.relays.Wait()
}

// EscrowAddress is the account holding native tokens sent out over the given channel end.
func EscrowAddress(port gchain.PortID, channel gchain.ChannelID) gchain.WalletAddress {
	return gchain.WalletAddress("escrow/" + string(port) + "/" + string(channel))
}

// RunCommand executes args as the chain binary would.
// The path must be the configured command path.
// Failures are reported as [gchaincli.CommandError], as with a real binary.
func (c *FakeChain) RunCommand(ctx context.Context, stdin io.Reader, path string, args ...string) ([]byte, error) {
	if path != c.commandPath {
		return nil, gchaincli.CommandError{
			Path: path,
			Args: args,
			Err:  fmt.Errorf("%s: executable file not found", path),
		}
	}

	if stdin == nil {
		stdin = strings.NewReader("")
	}

	var stdout, stderr bytes.Buffer
	root := c.newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		return nil, gchaincli.CommandError{
			Path:   path,
			Args:   args,
			Stderr: "Error: " + err.Error(),
			Err:    errors.New("exit status 1"),
		}
	}

	return stdout.Bytes(), nil
}

func (c *FakeChain) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use: c.commandPath,

		SilenceUsage:  true,
		SilenceErrors: true,

		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	root.PersistentFlags().String("home", "", "node home directory")
	root.PersistentFlags().String("output", "text", "output format")

	keysCmd := &cobra.Command{Use: "keys"}
	keysCmd.AddCommand(c.newKeysAddCmd())

	queryCmd := &cobra.Command{Use: "query"}
	bankCmd := &cobra.Command{Use: "bank"}
	bankCmd.AddCommand(c.newBankBalanceCmd())
	queryCmd.AddCommand(bankCmd, c.newQueryTxsCmd())

	txCmd := &cobra.Command{Use: "tx"}
	txCmd.AddCommand(c.newTxSignCmd(), c.newTxBroadcastCmd())

	root.AddCommand(keysCmd, queryCmd, txCmd)
	return root
}

func (c *FakeChain) checkNode(cmd *cobra.Command) error {
	node, _ := cmd.Flags().GetString("node")
	if node != c.rpcAddr {
		return fmt.Errorf("post failed: dial %s: connection refused", node)
	}
	return nil
}

func (c *FakeChain) checkChainID(cmd *cobra.Command) error {
	id, _ := cmd.Flags().GetString("chain-id")
	if id != string(c.chainID) {
		return fmt.Errorf("chain ID mismatch: got %q, want %q", id, c.chainID)
	}
	return nil
}

func requireJSONOutput(cmd *cobra.Command) error {
	if out, _ := cmd.Flags().GetString("output"); out != "json" {
		return fmt.Errorf("unsupported output format %q", out)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	j, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(append(j, '\n'))
	return err
}

func (c *FakeChain) newKeysAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "add NAME",
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJSONOutput(cmd); err != nil {
				return err
			}

			id := gchain.WalletID(args[0])

			var mnemonic string
			generated := false
			if isRecover, _ := cmd.Flags().GetBool("recover"); isRecover {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read mnemonic: %w", err)
				}
				mnemonic = strings.TrimSpace(line)
				if mnemonic == "" {
					return errors.New("invalid mnemonic")
				}
			}

			c.mu.Lock()
			defer c.mu.Unlock()

			if mnemonic == "" {
				c.nKeys++
				mnemonic = fmt.Sprintf("generated %s %s %d", c.chainID, id, c.nKeys)
				generated = true
			}

			addr := c.AddressFor(mnemonic)
			if existing, ok := c.keys[id]; ok && existing != addr {
				return fmt.Errorf("duplicated key name %q", id)
			}
			c.keys[id] = addr

			out := map[string]string{
				"name":    string(id),
				"type":    "local",
				"address": string(addr),
			}
			if generated {
				out["mnemonic"] = mnemonic
			}
			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().Bool("recover", false, "read the mnemonic from standard input")
	cmd.Flags().String("keyring-backend", "os", "keyring backend")
	return cmd
}

func (c *FakeChain) newBankBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "balance ADDRESS DENOM",
		Args: cobra.ExactArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.checkNode(cmd); err != nil {
				return err
			}
			if err := requireJSONOutput(cmd); err != nil {
				return err
			}

			c.mu.Lock()
			bal := c.balance(gchain.WalletAddress(args[0]), args[1])
			c.mu.Unlock()

			return writeJSON(cmd, map[string]gchaincli.CoinJSON{
				"balance": {Denom: args[1], Amount: bal.String()},
			})
		},
	}

	cmd.Flags().String("node", "", "RPC address")
	return cmd
}

type txResponse struct {
	Height string          `json:"height"`
	TxHash string          `json:"txhash"`
	Code   uint32          `json:"code"`
	RawLog string          `json:"raw_log"`
	Tx     json.RawMessage `json:"tx"`
}

type searchTxsResult struct {
	TotalCount string       `json:"total_count"`
	Count      string       `json:"count"`
	PageNumber string       `json:"page_number"`
	PageTotal  string       `json:"page_total"`
	Limit      string       `json:"limit"`
	Txs        []txResponse `json:"txs"`
}

func (c *FakeChain) newQueryTxsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "txs",
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.checkNode(cmd); err != nil {
				return err
			}
			if err := c.checkChainID(cmd); err != nil {
				return err
			}
			if err := requireJSONOutput(cmd); err != nil {
				return err
			}

			q, _ := cmd.Flags().GetString("query")
			recipient, ok := strings.CutPrefix(q, "transfer.recipient=")
			if !ok || len(recipient) < 2 || recipient[0] != '\'' || recipient[len(recipient)-1] != '\'' {
				return fmt.Errorf("unsupported query %q", q)
			}
			recipient = recipient[1 : len(recipient)-1]

			itxs, err := c.store.LoadTxsByRecipient(cmd.Context(), recipient)
			if err != nil {
				return fmt.Errorf("failed to search transactions: %w", err)
			}

			n := strconv.Itoa(len(itxs))
			res := searchTxsResult{
				TotalCount: n,
				Count:      n,
				PageNumber: "1",
				PageTotal:  "1",
				Limit:      "100",
				Txs:        make([]txResponse, len(itxs)),
			}
			for i, itx := range itxs {
				res.Txs[i] = txResponse{
					Height: strconv.FormatUint(itx.Height, 10),
					TxHash: strings.ToUpper(hex.EncodeToString(itx.Hash[:])),
					Code:   itx.Code,
					RawLog: itx.RawLog,
					Tx:     itx.Body,
				}
			}
			return writeJSON(cmd, res)
		},
	}

	cmd.Flags().String("query", "", "event query")
	cmd.Flags().String("node", "", "RPC address")
	cmd.Flags().String("chain-id", "", "chain ID")
	return cmd
}

func (c *FakeChain) newTxSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "sign FILE",
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.checkNode(cmd); err != nil {
				return err
			}
			if err := c.checkChainID(cmd); err != nil {
				return err
			}

			from, _ := cmd.Flags().GetString("from")
			c.mu.Lock()
			addr, ok := c.keys[gchain.WalletID(from)]
			seq := c.sequences[addr]
			if ok {
				c.sequences[addr]++
			}
			c.mu.Unlock()
			if !ok {
				return fmt.Errorf("%s is not a valid name or address: key not found", from)
			}

			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var tx gchaincli.UnsignedTx
			if err := json.Unmarshal(b, &tx); err != nil {
				return fmt.Errorf("failed to parse transaction: %w", err)
			}
			if len(tx.Body.Messages) == 0 {
				return errors.New("transaction has no messages")
			}

			sig, err := json.Marshal("signed-by:" + string(addr))
			if err != nil {
				return err
			}
			info, err := json.Marshal(map[string]string{
				"address":  string(addr),
				"sequence": strconv.FormatUint(seq, 10),
			})
			if err != nil {
				return err
			}
			tx.AuthInfo.SignerInfos = []json.RawMessage{info}
			tx.Signatures = []json.RawMessage{sig}

			signed, err := json.Marshal(tx)
			if err != nil {
				return err
			}

			outPath, _ := cmd.Flags().GetString("output-document")
			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(signed)
				return err
			}
			return os.WriteFile(outPath, signed, 0o600)
		},
	}

	cmd.Flags().String("from", "", "signing key name")
	cmd.Flags().String("chain-id", "", "chain ID")
	cmd.Flags().String("node", "", "RPC address")
	cmd.Flags().String("output-document", "", "signed transaction destination")
	cmd.Flags().String("keyring-backend", "os", "keyring backend")
	return cmd
}

func (c *FakeChain) newTxBroadcastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "broadcast FILE",
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.checkNode(cmd); err != nil {
				return err
			}
			if err := requireJSONOutput(cmd); err != nil {
				return err
			}

			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			res, err := c.broadcast(cmd.Context(), b)
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}

	cmd.Flags().String("node", "", "RPC address")
	cmd.Flags().String("broadcast-mode", "sync", "broadcast mode")
	return cmd
}

// broadcast executes the signed transaction b.
// A transaction rejected by the chain is reported through the result code;
// the returned error is only for malformed input or internal failure.
func (c *FakeChain) broadcast(ctx context.Context, b []byte) (gchaincli.BroadcastResult, error) {
	var tx gchaincli.UnsignedTx
	if err := json.Unmarshal(b, &tx); err != nil {
		return gchaincli.BroadcastResult{}, fmt.Errorf("failed to parse transaction: %w", err)
	}
	if len(tx.Signatures) != 1 {
		return gchaincli.BroadcastResult{}, errors.New("transaction must have exactly one signature")
	}
	var sig string
	if err := json.Unmarshal(tx.Signatures[0], &sig); err != nil {
		return gchaincli.BroadcastResult{}, fmt.Errorf("failed to parse signature: %w", err)
	}
	signer, ok := strings.CutPrefix(sig, "signed-by:")
	if !ok {
		return gchaincli.BroadcastResult{}, errors.New("invalid signature")
	}

	msgs := make([]fakeMsg, len(tx.Body.Messages))
	for i, raw := range tx.Body.Messages {
		var a anypb.Any
		if err := protojson.Unmarshal(raw, &a); err != nil {
			return gchaincli.BroadcastResult{}, fmt.Errorf("failed to decode message %d: %w", i, err)
		}
		m, err := unpackMsg(&a)
		if err != nil {
			return gchaincli.BroadcastResult{}, fmt.Errorf("invalid message %d: %w", i, err)
		}
		msgs[i] = m
	}

	hash := sha256.Sum256(b)
	res := gchaincli.BroadcastResult{
		Height: "0",
		TxHash: strings.ToUpper(hex.EncodeToString(hash[:])),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.LoadTxByHash(ctx, hash[:]); err == nil {
		res.Code, res.Codespace, res.RawLog = CodeTxInMempoolCache, "sdk", "tx already in mempool"
		return res, nil
	} else if !errors.As(err, new(txstore.HashNotFoundError)) {
		return gchaincli.BroadcastResult{}, fmt.Errorf("failed to check for duplicate transaction: %w", err)
	}

	// Execute against a copy of the touched balances,
	// so a failing message leaves the ledger unchanged.
	staged := newLedgerTx(c)
	var (
		recipients []string
		outbound   []pendingRelay
	)
	for i, m := range msgs {
		code, rawLog, relay := c.execMsg(staged, gchain.WalletAddress(signer), m)
		if code != 0 {
			res.Code, res.RawLog = code, fmt.Sprintf("message %d: %s", i, rawLog)
			res.Codespace = "sdk"
			if code == CodeChannelNotFound {
				res.Codespace = "channel"
			}
			c.log.Debug("Rejected transaction", "txhash", res.TxHash, "code", code, "raw_log", res.RawLog)
			return res, nil
		}

		if relay != nil {
			recipients = append(recipients, string(EscrowAddress(m.SourcePort, m.SourceChannel)))
			outbound = append(outbound, *relay)
		} else {
			recipients = append(recipients, string(m.To))
		}
	}

	// The block only exists once the transaction is indexed.
	height := c.height + 1
	if err := c.store.SaveTx(ctx, txstore.IndexedTx{
		Hash:       hash,
		Height:     height,
		Recipients: recipients,
		Body:       b,
	}); err != nil {
		return gchaincli.BroadcastResult{}, fmt.Errorf("failed to index transaction: %w", err)
	}
	c.height = height
	staged.commit()

	for _, r := range outbound {
		c.scheduleRelay(r)
	}

	c.log.Debug("Executed transaction", "txhash", res.TxHash, "height", c.height, "n_msgs", len(msgs))
	return res, nil
}

type pendingRelay struct {
	To       *FakeChain
	ToEnd    channelEnd
	FromEnd  channelEnd
	Receiver gchain.WalletAddress
	Denom    gchain.Denom
	Amount   math.Int
	Unwind   bool
}

// execMsg applies m to the staged ledger.
// It returns a nonzero code and a log on rejection,
// and for transfers, the relay to schedule once the transaction commits.
func (c *FakeChain) execMsg(l *ledgerTx, signer gchain.WalletAddress, m fakeMsg) (uint32, string, *pendingRelay) {
	if m.From != signer {
		return CodeUnauthorized, fmt.Sprintf("signer %s cannot spend from %s", signer, m.From), nil
	}

	amount, ok := math.NewIntFromString(m.Amount)
	if !ok || !amount.IsPositive() {
		return CodeInvalidCoins, fmt.Sprintf("invalid amount %q", m.Amount), nil
	}

	denom, ok := c.lookupDenom(m.Denom)
	if !ok {
		return CodeInvalidCoins, fmt.Sprintf("unknown denomination %s", m.Denom), nil
	}

	var relay *pendingRelay
	if m.Kind == KindTransfer {
		local := channelEnd{Port: m.SourcePort, Channel: m.SourceChannel}
		cp, ok := c.channels[local]
		if !ok {
			return CodeChannelNotFound, fmt.Sprintf("channel %s/%s not found", m.SourcePort, m.SourceChannel), nil
		}
		relay = &pendingRelay{
			To:       cp.Chain,
			ToEnd:    cp.End,
			FromEnd:  local,
			Receiver: m.To,
			Denom:    denom,
			Amount:   amount,
			Unwind:   isReturning(local, denom),
		}
	}

	if !l.debit(m.From, m.Denom, amount) {
		return CodeInsufficientFunds, fmt.Sprintf("insufficient funds: %s%s", amount, m.Denom), nil
	}

	switch {
	case relay == nil:
		l.credit(m.To, m.Denom, amount)
	case !relay.Unwind:
		// Vouchers returning home are burned; native tokens are escrowed.
		l.credit(EscrowAddress(m.SourcePort, m.SourceChannel), m.Denom, amount)
	}

	return 0, "", relay
}

func (c *FakeChain) lookupDenom(s string) (gchain.Denom, bool) {
	if strings.HasPrefix(s, "ibc/") {
		d, ok := c.traces[s]
		return d, ok
	}
	return gchain.BaseDenom(s), true
}

// isReturning reports whether d is a voucher that first arrived through the end local,
// so sending it back over local returns it toward its origin.
func isReturning(local channelEnd, d gchain.Denom) bool {
	prefix := string(local.Port) + "/" + string(local.Channel)
	return d.Path == prefix || strings.HasPrefix(d.Path, prefix+"/")
}

func (c *FakeChain) scheduleRelay(r pendingRelay) {
	c.relays.Add(1)
	time.AfterFunc(c.relayDelay, func() {
		defer c.relays.Done()
		r.To.receive(r)
	})
}

// receive credits an incoming transfer and indexes its receipt.
func (c *FakeChain) receive(r pendingRelay) {
	var denom gchain.Denom
	if r.Unwind {
		denom = unwindDenom(r.FromEnd, r.Denom)
	} else {
		denom = gchain.DeriveIBCDenom(r.ToEnd.Port, r.ToEnd.Channel, r.Denom)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if denom.IsIBC() {
		c.traces[denom.Hash] = denom
	}
	if r.Unwind {
		c.debit(EscrowAddress(r.ToEnd.Port, r.ToEnd.Channel), denom.String(), r.Amount)
	}
	c.credit(r.Receiver, denom.String(), r.Amount)

	c.height++
	body, _ := json.Marshal(map[string]string{
		"type":     "recv_packet",
		"port":     string(r.ToEnd.Port),
		"channel":  string(r.ToEnd.Channel),
		"receiver": string(r.Receiver),
		"denom":    denom.String(),
		"amount":   r.Amount.String(),
		"height":   strconv.FormatUint(c.height, 10),
	})
	if err := c.store.SaveTx(context.Background(), txstore.IndexedTx{
		Hash:       sha256.Sum256(body),
		Height:     c.height,
		Recipients: []string{string(r.Receiver)},
		Body:       body,
	}); err != nil {
		c.log.Warn("Failed to index received transfer", "err", err)
	}

	c.log.Debug("Received transfer", "receiver", r.Receiver, "denom", denom, "amount", r.Amount)
}

// unwindDenom strips the hop through sentFrom from the trace of d.
func unwindDenom(sentFrom channelEnd, d gchain.Denom) gchain.Denom {
	prefix := string(sentFrom.Port) + "/" + string(sentFrom.Channel)
	rest := strings.TrimPrefix(strings.TrimPrefix(d.Path, prefix), "/")
	if rest == "" {
		return gchain.BaseDenom(d.Base)
	}

	port, rest, _ := strings.Cut(rest, "/")
	channel, rest, _ := strings.Cut(rest, "/")
	return gchain.DeriveIBCDenom(
		gchain.PortID(port), gchain.ChannelID(channel),
		gchain.Denom{Path: rest, Base: d.Base},
	)
}

func (c *FakeChain) balance(addr gchain.WalletAddress, denom string) math.Int {
	if b, ok := c.balances[addr][denom]; ok {
		return b
	}
	return math.ZeroInt()
}

func (c *FakeChain) credit(addr gchain.WalletAddress, denom string, amount math.Int) {
	m := c.balances[addr]
	if m == nil {
		m = make(map[string]math.Int)
		c.balances[addr] = m
	}
	m[denom] = c.balance(addr, denom).Add(amount)
}

func (c *FakeChain) debit(addr gchain.WalletAddress, denom string, amount math.Int) {
	c.credit(addr, denom, amount.Neg())
}

// ledgerTx stages balance changes until commit.
type ledgerTx struct {
	c       *FakeChain
	changes map[gchain.WalletAddress]map[string]math.Int
}

func newLedgerTx(c *FakeChain) *ledgerTx {
	return &ledgerTx{c: c, changes: make(map[gchain.WalletAddress]map[string]math.Int)}
}

func (l *ledgerTx) balance(addr gchain.WalletAddress, denom string) math.Int {
	if b, ok := l.changes[addr][denom]; ok {
		return b
	}
	return l.c.balance(addr, denom)
}

func (l *ledgerTx) set(addr gchain.WalletAddress, denom string, amount math.Int) {
	m := l.changes[addr]
	if m == nil {
		m = make(map[string]math.Int)
		l.changes[addr] = m
	}
	m[denom] = amount
}

func (l *ledgerTx) credit(addr gchain.WalletAddress, denom string, amount math.Int) {
	l.set(addr, denom, l.balance(addr, denom).Add(amount))
}

func (l *ledgerTx) debit(addr gchain.WalletAddress, denom string, amount math.Int) bool {
	b := l.balance(addr, denom)
	if b.LT(amount) {
		return false
	}
	l.set(addr, denom, b.Sub(amount))
	return true
}

func (l *ledgerTx) commit() {
	for addr, m := range l.changes {
		for denom, amount := range m {
			if l.c.balances[addr] == nil {
				l.c.balances[addr] = make(map[string]math.Int)
			}
			l.c.balances[addr][denom] = amount
		}
	}
}
