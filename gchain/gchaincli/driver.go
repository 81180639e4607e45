package gchaincli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/internal/glog"
)

const (
	DefaultKeyringBackend = "test"
	DefaultWaitAttempts   = 90
	DefaultWaitInterval   = time.Second
)

// DriverConfig is the configuration for [NewDriver].
type DriverConfig struct {
	// Path to the chain binary, e.g. "gaiad" or an absolute path.
	CommandPath string

	// Home directory holding the chain's config and keyring.
	HomeDir string

	// RPC address passed as --node.
	// Defaults to TxConfig.RPCAddress.
	RPCListenAddress string

	// Defaults to [DefaultKeyringBackend].
	KeyringBackend string

	TxConfig gchain.TxConfig

	// Defaults to [ExecRunner].
	Runner gchain.CommandRunner

	// Number of balance queries made by AssertEventualWalletAmount,
	// and the delay between them.
	// Default to [DefaultWaitAttempts] and [DefaultWaitInterval].
	WaitAttempts int
	WaitInterval time.Duration
}

// Driver is a [gchain.Driver] that operates a chain through its command line binary.
//
// A Driver holds no mutable state, so it is safe for concurrent use
// to the extent that the chain binary tolerates concurrent invocations
// (concurrent transactions from the same wallet will race on account sequence).
type Driver struct {
	log *slog.Logger

	commandPath    string
	homeDir        string
	rpcAddr        string
	keyringBackend string

	txCfg gchain.TxConfig

	runner gchain.CommandRunner

	waitAttempts int
	waitInterval time.Duration
}

var _ gchain.Driver = (*Driver)(nil)

// NewDriver validates cfg, applies defaults, and returns a Driver.
func NewDriver(log *slog.Logger, cfg DriverConfig) (*Driver, error) {
	if cfg.CommandPath == "" {
		return nil, fmt.Errorf("driver config: command path must not be empty")
	}
	if err := cfg.TxConfig.Validate(); err != nil {
		return nil, fmt.Errorf("driver config: %w", err)
	}
	if cfg.WaitAttempts < 0 {
		return nil, fmt.Errorf("driver config: wait attempts must not be negative (got %d)", cfg.WaitAttempts)
	}

	if cfg.RPCListenAddress == "" {
		cfg.RPCListenAddress = cfg.TxConfig.RPCAddress
	}
	if cfg.KeyringBackend == "" {
		cfg.KeyringBackend = DefaultKeyringBackend
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.WaitAttempts == 0 {
		cfg.WaitAttempts = DefaultWaitAttempts
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = DefaultWaitInterval
	}

	return &Driver{
		log: glog.Chain(log.With("sys", "gchaincli"), cfg.TxConfig.ChainID),

		commandPath:    cfg.CommandPath,
		homeDir:        cfg.HomeDir,
		rpcAddr:        cfg.RPCListenAddress,
		keyringBackend: cfg.KeyringBackend,

		txCfg: cfg.TxConfig,

		runner: cfg.Runner,

		waitAttempts: cfg.WaitAttempts,
		waitInterval: cfg.WaitInterval,
	}, nil
}

func (d *Driver) ChainID() gchain.ChainID {
	return d.txCfg.ChainID
}

// TxConfig returns a pointer to the driver's own configuration.
// Callers must not modify it.
func (d *Driver) TxConfig() *gchain.TxConfig {
	return &d.txCfg
}

func (d *Driver) CommandPath() string {
	return d.commandPath
}

func (d *Driver) RPCListenAddress() string {
	return d.rpcAddr
}

func (d *Driver) Runner() gchain.CommandRunner {
	return d.runner
}

func (d *Driver) HomeDir() string {
	return d.homeDir
}

// keyAddOutput is the subset of the keys add JSON output we consume.
type keyAddOutput struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic"`
}

// AddWallet adds a key named id to the driver's keyring.
// If mnemonic is not empty, the key is recovered from it;
// otherwise the chain binary generates a new key
// and the returned wallet holds the generated mnemonic.
func (d *Driver) AddWallet(ctx context.Context, id gchain.WalletID, mnemonic string) (gchain.Wallet, error) {
	args := []string{"keys", "add", string(id), "--output", "json"}
	var stdin io.Reader
	if mnemonic != "" {
		args = append(args, "--recover")
		stdin = strings.NewReader(mnemonic + "\n")
	}
	args = append(args, d.keyringArgs()...)

	out, err := d.run(ctx, stdin, args...)
	if err != nil {
		return gchain.Wallet{}, fmt.Errorf("failed to add wallet %s: %w", id, err)
	}

	var ko keyAddOutput
	if err := json.Unmarshal(out, &ko); err != nil {
		return gchain.Wallet{}, fmt.Errorf("failed to decode keys add output for wallet %s: %w", id, err)
	}
	if ko.Address == "" {
		return gchain.Wallet{}, fmt.Errorf("keys add output for wallet %s had no address: %s", id, out)
	}

	if mnemonic == "" {
		mnemonic = ko.Mnemonic
	}

	return gchain.Wallet{
		ID:       id,
		Address:  gchain.WalletAddress(ko.Address),
		Mnemonic: mnemonic,
	}, nil
}

func (d *Driver) keyringArgs() []string {
	args := []string{"--keyring-backend", d.keyringBackend}
	if d.homeDir != "" {
		args = append(args, "--home", d.homeDir)
	}
	return args
}

func (d *Driver) run(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	if d.txCfg.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.txCfg.RPCTimeout)
		defer cancel()
	}

	d.log.Debug("Running chain command", "cmd", d.commandPath, "args", args)

	return d.runner.RunCommand(ctx, stdin, d.commandPath, args...)
}
