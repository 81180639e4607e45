package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"cosmossdk.io/math"
	"github.com/gordian-engine/gibctest/gchain"
	"github.com/gordian-engine/gibctest/gchain/gchaincli"
	"github.com/gordian-engine/gibctest/gchain/gchaintag"
	"github.com/gordian-engine/gibctest/gtag"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	if err := mainE(); err != nil {
		os.Exit(1)
	}
}

func mainE() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	root := NewRootCmd(logger, nil)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Info("Failure", "err", err)
		os.Stderr.Sync()
		return err
	}

	return nil
}

// queried marks values belonging to the single chain a gibcq invocation talks to.
type queried struct{}

// NewRootCmd returns the gibcq command tree.
// Chain commands run through runner, or through child processes if runner is nil.
func NewRootCmd(log *slog.Logger, runner gchain.CommandRunner) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GIBCQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use: "gibcq SUBCOMMAND",

		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},

		SilenceUsage: true,

		Long: `gibcq queries a running chain through its command line binary,
the same way integration tests drive it.

Every flag can also be set through the environment,
e.g. GIBCQ_CHAIN_ID for --chain-id, or through a config file given with --config.
`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			if path := v.GetString("config"); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read config file %q: %w", path, err)
				}
			}
			return nil
		},
	}

	addChainFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newBalanceCmd(log, v, runner),
		newWaitBalanceCmd(log, v, runner),
		newRecipientTxsCmd(log, v, runner),
	)

	return rootCmd
}

func addChainFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file holding flag values")
	fs.String("chain-id", "", "chain ID (required)")
	fs.String("command", "", "path to the chain binary (required)")
	fs.String("home", "", "home directory of the chain binary")
	fs.String("node", "tcp://127.0.0.1:26657", "RPC address of the chain")
	fs.String("keyring-backend", gchaincli.DefaultKeyringBackend, "keyring backend")
	fs.Uint64("gas-limit", 200_000, "gas limit for transactions")
	fs.String("fee-denom", "stake", "denomination of transaction fees")
}

func newDriver(log *slog.Logger, v *viper.Viper, runner gchain.CommandRunner) (gchaintag.TaggedDriver[queried], error) {
	cfg := gchaincli.DriverConfig{
		CommandPath:    v.GetString("command"),
		HomeDir:        v.GetString("home"),
		KeyringBackend: v.GetString("keyring-backend"),
		TxConfig: gchain.TxConfig{
			ChainID:    gchain.ChainID(v.GetString("chain-id")),
			RPCAddress: v.GetString("node"),
			Gas: gchain.GasConfig{
				GasLimit: v.GetUint64("gas-limit"),
				Fee:      gchain.Coin{Denom: v.GetString("fee-denom"), Amount: math.ZeroInt()},
			},
		},
		Runner: runner,

		// Zero unless the command defines these flags; the driver applies its defaults.
		WaitAttempts: v.GetInt("attempts"),
		WaitInterval: v.GetDuration("interval"),
	}

	d, err := gchaincli.NewDriver(log, cfg)
	if err != nil {
		return gchaintag.TaggedDriver[queried]{}, err
	}
	return gchaintag.TagDriver[queried](d), nil
}

// parseDenom interprets denom, optionally with an IBC trace such as
// "transfer/channel-0" (nearest hop first).
func parseDenom(denom, trace string) (gtag.Mono[queried, gchain.Denom], error) {
	d := gchain.BaseDenom(denom)

	if trace != "" {
		parts := strings.Split(strings.Trim(trace, "/"), "/")
		if len(parts)%2 != 0 {
			return gtag.Mono[queried, gchain.Denom]{}, fmt.Errorf("trace %q must be port/channel pairs", trace)
		}

		// Apply the hops starting from the one nearest the origin.
		for i := len(parts) - 2; i >= 0; i -= 2 {
			d = gchain.DeriveIBCDenom(gchain.PortID(parts[i]), gchain.ChannelID(parts[i+1]), d)
		}
	}

	return gtag.Tag[queried](d), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBalanceCmd(log *slog.Logger, v *viper.Viper, runner gchain.CommandRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use: "balance ADDRESS DENOM",

		Short: "Print the balance of an address in one denomination",

		Args: cobra.ExactArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver(log, v, runner)
			if err != nil {
				return err
			}

			denom, err := parseDenom(args[1], v.GetString("trace"))
			if err != nil {
				return err
			}
			addr := gtag.Tag[queried](gchain.WalletAddress(args[0]))

			bal, err := d.QueryBalance(cmd.Context(), addr, denom)
			if err != nil {
				return err
			}

			return writeJSON(cmd, map[string]string{
				"address": args[0],
				"denom":   denom.Value().String(),
				"amount":  strconv.FormatUint(bal, 10),
			})
		},
	}

	cmd.Flags().String("trace", "", "IBC trace of DENOM, e.g. transfer/channel-0")
	return cmd
}

func newWaitBalanceCmd(log *slog.Logger, v *viper.Viper, runner gchain.CommandRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use: "wait-balance ADDRESS AMOUNT DENOM",

		Short: "Wait until an address holds exactly AMOUNT of a denomination",

		Args: cobra.ExactArgs(3),

		RunE: func(cmd *cobra.Command, args []string) error {
			want, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			d, err := newDriver(log, v, runner)
			if err != nil {
				return err
			}

			denom, err := parseDenom(args[2], v.GetString("trace"))
			if err != nil {
				return err
			}
			addr := gtag.Tag[queried](gchain.WalletAddress(args[0]))

			if err := d.AssertEventualWalletAmount(cmd.Context(), addr, want, denom); err != nil {
				return err
			}

			log.Info("Balance reached", "addr", addr, "denom", denom, "amount", want)
			return nil
		},
	}

	cmd.Flags().Int("attempts", gchaincli.DefaultWaitAttempts, "number of balance queries before giving up")
	cmd.Flags().Duration("interval", gchaincli.DefaultWaitInterval, "delay between balance queries")
	cmd.Flags().String("trace", "", "IBC trace of DENOM, e.g. transfer/channel-0")
	return cmd
}

func newRecipientTxsCmd(log *slog.Logger, v *viper.Viper, runner gchain.CommandRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use: "recipient-txs ADDRESS",

		Short: "Print the transactions in which ADDRESS received a transfer",

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDriver(log, v, runner)
			if err != nil {
				return err
			}

			doc, err := d.QueryRecipientTransactions(cmd.Context(), gtag.Tag[queried](gchain.WalletAddress(args[0])))
			if err != nil {
				return err
			}

			return writeJSON(cmd, doc)
		},
	}

	return cmd
}
