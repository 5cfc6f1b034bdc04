package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"synnergy-network/core"
	"synnergy-network/pkg/config"
	"synnergy-network/pkg/rpc"
	"synnergy-network/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.WithFields(log.Fields{"err": err}).Debug("no .env file loaded")
	}

	rootCmd := &cobra.Command{Use: "synnergy"}
	rootCmd.AddCommand(chainCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// chainCmd groups the execution-core subcommands over a Controller built
// fresh for each invocation: init, push-tx, get-account, get-table, serve
// (SPEC_FULL.md §2's ambient-stack CLI surface).
func chainCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "chain", Short: "interact with the synnergy execution core"}
	cmd.AddCommand(chainInitCmd())
	cmd.AddCommand(chainPushTxCmd())
	cmd.AddCommand(chainGetAccountCmd())
	cmd.AddCommand(chainGetTableCmd())
	cmd.AddCommand(chainServeCmd())
	return cmd
}

func newLogger() *log.Logger {
	logger := log.New()
	level, err := log.ParseLevel(utils.EnvOrDefault("SYNN_LOG_LEVEL", "info"))
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// chainInitCmd validates a genesis file and reports the derived chain id,
// the one-shot bootstrap step of spec.md §6.
func chainInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [genesis-file]",
		Short: "validate a genesis file and print the derived chain id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := core.LoadGenesis(args[0])
			if err != nil {
				return err
			}
			ctrl := core.NewController(newLogger())
			if err := ctrl.Initialize(g); err != nil {
				return err
			}
			fmt.Printf("chain_id: %s\n", ctrl.ChainID().String())
			return nil
		},
	}
}

// chainPushTxCmd loads a genesis file, initializes a fresh controller, and
// pushes a single hex-packed transaction through it (a one-shot convenience
// for local testing; a real deployment keeps the controller resident inside
// "chain serve" instead).
func chainPushTxCmd() *cobra.Command {
	var genesisPath string
	c := &cobra.Command{
		Use:   "push-tx [packed-hex]",
		Short: "push a hex-encoded packed transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packed, err := hex.DecodeString(args[0])
			if err != nil {
				return utils.Wrap(err, "decode packed transaction hex")
			}
			ctrl, err := bootstrapController(genesisPath)
			if err != nil {
				return err
			}
			trace := ctrl.PushTransaction(packed)
			if trace.Except != nil {
				return trace.Except
			}
			fmt.Printf("tx_id: %s cpu_us: %d net_bytes: %d actions: %d\n",
				trace.ID.String(), trace.CPUUsageUS, trace.NetUsage, len(trace.ActionTraces))
			return nil
		},
	}
	c.Flags().StringVar(&genesisPath, "genesis", "genesis.yaml", "path to the genesis file")
	return c
}

func chainGetAccountCmd() *cobra.Command {
	var genesisPath string
	c := &cobra.Command{
		Use:   "get-account [name]",
		Short: "print an account's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := core.ParseName(args[0])
			if err != nil {
				return err
			}
			ctrl, err := bootstrapController(genesisPath)
			if err != nil {
				return err
			}
			account, meta, ok := ctrl.GetAccount(name)
			if !ok {
				return fmt.Errorf("no such account %s", name)
			}
			fmt.Printf("account: %+v\nmetadata: %+v\n", account, meta)
			return nil
		},
	}
	c.Flags().StringVar(&genesisPath, "genesis", "genesis.yaml", "path to the genesis file")
	return c
}

func chainGetTableCmd() *cobra.Command {
	var genesisPath string
	c := &cobra.Command{
		Use:   "get-table [code] [scope] [table]",
		Short: "print a contract table's rows",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := core.ParseName(args[0])
			if err != nil {
				return err
			}
			scope, err := core.ParseName(args[1])
			if err != nil {
				return err
			}
			table, err := core.ParseName(args[2])
			if err != nil {
				return err
			}
			ctrl, err := bootstrapController(genesisPath)
			if err != nil {
				return err
			}
			rows, ok := ctrl.GetTableRows(code, scope, table)
			if !ok {
				return fmt.Errorf("no such table %s/%s/%s", code, scope, table)
			}
			for _, row := range rows {
				fmt.Printf("%d: %x\n", row.PrimaryKey, row.Value)
			}
			return nil
		},
	}
	c.Flags().StringVar(&genesisPath, "genesis", "genesis.yaml", "path to the genesis file")
	return c
}

// chainServeCmd keeps a Controller resident and exposes it over the HTTP and
// WebSocket adapter stubs of SPEC_FULL.md §3 (both explicitly out of
// spec.md's scope; wired here only at their contract boundary).
func chainServeCmd() *cobra.Command {
	var genesisPath, addr, configEnv string
	c := &cobra.Command{
		Use:   "serve",
		Short: "serve the execution core over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			// pkg/config is optional: a node can run off --genesis/--addr
			// and SYNN_* env vars alone. When a cmd/config/{default,<env>}.yaml
			// is present, its Logging.Level sets the log level and its
			// Node.ListenAddr/Node.GenesisFile replace the --addr/--genesis
			// defaults unless those flags were set explicitly.
			if cfg, err := config.Load(configEnv); err != nil {
				logger.WithFields(log.Fields{"err": err}).Debug("no pkg/config file found, using flags/env only")
			} else {
				if cfg.Logging.Level != "" {
					if lvl, err := log.ParseLevel(cfg.Logging.Level); err == nil {
						logger.SetLevel(lvl)
					}
				}
				if !cmd.Flags().Changed("addr") && cfg.Node.ListenAddr != "" {
					addr = cfg.Node.ListenAddr
				}
				if !cmd.Flags().Changed("genesis") && cfg.Node.GenesisFile != "" {
					genesisPath = cfg.Node.GenesisFile
				}
			}

			ctrl, err := bootstrapControllerWithLogger(genesisPath, logger)
			if err != nil {
				return err
			}
			httpSrv := rpc.NewServer(ctrl, logger)
			history := rpc.NewStateHistory(logger)
			httpSrv.SetStateHistory(history)

			mux := http.NewServeMux()
			mux.Handle("/v1/chain/", httpSrv)
			mux.Handle("/v1/history", history)

			logger.WithFields(log.Fields{"addr": addr}).Info("serving execution core")
			return http.ListenAndServe(addr, mux)
		},
	}
	c.Flags().StringVar(&genesisPath, "genesis", "genesis.yaml", "path to the genesis file")
	c.Flags().StringVar(&addr, "addr", utils.EnvOrDefault("SYNN_LISTEN_ADDR", ":8888"), "listen address")
	c.Flags().StringVar(&configEnv, "config-env", utils.EnvOrDefault("SYNN_ENV", ""), "environment name merged over cmd/config/default.yaml (SYNN_ENV)")
	return c
}

func bootstrapController(genesisPath string) (*core.Controller, error) {
	return bootstrapControllerWithLogger(genesisPath, newLogger())
}

func bootstrapControllerWithLogger(genesisPath string, logger *log.Logger) (*core.Controller, error) {
	g, err := core.LoadGenesis(genesisPath)
	if err != nil {
		return nil, err
	}
	ctrl := core.NewController(logger)
	if err := ctrl.Initialize(g); err != nil {
		return nil, err
	}
	return ctrl, nil
}
