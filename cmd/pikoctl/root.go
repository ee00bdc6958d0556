package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lyuben-todorov/piko-cli/internal/config"
	"github.com/lyuben-todorov/piko-cli/internal/console"
	"github.com/lyuben-todorov/piko-cli/internal/dispatch"
	"github.com/lyuben-todorov/piko-cli/internal/logging"
	"github.com/lyuben-todorov/piko-cli/internal/protocol/session"
)

type rootFlags struct {
	configPath     string
	address        string
	port           uint16
	clientID       uint64
	historyFile    string
	connectTimeout time.Duration
	ioTimeout      time.Duration
	quitTimeout    time.Duration
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "pikoctl",
		Short:         "Interactive client for a piko broker",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			logging.ConfigureRuntime()
			return runREPL(cmd.Context(), cmd, cfg)
		},
	}

	defaults := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path (TOML)")
	pf.StringVarP(&flags.address, "address", "a", defaults.Address, "Broker address")
	pf.Uint16VarP(&flags.port, "port", "p", defaults.Port, "Broker port")
	pf.Uint64Var(&flags.clientID, "client-id", defaults.ClientID, "Client identifier sent with every request")
	pf.StringVar(&flags.historyFile, "history", defaults.HistoryFile, "Line history file")
	pf.DurationVar(&flags.connectTimeout, "connect-timeout", defaults.ConnectTimeout, "Connect timeout (0 for none)")
	pf.DurationVar(&flags.ioTimeout, "io-timeout", defaults.IOTimeout, "Read and write timeout per exchange (0 for none)")
	pf.DurationVar(&flags.quitTimeout, "quit-timeout", defaults.QuitTimeout, "Bound on the unsubscribe sent at exit")

	rootCmd.AddCommand(newConfigCommand(flags))
	return rootCmd
}

// resolveConfig layers defaults, the config file and explicitly set flags,
// in that order.
func resolveConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("address") {
		cfg.Address = flags.address
	}
	if changed("port") {
		cfg.Port = flags.port
	}
	if changed("client-id") {
		cfg.ClientID = flags.clientID
	}
	if changed("history") {
		cfg.HistoryFile = flags.historyFile
	}
	if changed("connect-timeout") {
		cfg.ConnectTimeout = flags.connectTimeout
	}
	if changed("io-timeout") {
		cfg.IOTimeout = flags.ioTimeout
	}
	if changed("quit-timeout") {
		cfg.QuitTimeout = flags.quitTimeout
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runREPL(ctx context.Context, cmd *cobra.Command, cfg config.Config) error {
	term, err := console.New(console.Options{
		Prompt:      console.DefaultPrompt,
		HistoryPath: cfg.HistoryFile,
		Completions: dispatch.CommandNames(),
	})
	if err != nil {
		return err
	}

	client := session.NewClient(cfg.Addr(), cfg.SessionConfig())
	logStart(logging.Logger("pikoctl"), client.Addr, cfg)

	d := dispatch.New(term, client, cmd.OutOrStdout(), dispatch.Options{
		ClientID:    cfg.ClientID,
		QuitTimeout: cfg.QuitTimeout,
	})
	return d.Run(ctx)
}

// logStart records the effective settings at debug so the prompt stays clean.
func logStart(log zerolog.Logger, addr string, cfg config.Config) {
	log.Debug().
		Str("broker", addr).
		Uint64("client_id", cfg.ClientID).
		Dur("connect_timeout", cfg.ConnectTimeout).
		Dur("io_timeout", cfg.IOTimeout).
		Msg("pikoctl starting")
}
