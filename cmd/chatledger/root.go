package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/chatledger/pkg/logging"
)

// options are the flags shared by every command.
type options struct {
	configPath string
	debug      bool
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "chatledger",
		Short: "Record income and spending from chat messages",
		Long: `chatledger turns free-form chat messages into ledger rows.

Messages from the owner are classified into add, edit, delete or chat
intents and applied to the current month of the configured ledger
(Google Sheets, PostgreSQL or a local JSON file).

Example:
  chatledger setup
  chatledger serve
  chatledger ask "beli kopi 25rb"`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := logging.DefaultConfig()
			if opts.debug {
				cfg.Level = slog.LevelDebug
			}
			cfg.Output = os.Stderr
			opts.logger = logging.Setup(cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional JSON config file (environment and .env take precedence)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newAskCommand(opts),
		newChatCommand(opts),
		newSetupCommand(opts),
		newStatusCommand(opts),
	)

	return rootCmd
}
