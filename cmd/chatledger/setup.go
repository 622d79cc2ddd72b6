package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/chatledger/pkg/client"
	"github.com/ArionMiles/chatledger/pkg/config"
)

func newSetupCommand(opts *options) *cobra.Command {
	var (
		force     bool
		partition string
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Authorize Google access and provision the month partition",
		Long: `Prepare the configured ledger backend.

sheets:   runs the OAuth browser flow when an OAuth client is configured.
          Month tabs are created by hand in the spreadsheet.
postgres: creates the schema and the month partition.
jsonfile: creates the file and the month partition.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd.Context(), opts, force, partition)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "re-run the OAuth flow even if a token exists")
	cmd.Flags().StringVar(&partition, "partition", "", "partition to create (default: current month)")

	return cmd
}

func runSetup(ctx context.Context, opts *options, force bool, partition string) error {
	logger := opts.logger

	fmt.Println("=== chatledger Setup ===")
	fmt.Println()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	cal, err := newCalendar(cfg)
	if err != nil {
		return err
	}

	registry, err := newRegistry()
	if err != nil {
		return err
	}
	backend, err := registry.Get(cfg.Backend)
	if err != nil {
		return err
	}
	fmt.Printf("Backend: %s (%s)\n\n", backend.Name(), backend.Description())

	if scopes := backend.RequiredScopes(); len(scopes) > 0 {
		if err := authorize(ctx, cfg, force, scopes); err != nil {
			return err
		}
	}

	if cfg.Backend == config.BackendSheets {
		fmt.Printf("Make sure the spreadsheet has a tab named %q with the column labels on row %d.\n", cal.PartitionName(), cfg.HeaderRow)
		return nil
	}

	l, err := openLedger(ctx, cfg, cal, logger)
	if err != nil {
		return err
	}
	defer closeLedger(l)

	creator, ok := l.(partitionCreator)
	if !ok {
		return fmt.Errorf("%s backend cannot create partitions", cfg.Backend)
	}
	if partition == "" {
		partition = cal.PartitionName()
	}
	if err := creator.CreatePartition(ctx, partition); err != nil {
		return err
	}

	fmt.Printf("Partition %q is ready.\n", partition)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run 'chatledger status' to check the configuration")
	fmt.Println("  2. Run 'chatledger serve' to start receiving messages")
	return nil
}

func authorize(ctx context.Context, cfg config.Config, force bool, scopes []string) error {
	cc := client.FromConfig(cfg)

	mode, err := client.DetectMode(cc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || cfg.CredentialsFile == "" {
			return fmt.Errorf("%w\n\nTo get credentials:\n"+
				"1. Go to https://console.cloud.google.com/apis/credentials\n"+
				"2. Create an OAuth 2.0 Client ID (Desktop application) or a service account key\n"+
				"3. Save the JSON file as '%s' or set GOOGLE_CREDENTIALS_FILE", err, config.ClientSecretFile)
		}
		return err
	}

	if mode != client.ModeOAuth {
		fmt.Printf("Using %s credentials; no browser authorization needed.\n", mode)
		fmt.Println("Share the spreadsheet with the service account email as an editor.")
		fmt.Println()
		return nil
	}

	if !force {
		if _, err := os.Stat(cc.TokenFile); err == nil {
			fmt.Printf("Already authenticated! Token file exists: %s\n", cc.TokenFile)
			fmt.Println("To re-authenticate, run: chatledger setup --force")
			fmt.Println()
			return nil
		}
	}

	fmt.Println("Required permissions:")
	fmt.Println("  - Sheets: Read and write spreadsheets")
	fmt.Println()

	if _, err := client.Authorize(ctx, cc, scopes...); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Printf("Token saved to: %s\n\n", cc.TokenFile)
	return nil
}
