package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/client"
	"github.com/ArionMiles/chatledger/pkg/config"
	"github.com/ArionMiles/chatledger/pkg/ledger"
)

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, credentials and the current partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), opts)
		},
	}
}

// runStatus prints a checklist. It only fails when config cannot be read.
func runStatus(ctx context.Context, opts *options) error {
	fmt.Println("=== chatledger Status ===")
	fmt.Println()

	allGood := true

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	checkConfig(cfg, &allGood)
	cal, calOK := checkCalendar(cfg, &allGood)
	tokenOK := true
	if cfg.Backend == config.BackendSheets {
		tokenOK = checkCredentials(cfg, &allGood)
	}

	if calOK && tokenOK {
		checkLedger(ctx, cfg, cal, opts, &allGood)
	}

	printFinalStatus(allGood)
	return nil
}

func checkConfig(cfg config.Config, allGood *bool) {
	fmt.Printf("Config (backend %s): ", cfg.Backend)
	if err := cfg.Validate(); err != nil {
		fmt.Println("✗ Invalid")
		for _, e := range splitJoined(err) {
			fmt.Printf("    - %v\n", e)
		}
		*allGood = false
		return
	}
	fmt.Println("✓ Valid")

	fmt.Printf("Classifier: ✓ %s\n", cfg.GeminiModel)
	if cfg.WebhookToken == "" {
		fmt.Println("Webhook token: ⚠ Not set (webhook accepts any caller)")
	} else {
		fmt.Println("Webhook token: ✓ Set")
	}
}

func checkCalendar(cfg config.Config, allGood *bool) (ledger.Calendar, bool) {
	fmt.Printf("Locale and timezone (%s, %s): ", cfg.Locale, cfg.Timezone)
	cal, err := newCalendar(cfg)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return ledger.Calendar{}, false
	}
	fmt.Printf("✓ Current partition is %q\n", cal.PartitionName())
	return cal, true
}

func checkCredentials(cfg config.Config, allGood *bool) bool {
	cc := client.FromConfig(cfg)

	fmt.Print("Google credentials: ")
	mode, err := client.DetectMode(cc)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return false
	}
	fmt.Printf("✓ %s\n", mode)
	if mode != client.ModeOAuth {
		return true
	}

	fmt.Printf("OAuth token (%s): ", cc.TokenFile)
	token, err := client.LoadToken(cc.TokenFile)
	if err != nil {
		fmt.Println("✗ Not found (run 'chatledger setup')")
		*allGood = false
		return false
	}
	if token.Expiry.Before(time.Now()) {
		fmt.Println("⚠ Expired (will refresh on next run)")
	} else {
		fmt.Printf("✓ Valid (expires: %s)\n", token.Expiry.Format(time.RFC3339))
	}
	return true
}

func checkLedger(ctx context.Context, cfg config.Config, cal ledger.Calendar, opts *options, allGood *bool) {
	fmt.Println()
	fmt.Println("Ledger:")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	fmt.Printf("  Connection (%s): ", cfg.Backend)
	l, err := openLedger(ctx, cfg, cal, opts.logger)
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		*allGood = false
		return
	}
	defer closeLedger(l)
	fmt.Println("✓ Connected")

	fmt.Printf("  Partition %q: ", cal.PartitionName())
	p, err := l.Partition(ctx)
	switch {
	case errors.Is(err, api.ErrPartitionNotFound):
		fmt.Println("✗ Not found (create it, or run 'chatledger setup' for postgres and jsonfile)")
		*allGood = false
	case err != nil:
		fmt.Printf("✗ %v\n", err)
		*allGood = false
	default:
		fmt.Printf("✓ Ready (%s)\n", p.Name())
	}
}

func printFinalStatus(allGood bool) {
	fmt.Println()
	if allGood {
		fmt.Println("Status: ✓ Ready to run")
		fmt.Println()
		fmt.Println("Run 'chatledger serve' to start receiving messages.")
	} else {
		fmt.Println("Status: ✗ Configuration issues detected")
		fmt.Println()
		fmt.Println("Fix the issues above, then run 'chatledger status' again.")
	}
}

// splitJoined unpacks an errors.Join result.
func splitJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
