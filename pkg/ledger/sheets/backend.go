package sheets

import (
	"context"

	"google.golang.org/api/sheets/v4"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/config"
	"github.com/ArionMiles/chatledger/pkg/ledger"
)

// Backend registers the Sheets ledger under the "sheets" name.
type Backend struct{}

// Name returns the backend name.
func (Backend) Name() string {
	return config.BackendSheets
}

// Description returns a human-readable description.
func (Backend) Description() string {
	return "Google Sheets spreadsheet with one tab per month"
}

// RequiredScopes returns the OAuth scopes needed by this backend.
func (Backend) RequiredScopes() []string {
	return []string{sheets.SpreadsheetsScope}
}

// Open connects to the configured spreadsheet.
func (Backend) Open(ctx context.Context, env ledger.Env) (api.Ledger, error) {
	cfg := Config{
		SpreadsheetID: env.Config.SpreadsheetID,
		HeaderRow:     env.Config.HeaderRow,
	}
	return New(ctx, env.HTTPClient, cfg, env.Calendar, env.Logger.With("component", "sheets"))
}
