package jsonfile

import (
	"context"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/config"
	"github.com/ArionMiles/chatledger/pkg/ledger"
)

// Backend registers the JSON file ledger under the "jsonfile" name.
type Backend struct{}

// Name returns the backend name.
func (Backend) Name() string {
	return config.BackendJSONFile
}

// Description returns a human-readable description.
func (Backend) Description() string {
	return "Local JSON file with one array per month"
}

// RequiredScopes returns nil; no Google access is needed.
func (Backend) RequiredScopes() []string {
	return nil
}

// Open returns a ledger over the configured file.
func (Backend) Open(_ context.Context, env ledger.Env) (api.Ledger, error) {
	return New(Config{FilePath: env.Config.LedgerFile}, env.Calendar, env.Logger.With("component", "jsonfile"))
}
