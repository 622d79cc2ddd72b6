package postgres

import (
	"context"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/config"
	"github.com/ArionMiles/chatledger/pkg/ledger"
)

// Backend registers the PostgreSQL ledger under the "postgres" name.
type Backend struct{}

// Name returns the backend name.
func (Backend) Name() string {
	return config.BackendPostgres
}

// Description returns a human-readable description.
func (Backend) Description() string {
	return "PostgreSQL database with month partitions"
}

// RequiredScopes returns nil; no Google access is needed.
func (Backend) RequiredScopes() []string {
	return nil
}

// Open connects to the configured database.
func (Backend) Open(ctx context.Context, env ledger.Env) (api.Ledger, error) {
	pg := env.Config.Postgres
	cfg := Config{
		Host:     pg.Host,
		Port:     pg.Port,
		Database: pg.Database,
		User:     pg.User,
		Password: pg.Password,
		SSLMode:  pg.SSLMode,
	}
	return New(ctx, cfg, env.Calendar, env.Logger.With("component", "postgres"))
}
