package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/classifier/gemini"
	"github.com/ArionMiles/chatledger/pkg/client"
	"github.com/ArionMiles/chatledger/pkg/config"
	"github.com/ArionMiles/chatledger/pkg/handler"
	"github.com/ArionMiles/chatledger/pkg/ledger"
	"github.com/ArionMiles/chatledger/pkg/ledger/jsonfile"
	"github.com/ArionMiles/chatledger/pkg/ledger/postgres"
	"github.com/ArionMiles/chatledger/pkg/ledger/sheets"
	"github.com/ArionMiles/chatledger/pkg/locale"
	"github.com/ArionMiles/chatledger/pkg/reconciler"
	"github.com/ArionMiles/chatledger/pkg/reply"
	"github.com/ArionMiles/chatledger/pkg/txid"
)

// partitionCreator is implemented by ledgers that can provision a month.
type partitionCreator interface {
	CreatePartition(ctx context.Context, name string) error
}

type closer interface {
	Close()
}

func newRegistry() (*ledger.Registry, error) {
	return ledger.NewRegistry(
		sheets.Backend{},
		postgres.Backend{},
		jsonfile.Backend{},
	)
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newCalendar(cfg config.Config) (ledger.Calendar, error) {
	loc, err := locale.Get(cfg.Locale)
	if err != nil {
		return ledger.Calendar{}, err
	}
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return ledger.Calendar{}, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}
	return ledger.Calendar{Locale: loc, Location: tz}, nil
}

// openLedger opens the configured backend, authorizing a Google client
// first when the backend needs one.
func openLedger(ctx context.Context, cfg config.Config, cal ledger.Calendar, logger *slog.Logger) (api.Ledger, error) {
	registry, err := newRegistry()
	if err != nil {
		return nil, err
	}
	backend, err := registry.Get(cfg.Backend)
	if err != nil {
		return nil, err
	}

	env := ledger.Env{Config: cfg, Calendar: cal, Logger: logger}
	if scopes := backend.RequiredScopes(); len(scopes) > 0 {
		httpClient, err := client.New(ctx, client.FromConfig(cfg), scopes...)
		if err != nil {
			return nil, fmt.Errorf("creating google client: %w", err)
		}
		env.HTTPClient = httpClient
	}

	l, err := registry.Open(ctx, cfg.Backend, env)
	if err != nil {
		return nil, fmt.Errorf("opening %s ledger: %w", cfg.Backend, err)
	}
	return l, nil
}

// app is the wired message pipeline.
type app struct {
	cfg      config.Config
	calendar ledger.Calendar
	ledger   api.Ledger
	handler  *handler.Handler
}

func newApp(ctx context.Context, cfg config.Config, reactor handler.Reactor, logger *slog.Logger) (*app, error) {
	cal, err := newCalendar(cfg)
	if err != nil {
		return nil, err
	}

	l, err := openLedger(ctx, cfg, cal, logger)
	if err != nil {
		return nil, err
	}

	classifier, err := gemini.New(ctx, gemini.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	}, cal.Locale, logger.With("component", "gemini"))
	if err != nil {
		closeLedger(l)
		return nil, fmt.Errorf("creating classifier: %w", err)
	}

	h := handler.New(handler.Config{
		OwnerNumber: cfg.OwnerNumber,
		Classifier:  classifier,
		Applier:     reconciler.New(l, txid.New(), logger.With("component", "reconciler")),
		Presenter:   reply.Presenter{Locale: cal.Locale},
		Calendar:    cal,
		Reactor:     reactor,
	}, logger.With("component", "handler"))

	logger.Info("pipeline ready",
		"backend", cfg.Backend,
		"locale", cal.Locale.Code,
		"timezone", cfg.Timezone,
		"partition", cal.PartitionName(),
	)

	return &app{cfg: cfg, calendar: cal, ledger: l, handler: h}, nil
}

func (a *app) Close() {
	closeLedger(a.ledger)
}

func closeLedger(l api.Ledger) {
	if c, ok := l.(closer); ok {
		c.Close()
	}
}
