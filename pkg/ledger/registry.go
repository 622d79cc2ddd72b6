package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/config"
)

// Env is what a backend gets to open its ledger.
type Env struct {
	Config config.Config
	// HTTPClient is authorized for the backend's RequiredScopes. Nil when it needs none.
	HTTPClient *http.Client
	Calendar   Calendar
	Logger     *slog.Logger
}

// Codec returns the row codec for the environment's locale.
func (e Env) Codec() Codec {
	return Codec{Locale: e.Calendar.Locale}
}

// Backend is a named ledger store implementation.
type Backend interface {
	// Name is the LEDGER_BACKEND value selecting this backend.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// RequiredScopes returns the OAuth scopes needed by this backend.
	RequiredScopes() []string
	// Open connects to the store.
	Open(ctx context.Context, env Env) (api.Ledger, error)
}

// Registry manages the available backends.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates a registry holding the given backends.
func NewRegistry(backends ...Backend) (*Registry, error) {
	r := &Registry{backends: make(map[string]Backend)}
	for _, b := range backends {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a backend.
func (r *Registry) Register(b Backend) error {
	name := b.Name()
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("ledger backend %q already registered", name)
	}
	r.backends[name] = b
	return nil
}

// Get returns a backend by name.
func (r *Registry) Get(name string) (Backend, error) {
	b, exists := r.backends[name]
	if !exists {
		return nil, fmt.Errorf("ledger backend %q not found", name)
	}
	return b, nil
}

// List returns all registered backends sorted by name.
func (r *Registry) List() []Backend {
	out := make([]Backend, 0, len(r.backends))
	for _, b := range r.backends {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Open opens the named backend.
func (r *Registry) Open(ctx context.Context, name string, env Env) (api.Ledger, error) {
	b, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	return b.Open(ctx, env)
}
