// Package reconciler applies classified intents to the ledger store.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ArionMiles/chatledger/pkg/api"
)

// Reconciler turns an intent into ledger mutations and an outcome. It keeps
// no state between calls and issues store calls strictly one after another.
type Reconciler struct {
	ledger api.Ledger
	ids    api.IDGenerator
	logger *slog.Logger
}

// New creates a reconciler.
func New(ledger api.Ledger, ids api.IDGenerator, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		ledger: ledger,
		ids:    ids,
		logger: logger,
	}
}

// Apply validates intent and applies it. Not-found conditions are outcomes;
// errors are reserved for malformed intents and store failures.
func (r *Reconciler) Apply(ctx context.Context, intent api.Intent) (api.Outcome, error) {
	if intent == nil {
		return nil, fmt.Errorf("%w: nil intent", api.ErrMalformedIntent)
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	switch in := intent.(type) {
	case api.AddIntent:
		return r.add(ctx, in)
	case api.EditIntent:
		return r.edit(ctx, in)
	case api.DeleteIntent:
		return r.delete(ctx, in)
	case api.ChatIntent:
		return api.Chatted{Message: in.Message}, nil
	default:
		return nil, fmt.Errorf("%w: unknown intent %T", api.ErrMalformedIntent, intent)
	}
}

func (r *Reconciler) add(ctx context.Context, in api.AddIntent) (api.Outcome, error) {
	p, err := r.ledger.Partition(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(in.Transactions))
	txs := make([]api.Transaction, 0, len(in.Transactions))
	for i, tx := range in.Transactions {
		tx.ID = r.ids.Generate()
		if err := p.Append(ctx, tx); err != nil {
			return nil, &api.BatchError{Op: api.OpAdd, Applied: ids, FailedAt: i, Err: err}
		}
		ids = append(ids, tx.ID)
		txs = append(txs, tx)
	}

	r.logger.Info("added transactions", "partition", p.Name(), "count", len(ids), "ids", ids)
	return api.Added{IDs: ids, Transactions: txs}, nil
}

func (r *Reconciler) edit(ctx context.Context, in api.EditIntent) (api.Outcome, error) {
	if len(in.Patches) == 0 {
		return api.EditMissingData{}, nil
	}

	p, err := r.ledger.Partition(ctx)
	if err != nil {
		return nil, err
	}

	// Only the first ID and the first patch take part in an edit.
	id := in.IDs[0]
	if len(in.IDs) > 1 || len(in.Patches) > 1 {
		r.logger.Debug("edit uses the first id and patch only", "ids", len(in.IDs), "patches", len(in.Patches))
	}

	found, err := p.FindByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	ref, ok := found[id]
	if !ok {
		r.logger.Info("edit target not found", "partition", p.Name(), "id", id)
		return api.EditFailed{}, nil
	}

	merged, err := p.Merge(ctx, ref, in.Patches[0])
	if err != nil {
		return nil, err
	}

	r.logger.Info("edited transaction", "partition", p.Name(), "id", id)
	return api.Edited{ID: id, Transaction: merged}, nil
}

func (r *Reconciler) delete(ctx context.Context, in api.DeleteIntent) (api.Outcome, error) {
	p, err := r.ledger.Partition(ctx)
	if err != nil {
		return nil, err
	}

	found, err := p.FindByIDs(ctx, in.IDs)
	if err != nil {
		return nil, err
	}

	var blanked []string
	for i, id := range in.IDs {
		ref, ok := found[id]
		if !ok {
			continue
		}
		if err := p.Blank(ctx, ref); err != nil {
			return nil, &api.BatchError{Op: api.OpDelete, Applied: blanked, FailedAt: i, Err: err}
		}
		// The same ID listed twice is blanked once.
		delete(found, id)
		blanked = append(blanked, id)
	}

	if len(blanked) == 0 {
		r.logger.Info("delete targets not found", "partition", p.Name(), "ids", in.IDs)
		return api.DeleteFailed{}, nil
	}

	r.logger.Info("deleted transactions", "partition", p.Name(), "requested", len(in.IDs), "blanked", blanked)
	return api.Deleted{IDs: in.IDs}, nil
}
