// Package handler is the message-handling boundary: it authorizes inbound
// chat messages, runs them through the classifier and the reconciler, and
// converts every error into the generic failure reply.
package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ArionMiles/chatledger/pkg/api"
	"github.com/ArionMiles/chatledger/pkg/config"
	"github.com/ArionMiles/chatledger/pkg/ledger"
	"github.com/ArionMiles/chatledger/pkg/reply"
)

// Message is one inbound chat message.
type Message struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Chat    string `json:"chat"`
	IsGroup bool   `json:"is_group"`
	Text    string `json:"text"`
}

// Reactor lets a transport show a reaction on the inbound message while it
// is being processed.
type Reactor interface {
	React(ctx context.Context, msg Message, reaction string) error
}

// Applier applies an intent to the ledger.
type Applier interface {
	Apply(ctx context.Context, intent api.Intent) (api.Outcome, error)
}

// Handler processes one message end to end.
type Handler struct {
	owner      string
	classifier api.Classifier
	applier    Applier
	presenter  reply.Presenter
	calendar   ledger.Calendar
	reactor    Reactor
	logger     *slog.Logger
}

// Config holds the handler's collaborators.
type Config struct {
	// OwnerNumber is the only sender whose messages are processed.
	OwnerNumber string
	Classifier  api.Classifier
	Applier     Applier
	Presenter   reply.Presenter
	Calendar    ledger.Calendar
	// Reactor is optional.
	Reactor Reactor
}

// New creates a handler.
func New(cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		owner:      config.NormalizeNumber(cfg.OwnerNumber),
		classifier: cfg.Classifier,
		applier:    cfg.Applier,
		presenter:  cfg.Presenter,
		calendar:   cfg.Calendar,
		reactor:    cfg.Reactor,
		logger:     logger,
	}
}

// Authorized reports whether msg comes from the owner in a direct chat.
func (h *Handler) Authorized(msg Message) bool {
	return !msg.IsGroup && h.owner != "" && config.NormalizeNumber(msg.From) == h.owner
}

// Handle processes msg. It returns false, without doing any work, when the
// message is not authorized and must be dropped silently.
func (h *Handler) Handle(ctx context.Context, msg Message) (reply.Reply, bool) {
	if !h.Authorized(msg) {
		h.logger.Debug("dropping message", "from", msg.From, "is_group", msg.IsGroup)
		return reply.Reply{}, false
	}

	logger := h.logger.With("request_id", uuid.NewString(), "message_id", msg.ID)

	if h.reactor != nil {
		if err := h.reactor.React(ctx, msg, reply.ReactionProcessing); err != nil {
			logger.Warn("failed to send processing reaction", "error", err)
		}
	}

	intent, err := h.classifier.Classify(ctx, msg.Text, h.calendar.Today())
	if err != nil {
		logger.Error("classifying message", "kind", ErrorKind(err), "error", err)
		return h.presenter.Failure(), true
	}
	logger.Info("classified message", "intent", intent.Kind())

	outcome, err := h.applier.Apply(ctx, intent)
	if err != nil {
		attrs := []any{"kind", ErrorKind(err), "intent", intent.Kind(), "error", err}
		var batchErr *api.BatchError
		if errors.As(err, &batchErr) {
			attrs = append(attrs, "applied", batchErr.Applied, "failed_at", batchErr.FailedAt)
		}
		logger.Error("applying intent", attrs...)
		return h.presenter.Failure(), true
	}

	return h.presenter.Render(outcome), true
}

// ErrorKind names the class of err for logs.
func ErrorKind(err error) string {
	var batchErr *api.BatchError
	var storeErr *api.StoreError
	switch {
	case errors.Is(err, api.ErrPartitionNotFound):
		return "partition_not_found"
	case errors.Is(err, api.ErrClassifier):
		return "classifier"
	case errors.Is(err, api.ErrMalformedIntent):
		return "malformed_intent"
	case errors.As(err, &batchErr):
		return "batch"
	case errors.As(err, &storeErr):
		return "store"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
