// Package webhook exposes the message handler over HTTP for a chat gateway.
//
// The gateway POSTs each inbound message to /messages and relays the reply
// and reaction in the response back to the chat. Messages that are not
// processed (wrong sender, group chats) get 204 No Content.
package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ArionMiles/chatledger/pkg/handler"
)

// Submitter queues a message for processing and waits for its result.
type Submitter interface {
	Submit(ctx context.Context, msg handler.Message) (handler.Result, error)
}

// Config holds configuration for the webhook.
type Config struct {
	// Token, when set, must be sent as "Authorization: Bearer <token>".
	Token string
	// Timeout bounds one request, processing included. Defaults to 60s.
	Timeout time.Duration
}

// Response is the body returned for a processed message.
type Response struct {
	Reply    string `json:"reply"`
	Reaction string `json:"reaction,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type server struct {
	submit  Submitter
	timeout time.Duration
	logger  *slog.Logger
}

// NewRouter returns the webhook's HTTP handler.
func NewRouter(s Submitter, cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	srv := &server{submit: s, timeout: cfg.Timeout, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if cfg.Token != "" {
			r.Use(tokenAuth(cfg.Token))
		}
		r.Post("/messages", srv.handleMessage)
	})

	return r
}

func (s *server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg handler.Message
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&msg); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Body must be a JSON message")
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Message text is empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.submit.Submit(ctx, msg)
	switch {
	case errors.Is(err, handler.ErrWorkerStopped):
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Server is shutting down")
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeJSONError(w, http.StatusGatewayTimeout, "timeout", "Message processing timed out")
		return
	case err != nil:
		s.logger.Error("submitting message", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to process message")
		return
	}

	if !res.Handled {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, Response{Reply: res.Reply.Text, Reaction: res.Reply.Reaction})
}

// tokenAuth checks the gateway's bearer token.
func tokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{Error: code, ErrorDescription: description})
}
