package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArionMiles/chatledger/pkg/handler"
	"github.com/ArionMiles/chatledger/pkg/webhook"
)

// queueSize bounds how many messages may wait for the worker.
const queueSize = 32

func newServeCommand(opts *options) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook that receives chat messages",
		Long: `Run an HTTP server that accepts messages from a chat gateway on
POST /messages and answers with the reply text and reaction.

Messages are handled one at a time in arrival order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "maximum time to process one message")

	return cmd
}

func runServe(parent context.Context, opts *options, timeout time.Duration) error {
	logger := opts.logger

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := newApp(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	worker := handler.NewWorker(a.handler, queueSize)
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(ctx)
	}()

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: webhook.NewRouter(worker, webhook.Config{
			Token:   cfg.WebhookToken,
			Timeout: timeout,
		}, logger.With("component", "webhook")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening for messages", "addr", cfg.ListenAddr, "token_required", cfg.WebhookToken != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("webhook server: %w", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("webhook shutdown", "error", err)
	}

	if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker error", "error", err)
	}

	logger.Info("chatledger stopped")
	return runErr
}
