// Package logging provides structured logging configuration using log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logging configuration options.
type Config struct {
	// Level is the minimum log level to output.
	Level slog.Level
	// JSON enables JSON output format (for production).
	JSON bool
	// Output is the writer to write logs to. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig reads LOG_LEVEL (DEBUG, INFO, WARN, ERROR; default INFO)
// and LOG_FORMAT ("json" or "text"; default text) from the environment.
func DefaultConfig() Config {
	return Config{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		JSON:   strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json"),
		Output: os.Stderr,
	}
}

// ParseLevel converts a level name to slog.Level. Unknown names give INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds a logger from cfg and installs it as the slog default, which
// also routes the standard log package through it.
func Setup(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	logger := slog.New(handler).With("app", "chatledger")
	slog.SetDefault(logger)

	return logger
}
