package logger

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jwebster45206/turtle-soup/internal/config"
)

// ServiceName tags every record written through Setup.
const ServiceName = "turtle-soup"

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		// JSON format for production
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", ServiceName)
	slog.SetDefault(logger)
	return logger
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithGame scopes a logger to one game.
func WithGame(logger *slog.Logger, id uuid.UUID) *slog.Logger {
	return logger.With("game_id", id)
}
