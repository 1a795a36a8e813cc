// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns a logger scoped to one stagehand module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

// WithPromotion returns a logger carrying the identifiers every line of a
// promotion attempt should be correlated by.
func WithPromotion(logger *slog.Logger, promotionID, tenantID, targetEnv string) *slog.Logger {
	return logger.With(
		"promotion_id", promotionID,
		"tenant_id", tenantID,
		"target_environment", targetEnv,
	)
}
