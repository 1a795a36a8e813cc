// Package cmd wires shared infrastructure for the stagehand binaries:
// persistence, event bus and promotion leases, each selected by URL or
// provider name.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/dukex/stagehand/pkg/persistence/file"
	"github.com/dukex/stagehand/pkg/persistence/postgresql"
)

// NewPersistence selects a persistence backend from the database URL
// scheme: postgres for "postgres://", file storage for everything else.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case strings.HasPrefix(databaseURL, "file://"):
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	case databaseURL == "":
		return nil, fmt.Errorf("database URL is required")
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
