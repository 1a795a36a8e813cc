package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
)

// SnapshotRepository handles snapshot database operations.
type SnapshotRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *SnapshotRepository) Save(ctx context.Context, snapshot *models.Snapshot) error {
	metadata, err := json.Marshal(snapshot.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot metadata: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, tenant_id, environment_id, commit_reference, type, metadata, unreliable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.TenantID,
		snapshot.EnvironmentID,
		snapshot.CommitReference,
		string(snapshot.Type),
		metadata,
		snapshot.Unreliable,
		snapshot.CreatedAt,
	)
	if err != nil {
		return &persistence.StoreError{Op: "SaveSnapshot", ID: snapshot.ID, Err: err}
	}

	return nil
}

func (r *SnapshotRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Snapshot, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , environment_id
		  , commit_reference
		  , type
		  , metadata
		  , unreliable
		  , created_at
		FROM snapshots
		WHERE tenant_id = $1 AND id = $2
	`

	return r.scanSnapshot(r.db.QueryRowContext(ctx, query, tenantID, id))
}

func (r *SnapshotRepository) LatestByEnvironment(ctx context.Context, tenantID, environmentID string, snapshotType models.SnapshotType) (*models.Snapshot, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , environment_id
		  , commit_reference
		  , type
		  , metadata
		  , unreliable
		  , created_at
		FROM snapshots
		WHERE tenant_id = $1 AND environment_id = $2 AND ($3 = '' OR type = $3)
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanSnapshot(r.db.QueryRowContext(ctx, query, tenantID, environmentID, string(snapshotType)))
}

func (r *SnapshotRepository) scanSnapshot(row *sql.Row) (*models.Snapshot, error) {
	var (
		snapshot models.Snapshot
		metadata []byte
	)

	err := row.Scan(
		&snapshot.ID,
		&snapshot.TenantID,
		&snapshot.EnvironmentID,
		&snapshot.CommitReference,
		&snapshot.Type,
		&metadata,
		&snapshot.Unreliable,
		&snapshot.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrSnapshotNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if err := json.Unmarshal(metadata, &snapshot.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot metadata: %w", err)
	}

	return &snapshot, nil
}
