package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
)

// AuditLogRepository appends and reads immutable audit entries.
type AuditLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	errorsJSON, err := json.Marshal(entry.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode audit errors: %w", err)
	}

	rewritesJSON, err := json.Marshal(entry.CredentialRewrites)
	if err != nil {
		return fmt.Errorf("failed to encode credential rewrites: %w", err)
	}

	query := `
		INSERT INTO audit_log
			(id, tenant_id, promotion_id, action, status,
			 workflows_promoted, workflows_failed, workflows_skipped, workflows_rolled_back,
			 source_snapshot_id, target_pre_snapshot_id, target_post_snapshot_id,
			 errors, credential_rewrites, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.PromotionID,
		string(entry.Action),
		string(entry.Status),
		entry.WorkflowsPromoted,
		entry.WorkflowsFailed,
		entry.WorkflowsSkipped,
		entry.WorkflowsRolledBack,
		entry.SourceSnapshotID,
		entry.TargetPreSnapshotID,
		entry.TargetPostSnapshotID,
		errorsJSON,
		rewritesJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return &persistence.StoreError{Op: "AppendAuditEntry", ID: entry.ID, Err: err}
	}

	return nil
}

func (r *AuditLogRepository) ListByPromotion(ctx context.Context, tenantID, promotionID string) ([]*models.AuditLogEntry, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , promotion_id
		  , action
		  , status
		  , workflows_promoted
		  , workflows_failed
		  , workflows_skipped
		  , workflows_rolled_back
		  , source_snapshot_id
		  , target_pre_snapshot_id
		  , target_post_snapshot_id
		  , errors
		  , credential_rewrites
		  , created_at
		FROM audit_log
		WHERE tenant_id = $1 AND promotion_id = $2
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, promotionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	defer func(ctx context.Context, r *AuditLogRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	entries := make([]*models.AuditLogEntry, 0)

	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}

	return entries, nil
}

func scanAuditEntry(rows *sql.Rows) (*models.AuditLogEntry, error) {
	var (
		entry        models.AuditLogEntry
		errorsJSON   []byte
		rewritesJSON []byte
	)

	err := rows.Scan(
		&entry.ID,
		&entry.TenantID,
		&entry.PromotionID,
		&entry.Action,
		&entry.Status,
		&entry.WorkflowsPromoted,
		&entry.WorkflowsFailed,
		&entry.WorkflowsSkipped,
		&entry.WorkflowsRolledBack,
		&entry.SourceSnapshotID,
		&entry.TargetPreSnapshotID,
		&entry.TargetPostSnapshotID,
		&errorsJSON,
		&rewritesJSON,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	if err := json.Unmarshal(errorsJSON, &entry.Errors); err != nil {
		return nil, fmt.Errorf("failed to decode audit errors: %w", err)
	}

	if err := json.Unmarshal(rewritesJSON, &entry.CredentialRewrites); err != nil {
		return nil, fmt.Errorf("failed to decode credential rewrites: %w", err)
	}

	return &entry, nil
}
