package promotion

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/google/uuid"
)

// AuditRecorder writes one immutable entry per promotion or rollback
// outcome. Recording never fails the caller: by the time an audit entry is
// written the outcome is already determined, so audit problems are logged
// and swallowed.
type AuditRecorder struct {
	logger *slog.Logger
	audits persistence.AuditLogRepository
}

func NewAuditRecorder(logger *slog.Logger, audits persistence.AuditLogRepository) *AuditRecorder {
	return &AuditRecorder{logger: logger, audits: audits}
}

// Record captures a promotion execution or rollback outcome.
func (r *AuditRecorder) Record(ctx context.Context, tenantID string, action models.AuditAction, result *models.PromotionExecutionResult) {
	entry := &models.AuditLogEntry{
		ID:                   uuid.New().String(),
		TenantID:             tenantID,
		PromotionID:          result.PromotionID,
		Action:               action,
		Status:               result.Status,
		WorkflowsPromoted:    result.WorkflowsPromoted,
		WorkflowsFailed:      result.WorkflowsFailed,
		WorkflowsSkipped:     result.WorkflowsSkipped,
		SourceSnapshotID:     result.SourceSnapshotID,
		TargetPreSnapshotID:  result.TargetPreSnapshotID,
		TargetPostSnapshotID: result.TargetPostSnapshotID,
		Errors:               result.Errors,
		CredentialRewrites:   result.CredentialRewrites,
		CreatedAt:            time.Now().UTC(),
	}

	if result.RollbackResult != nil {
		entry.WorkflowsRolledBack = result.RollbackResult.WorkflowsRolledBack

		if action == models.AuditActionRollback {
			entry.Errors = result.RollbackResult.RollbackErrors
		}
	}

	if err := r.audits.Append(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "failed to write audit entry",
			"promotion_id", result.PromotionID,
			"action", string(action),
			"error", err,
		)
	}
}
