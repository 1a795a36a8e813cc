package models

import "time"

// AuditAction names what an audit entry records.
type AuditAction string

const (
	AuditActionExecute  AuditAction = "execute"
	AuditActionRollback AuditAction = "rollback"
)

// AuditLogEntry is one immutable record of a promotion or rollback outcome.
// Entries are append-only; nothing updates or deletes them.
type AuditLogEntry struct {
	ID                   string              `json:"id"`
	TenantID             string              `json:"tenant_id"`
	PromotionID          string              `json:"promotion_id"`
	Action               AuditAction         `json:"action"`
	Status               PromotionStatus     `json:"status"`
	WorkflowsPromoted    int                 `json:"workflows_promoted"`
	WorkflowsFailed      int                 `json:"workflows_failed"`
	WorkflowsSkipped     int                 `json:"workflows_skipped"`
	WorkflowsRolledBack  int                 `json:"workflows_rolled_back"`
	SourceSnapshotID     string              `json:"source_snapshot_id,omitempty"`
	TargetPreSnapshotID  string              `json:"target_pre_snapshot_id,omitempty"`
	TargetPostSnapshotID string              `json:"target_post_snapshot_id,omitempty"`
	Errors               []string            `json:"errors,omitempty"`
	CredentialRewrites   []CredentialRewrite `json:"credential_rewrites,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}
