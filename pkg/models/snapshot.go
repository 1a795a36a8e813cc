package models

import "time"

// SnapshotType tags why a snapshot was taken.
type SnapshotType string

const (
	SnapshotTypePrePromotion  SnapshotType = "pre_promotion"
	SnapshotTypePostPromotion SnapshotType = "post_promotion"
	SnapshotTypeManual        SnapshotType = "manual"
	SnapshotTypeAutoBackup    SnapshotType = "auto_backup"
)

// WorkflowSummary is the per-workflow entry recorded in snapshot metadata.
type WorkflowSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// SnapshotMetadata describes what a snapshot captured.
type SnapshotMetadata struct {
	Reason            string            `json:"reason"`
	WorkflowCount     int               `json:"workflow_count"`
	WorkflowSummaries []WorkflowSummary `json:"workflow_summaries"`
}

// Snapshot is an immutable, point-in-time export of an environment's full
// workflow set, committed to the version-controlled store. A snapshot whose
// commit reference could not be resolved is recorded anyway but flagged
// Unreliable; rollback from such a snapshot is degraded.
type Snapshot struct {
	ID              string           `json:"id"`
	EnvironmentID   string           `json:"environment_id"`
	TenantID        string           `json:"tenant_id"`
	CommitReference string           `json:"commit_reference"`
	Type            SnapshotType     `json:"type"`
	Metadata        SnapshotMetadata `json:"metadata"`
	Unreliable      bool             `json:"unreliable,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}
