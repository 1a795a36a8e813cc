package models

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// PromotionStatus is the lifecycle state of a promotion attempt.
type PromotionStatus string

const (
	PromotionStatusPending   PromotionStatus = "pending"
	PromotionStatusRunning   PromotionStatus = "running"
	PromotionStatusCompleted PromotionStatus = "COMPLETED"
	PromotionStatusFailed    PromotionStatus = "FAILED"
)

// ScheduleWindow is one allowed promotion window: a cron expression naming
// when the window opens and how long it stays open. An empty window list on
// a policy means promotions are unrestricted.
type ScheduleWindow struct {
	Cron     string        `json:"cron"     yaml:"cron"     validate:"required"`
	Duration time.Duration `json:"duration" yaml:"duration" validate:"required"`
}

// UnmarshalYAML accepts durations in the "2h30m" form.
func (w *ScheduleWindow) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Cron     string `yaml:"cron"`
		Duration string `yaml:"duration"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	duration, err := time.ParseDuration(raw.Duration)
	if err != nil {
		return fmt.Errorf("invalid schedule window duration %q: %w", raw.Duration, err)
	}

	w.Cron = raw.Cron
	w.Duration = duration

	return nil
}

// PromotionPolicy is the stage policy gating a promotion into a target
// environment.
type PromotionPolicy struct {
	AllowOverwritingHotfixes       bool             `json:"allow_overwriting_hotfixes"        yaml:"allow_overwriting_hotfixes"`
	AllowForcePromotionOnConflicts bool             `json:"allow_force_promotion_on_conflicts" yaml:"allow_force_promotion_on_conflicts"`
	RequireCleanDrift              bool             `json:"require_clean_drift"               yaml:"require_clean_drift"`
	CreatePlaceholderCredentials   bool             `json:"create_placeholder_credentials"    yaml:"create_placeholder_credentials"`
	UnsupportedNodeTypes           []string         `json:"unsupported_node_types,omitempty"  yaml:"unsupported_node_types,omitempty"`
	ScheduleWindows                []ScheduleWindow `json:"schedule_windows,omitempty"        yaml:"schedule_windows,omitempty"`
}

// Promotion is the persisted record of one promotion attempt.
type Promotion struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	SourceEnvironment string          `json:"source_environment"`
	TargetEnvironment string          `json:"target_environment"`
	Status            PromotionStatus `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	FinishedAt        *time.Time      `json:"finished_at,omitempty"`
}

// RollbackResult reports what a rollback achieved. Rollback is
// best-effort-complete: individual restore failures are collected, never
// raised, so the caller can always audit the outcome.
type RollbackResult struct {
	RollbackTriggered   bool      `json:"rollback_triggered"`
	WorkflowsRolledBack int       `json:"workflows_rolled_back"`
	RollbackErrors      []string  `json:"rollback_errors"`
	SnapshotID          string    `json:"snapshot_id"`
	RollbackMethod      string    `json:"rollback_method"`
	RollbackTimestamp   time.Time `json:"rollback_timestamp"`
}

// PromotionExecutionResult is the terminal outcome of one promotion
// attempt, written exactly once per execution.
type PromotionExecutionResult struct {
	PromotionID          string              `json:"promotion_id"`
	Status               PromotionStatus     `json:"status"`
	WorkflowsPromoted    int                 `json:"workflows_promoted"`
	WorkflowsFailed      int                 `json:"workflows_failed"`
	WorkflowsSkipped     int                 `json:"workflows_skipped"`
	SourceSnapshotID     string              `json:"source_snapshot_id,omitempty"`
	TargetPreSnapshotID  string              `json:"target_pre_snapshot_id,omitempty"`
	TargetPostSnapshotID string              `json:"target_post_snapshot_id,omitempty"`
	Errors               []string            `json:"errors"`
	Warnings             []string            `json:"warnings"`
	CreatedPlaceholders  []CredentialIssue   `json:"created_placeholders,omitempty"`
	CredentialRewrites   []CredentialRewrite `json:"credential_rewrites,omitempty"`
	RollbackResult       *RollbackResult     `json:"rollback_result,omitempty"`
}
