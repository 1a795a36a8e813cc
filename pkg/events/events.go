// Package events defines the notification events stagehand emits around
// promotions. Emission is fire-and-forget: a lost event never changes a
// promotion outcome.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topic for promotion lifecycle notifications.
const Topic = "stagehand.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	SnapshotCreatedEvent   EventType = "snapshot.created"
	CredentialMissingEvent EventType = "credential.missing"
	DriftDetectedEvent     EventType = "sync.drift_detected"

	PromotionStartedEvent    EventType = "promotion.started"
	PromotionCompletedEvent  EventType = "promotion.completed"
	PromotionFailedEvent     EventType = "promotion.failed"
	PromotionRolledBackEvent EventType = "promotion.rolled_back"
)

type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	TenantID      string    `json:"tenant_id"`
	EnvironmentID string    `json:"environment_id,omitempty"`
}

// NewBaseEvent creates the envelope every event shares.
func NewBaseEvent(eventType EventType, tenantID, environmentID string) BaseEvent {
	return BaseEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		TenantID:      tenantID,
		EnvironmentID: environmentID,
	}
}

type SnapshotCreated struct {
	BaseEvent

	SnapshotID      string `json:"snapshot_id"`
	SnapshotType    string `json:"snapshot_type"`
	CommitReference string `json:"commit_reference"`
	WorkflowCount   int    `json:"workflow_count"`
}

func (e SnapshotCreated) GetType() EventType {
	return SnapshotCreatedEvent
}

type CredentialMissing struct {
	BaseEvent

	WorkflowID         string `json:"workflow_id"`
	CredentialType     string `json:"credential_type"`
	CredentialName     string `json:"credential_name"`
	PlaceholderCreated bool   `json:"placeholder_created"`
}

func (e CredentialMissing) GetType() EventType {
	return CredentialMissingEvent
}

type DriftDetected struct {
	BaseEvent

	SnapshotID        string   `json:"snapshot_id"`
	DriftedWorkflows  []string `json:"drifted_workflows"`
	BlockingPromotion bool     `json:"blocking_promotion"`
}

func (e DriftDetected) GetType() EventType {
	return DriftDetectedEvent
}

type PromotionStarted struct {
	BaseEvent

	PromotionID       string `json:"promotion_id"`
	SourceEnvironment string `json:"source_environment"`
	WorkflowCount     int    `json:"workflow_count"`
}

func (e PromotionStarted) GetType() EventType {
	return PromotionStartedEvent
}

type PromotionCompleted struct {
	BaseEvent

	PromotionID       string `json:"promotion_id"`
	WorkflowsPromoted int    `json:"workflows_promoted"`
	WorkflowsSkipped  int    `json:"workflows_skipped"`
}

func (e PromotionCompleted) GetType() EventType {
	return PromotionCompletedEvent
}

type PromotionFailed struct {
	BaseEvent

	PromotionID string `json:"promotion_id"`
	Error       string `json:"error"`
}

func (e PromotionFailed) GetType() EventType {
	return PromotionFailedEvent
}

type PromotionRolledBack struct {
	BaseEvent

	PromotionID         string `json:"promotion_id"`
	SnapshotID          string `json:"snapshot_id"`
	WorkflowsRolledBack int    `json:"workflows_rolled_back"`
	RollbackErrors      int    `json:"rollback_errors"`
}

func (e PromotionRolledBack) GetType() EventType {
	return PromotionRolledBackEvent
}
