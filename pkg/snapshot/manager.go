// Package snapshot exports an environment's full workflow set into the
// version-controlled store and records the resulting snapshot. Snapshots
// are immutable and are the sole anchor rollback restores from.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/stagehand/pkg/eventbus"
	"github.com/dukex/stagehand/pkg/events"
	"github.com/dukex/stagehand/pkg/gitstore"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/dukex/stagehand/pkg/runtime"
	"github.com/google/uuid"
)

var (
	// ErrEmptyEnvironment indicates the environment exported zero
	// workflows. An empty snapshot is useless as a rollback anchor, so
	// creation fails instead of recording one.
	ErrEmptyEnvironment = errors.New("environment has no workflows to snapshot")

	// ErrSnapshotVerification indicates a pre-promotion snapshot failed
	// its post-creation consistency check.
	ErrSnapshotVerification = errors.New("pre-promotion snapshot failed verification")
)

// Manager creates snapshots. It owns snapshot records; promotions only
// reference them by id.
type Manager struct {
	logger    *slog.Logger
	store     gitstore.Store
	snapshots persistence.SnapshotRepository
	publisher eventbus.EventPublisher
}

// NewManager wires a snapshot manager. publisher may be nil.
func NewManager(logger *slog.Logger, store gitstore.Store, snapshots persistence.SnapshotRepository, publisher eventbus.EventPublisher) *Manager {
	return &Manager{
		logger:    logger,
		store:     store,
		snapshots: snapshots,
		publisher: publisher,
	}
}

// Create exports every workflow of the environment, commits the export and
// persists the snapshot record. Failures to export or to reach the store
// propagate, never swallowed. A snapshot whose commit reference
// could not be resolved is still recorded, flagged unreliable.
func (m *Manager) Create(ctx context.Context, environment *models.Environment, client runtime.Client, snapshotType models.SnapshotType, reason string) (*models.Snapshot, error) {
	workflows, err := client.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export workflows from %s: %w", environment.ID, err)
	}

	if len(workflows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyEnvironment, environment.ID)
	}

	files := make(map[string]string, len(workflows))
	summaries := make([]models.WorkflowSummary, 0, len(workflows))

	for _, workflow := range workflows {
		content, err := json.MarshalIndent(workflow, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode workflow %s: %w", workflow.ID, err)
		}

		files[environment.SnapshotPath+"/"+workflow.ID+".json"] = string(content)
		summaries = append(summaries, models.WorkflowSummary{
			ID:     workflow.ID,
			Name:   workflow.Name,
			Active: workflow.Active,
		})
	}

	message := fmt.Sprintf("snapshot %s of %s: %s", snapshotType, environment.ID, reason)

	commit, err := m.store.WriteFiles(ctx, files, message)
	if err != nil {
		return nil, fmt.Errorf("failed to commit snapshot of %s: %w", environment.ID, err)
	}

	snap := &models.Snapshot{
		ID:              uuid.New().String(),
		EnvironmentID:   environment.ID,
		TenantID:        environment.TenantID,
		CommitReference: commit,
		Type:            snapshotType,
		Metadata: models.SnapshotMetadata{
			Reason:            reason,
			WorkflowCount:     len(workflows),
			WorkflowSummaries: summaries,
		},
		CreatedAt: time.Now().UTC(),
	}

	if commit == "" {
		// The export is durable but cannot be addressed for rollback.
		snap.Unreliable = true
		m.logger.WarnContext(ctx, "snapshot recorded without commit reference; rollback from it is degraded",
			"snapshot_id", snap.ID, "environment_id", environment.ID)
	}

	if err := m.snapshots.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot record: %w", err)
	}

	m.logger.InfoContext(ctx, "snapshot created",
		"snapshot_id", snap.ID,
		"environment_id", environment.ID,
		"type", string(snapshotType),
		"commit", commit,
		"workflow_count", len(workflows),
	)

	m.publishCreated(ctx, snap)

	return snap, nil
}

// CreatePrePromotion creates the rollback anchor for a promotion and
// re-reads it to assert what was stored matches what was exported: the
// stored type, workflow count and commit reference must all equal what
// Create just returned.
func (m *Manager) CreatePrePromotion(ctx context.Context, environment *models.Environment, client runtime.Client, reason string) (*models.Snapshot, error) {
	snap, err := m.Create(ctx, environment, client, models.SnapshotTypePrePromotion, reason)
	if err != nil {
		return nil, err
	}

	stored, err := m.snapshots.GetByID(ctx, environment.TenantID, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to re-read snapshot %s: %v", ErrSnapshotVerification, snap.ID, err)
	}

	if stored.Type != models.SnapshotTypePrePromotion {
		return nil, fmt.Errorf("%w: snapshot %s has type %s", ErrSnapshotVerification, snap.ID, stored.Type)
	}

	if stored.Metadata.WorkflowCount != snap.Metadata.WorkflowCount ||
		len(stored.Metadata.WorkflowSummaries) != snap.Metadata.WorkflowCount {
		return nil, fmt.Errorf("%w: snapshot %s records %d workflows with %d summaries, exported %d",
			ErrSnapshotVerification, snap.ID, stored.Metadata.WorkflowCount,
			len(stored.Metadata.WorkflowSummaries), snap.Metadata.WorkflowCount)
	}

	if snap.CommitReference == "" || stored.CommitReference != snap.CommitReference {
		return nil, fmt.Errorf("%w: snapshot %s stored commit %q does not match committed %q",
			ErrSnapshotVerification, snap.ID, stored.CommitReference, snap.CommitReference)
	}

	return stored, nil
}

func (m *Manager) publishCreated(ctx context.Context, snap *models.Snapshot) {
	if m.publisher == nil {
		return
	}

	event := events.SnapshotCreated{
		BaseEvent:       events.NewBaseEvent(events.SnapshotCreatedEvent, snap.TenantID, snap.EnvironmentID),
		SnapshotID:      snap.ID,
		SnapshotType:    string(snap.Type),
		CommitReference: snap.CommitReference,
		WorkflowCount:   snap.Metadata.WorkflowCount,
	}

	if err := m.publisher.Publish(ctx, snap.EnvironmentID, event); err != nil {
		m.logger.WarnContext(ctx, "failed to publish snapshot event", "snapshot_id", snap.ID, "error", err)
	}
}
