package promotion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/stagehand/pkg/gitstore"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/normalize"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/dukex/stagehand/pkg/retry"
	"github.com/dukex/stagehand/pkg/runtime"
)

const rollbackMethod = "snapshot_commit_restore"

// RollbackManager restores previously-promoted workflows from the
// pre-promotion snapshot. Rollback is best-effort-complete: individual
// restore failures are collected and reported, never raised, and never
// stop the remaining restorations.
type RollbackManager struct {
	logger    *slog.Logger
	store     gitstore.Store
	snapshots persistence.SnapshotRepository
	policy    retry.Policy
}

func NewRollbackManager(logger *slog.Logger, store gitstore.Store, snapshots persistence.SnapshotRepository, policy retry.Policy) *RollbackManager {
	return &RollbackManager{
		logger:    logger,
		store:     store,
		snapshots: snapshots,
		policy:    policy,
	}
}

// Rollback restores every workflow in promotedWorkflowIDs to its content at
// the snapshot's commit. It always returns a result the caller can audit.
func (m *RollbackManager) Rollback(
	ctx context.Context,
	target *models.Environment,
	client runtime.Client,
	snapshotID string,
	promotedWorkflowIDs []string,
) *models.RollbackResult {
	result := &models.RollbackResult{
		RollbackTriggered: true,
		SnapshotID:        snapshotID,
		RollbackMethod:    rollbackMethod,
		RollbackTimestamp: time.Now().UTC(),
		RollbackErrors:    make([]string, 0),
	}

	snap, err := m.snapshots.GetByID(ctx, target.TenantID, snapshotID)
	if err != nil {
		result.RollbackErrors = append(result.RollbackErrors,
			fmt.Sprintf("failed to load snapshot %s: %v", snapshotID, err))

		return result
	}

	if snap.CommitReference == "" {
		result.RollbackErrors = append(result.RollbackErrors,
			fmt.Sprintf("snapshot %s has no commit reference; cannot restore", snapshotID))

		return result
	}

	if snap.Unreliable {
		m.logger.WarnContext(ctx, "rolling back from an unreliable snapshot", "snapshot_id", snapshotID)
	}

	for _, workflowID := range promotedWorkflowIDs {
		if err := m.restoreWorkflow(ctx, target, client, snap, workflowID); err != nil {
			m.logger.ErrorContext(ctx, "failed to restore workflow",
				"workflow_id", workflowID,
				"snapshot_id", snapshotID,
				"error", err,
			)
			result.RollbackErrors = append(result.RollbackErrors,
				fmt.Sprintf("workflow %s: %v", workflowID, err))

			continue
		}

		result.WorkflowsRolledBack++
	}

	m.logger.InfoContext(ctx, "rollback finished",
		"snapshot_id", snapshotID,
		"workflows_rolled_back", result.WorkflowsRolledBack,
		"errors", len(result.RollbackErrors),
	)

	return result
}

func (m *RollbackManager) restoreWorkflow(
	ctx context.Context,
	target *models.Environment,
	client runtime.Client,
	snap *models.Snapshot,
	workflowID string,
) error {
	path := target.SnapshotPath + "/" + workflowID + ".json"

	content, err := m.store.ReadFileAt(ctx, path, snap.CommitReference)
	if err != nil {
		return fmt.Errorf("failed to read snapshot content: %w", err)
	}

	workflow, err := normalize.ParseWorkflow([]byte(content))
	if err != nil {
		return fmt.Errorf("failed to parse snapshot content: %w", err)
	}

	return m.policy.Do(ctx, func() error {
		_, err := client.UpdateWorkflow(ctx, workflowID, workflow)
		if runtime.IsNotFound(err) {
			// The failed promotion may have left the workflow deleted or
			// never created; restore by creating it.
			_, err = client.CreateWorkflow(ctx, workflow)
		}

		return err
	})
}
