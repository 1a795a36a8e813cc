package promotion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/stagehand/pkg/credentials"
	"github.com/dukex/stagehand/pkg/jobs"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/normalize"
	"github.com/dukex/stagehand/pkg/runtime"
)

// applyInput carries everything the per-workflow loop needs that was
// resolved during preparation.
type applyInput struct {
	selections   []models.WorkflowSelection
	sourceByID   map[string]*models.Workflow
	target       []*models.Workflow
	placeholders map[string]bool
	preSnapshot  *models.Snapshot
}

// applySelections runs the sequential per-workflow loop. Policy blocks fail
// the individual workflow and the loop continues; an apply-time failure on
// the target triggers a rollback of every workflow promoted so far and
// aborts the loop.
func (e *Executor) applySelections(ctx context.Context, logger *slog.Logger, request Request, result *models.PromotionExecutionResult, input applyInput) {
	targetByID := make(map[string]*models.Workflow, len(input.target))
	targetHashes := make(map[string]bool, len(input.target))

	for _, workflow := range input.target {
		targetByID[workflow.ID] = workflow

		hash, err := normalize.ContentHash(workflow)
		if err != nil {
			logger.WarnContext(ctx, "failed to hash target workflow", "workflow_id", workflow.ID, "error", err)

			continue
		}

		targetHashes[hash] = true
	}

	promotedIDs := make([]string, 0, len(input.selections))
	total := countSelected(input.selections)

	for _, selection := range input.selections {
		// Hotfixes and conflicts are never auto-selected; they reach this
		// loop only when a caller explicitly selected them, and then the
		// stage policy decides.
		if !selection.Selected {
			continue
		}

		// A cancelled context counts as an apply-time failure: the run can
		// no longer complete, so prior successes must be rolled back.
		if err := ctx.Err(); err != nil {
			result.WorkflowsFailed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("workflow %s: promotion cancelled: %v", selection.WorkflowID, err))
			e.rollbackApplied(ctx, logger, request, result, input.preSnapshot.ID, promotedIDs)

			return
		}

		if blocked := e.policyBlock(selection, request.Policy); blocked != "" {
			logger.WarnContext(ctx, "workflow blocked by stage policy",
				"workflow_id", selection.WorkflowID, "reason", blocked)
			result.WorkflowsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("workflow %s: %s", selection.WorkflowID, blocked))

			continue
		}

		source, exists := input.sourceByID[selection.WorkflowID]
		if !exists {
			result.WorkflowsFailed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("workflow %s: selected but missing from source snapshot", selection.WorkflowID))

			continue
		}

		skip, err := e.alreadyPromoted(selection, source, targetByID, targetHashes)
		if err != nil {
			result.WorkflowsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("workflow %s: %v", selection.WorkflowID, err))

			continue
		}

		if skip {
			logger.InfoContext(ctx, "workflow already promoted, skipping",
				"workflow_id", selection.WorkflowID, "workflow_name", selection.WorkflowName)
			result.WorkflowsSkipped++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("workflow %s (%s) already matches target content, skipped", selection.WorkflowID, selection.WorkflowName))

			continue
		}

		applied, err := e.applyWorkflow(ctx, logger, request, result, source, input.placeholders, targetByID)
		if err != nil {
			logger.ErrorContext(ctx, "failed to apply workflow to target",
				"workflow_id", selection.WorkflowID, "error", err)
			result.WorkflowsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("workflow %s: %v", selection.WorkflowID, err))
			e.rollbackApplied(ctx, logger, request, result, input.preSnapshot.ID, promotedIDs)

			return
		}

		result.WorkflowsPromoted++
		promotedIDs = append(promotedIDs, applied.ID)

		e.runHooks(ctx, logger, applied)

		if total > 0 {
			e.updateJob(ctx, request, jobs.Update{
				Status:   jobs.StatusRunning,
				Progress: (result.WorkflowsPromoted + result.WorkflowsFailed + result.WorkflowsSkipped) * 100 / total,
				Message:  fmt.Sprintf("promoted %s", selection.WorkflowName),
			})
		}
	}
}

// policyBlock returns a human-readable reason when the stage policy forbids
// this selection, or "" when the selection may proceed.
func (e *Executor) policyBlock(selection models.WorkflowSelection, policy models.PromotionPolicy) string {
	if selection.ChangeType == models.ChangeTypeStagingHotfix {
		if !policy.AllowOverwritingHotfixes {
			return fmt.Sprintf("target has a hotfix newer than the source version and the stage policy forbids overwriting hotfixes (%s)", selection.WorkflowName)
		}

		// Overwriting a hotfix is governed by the hotfix flag alone.
		return ""
	}

	if selection.RequiresOverwrite && !policy.AllowForcePromotionOnConflicts {
		return fmt.Sprintf("promotion would overwrite conflicting target changes and the stage policy forbids force promotion (%s)", selection.WorkflowName)
	}

	return ""
}

// alreadyPromoted reports whether the target already carries this exact
// content. For NEW workflows the target has no workflow under this id, so
// the hash is checked against every target workflow; otherwise only against
// the workflow being replaced.
func (e *Executor) alreadyPromoted(selection models.WorkflowSelection, source *models.Workflow, targetByID map[string]*models.Workflow, targetHashes map[string]bool) (bool, error) {
	sourceHash, err := normalize.ContentHash(source)
	if err != nil {
		return false, fmt.Errorf("failed to hash source content: %w", err)
	}

	if selection.ChangeType == models.ChangeTypeNew {
		return targetHashes[sourceHash], nil
	}

	existing, exists := targetByID[selection.WorkflowID]
	if !exists {
		return false, nil
	}

	targetHash, err := normalize.ContentHash(existing)
	if err != nil {
		return false, fmt.Errorf("failed to hash target content: %w", err)
	}

	return sourceHash == targetHash, nil
}

// applyWorkflow rewrites credentials for the target environment and writes
// the workflow through the target runtime API. Update falls back to create
// when the target does not know the workflow yet.
func (e *Executor) applyWorkflow(
	ctx context.Context,
	logger *slog.Logger,
	request Request,
	result *models.PromotionExecutionResult,
	source *models.Workflow,
	placeholders map[string]bool,
	targetByID map[string]*models.Workflow,
) (*models.Workflow, error) {
	rewritten, rewrites, err := credentials.Rewrite(ctx, source, request.TenantID, request.Target.ID, e.persist.CredentialRepository())
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite credentials: %w", err)
	}

	result.CredentialRewrites = append(result.CredentialRewrites, rewrites...)

	if placeholders[source.ID] {
		// A placeholder credential cannot authenticate anything; the
		// workflow must not run until the mapping is completed.
		rewritten.Active = false

		logger.WarnContext(ctx, "workflow deployed inactive pending credential mapping",
			"workflow_id", source.ID, "workflow_name", source.Name)
	}

	var applied *models.Workflow

	if _, exists := targetByID[source.ID]; exists {
		applied, err = request.TargetClient.UpdateWorkflow(ctx, source.ID, rewritten)
		if runtime.IsNotFound(err) {
			// Deleted on the target between listing and apply.
			applied, err = request.TargetClient.CreateWorkflow(ctx, rewritten)
		}
	} else {
		applied, err = request.TargetClient.CreateWorkflow(ctx, rewritten)
	}

	if err != nil {
		return nil, err
	}

	if applied == nil {
		applied = rewritten
	}

	return applied, nil
}

func (e *Executor) rollbackApplied(ctx context.Context, logger *slog.Logger, request Request, result *models.PromotionExecutionResult, snapshotID string, promotedIDs []string) {
	result.Status = models.PromotionStatusFailed

	logger.WarnContext(ctx, "apply failure, rolling back promoted workflows",
		"snapshot_id", snapshotID, "promoted", len(promotedIDs))

	// Rollback must proceed even when the failure was a cancellation.
	result.RollbackResult = e.rollback.Rollback(context.WithoutCancel(ctx), request.Target, request.TargetClient, snapshotID, promotedIDs)
}

func (e *Executor) runHooks(ctx context.Context, logger *slog.Logger, workflow *models.Workflow) {
	for _, hook := range e.hooks {
		if err := hook.Run(ctx, workflow); err != nil {
			logger.WarnContext(ctx, "post-apply hook failed",
				"hook", hook.Name, "workflow_id", workflow.ID, "error", err)
		}
	}
}
