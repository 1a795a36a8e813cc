// Package promotion contains the promotion executor, rollback manager and
// audit recorder, the only code in stagehand that mutates a live target
// environment. A promotion either applies every selected workflow or rolls
// back to the pre-promotion snapshot; it is never left half-applied.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/stagehand/pkg/eventbus"
	"github.com/dukex/stagehand/pkg/events"
	"github.com/dukex/stagehand/pkg/gate"
	"github.com/dukex/stagehand/pkg/gitstore"
	"github.com/dukex/stagehand/pkg/jobs"
	"github.com/dukex/stagehand/pkg/lease"
	"github.com/dukex/stagehand/pkg/log"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/normalize"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/dukex/stagehand/pkg/runtime"
	"github.com/dukex/stagehand/pkg/snapshot"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/stagehand/pkg/otelhelper"
)

// ErrPromotionActive indicates the target environment already has a
// running promotion.
var ErrPromotionActive = errors.New("a promotion is already running for the target environment")

// Request describes one promotion attempt. The executor owns the attempt's
// lifecycle from here to a terminal PromotionExecutionResult.
type Request struct {
	PromotionID string // assigned when empty
	JobID       string // progress-sink correlation id, optional
	TenantID    string
	Source      *models.Environment
	Target      *models.Environment

	// TargetClient is the runtime API of the target environment, the only
	// live system a promotion mutates.
	TargetClient runtime.Client

	Policy models.PromotionPolicy

	// Selections restricts the promotion to specific workflow changes.
	// When nil the executor diffs source against target and promotes every
	// auto-selected change.
	Selections []models.WorkflowSelection

	// SourceSnapshotID pins the source content. When empty the latest
	// snapshot of the source environment is used. Source content is always
	// read from the version-controlled store, never from the live source
	// runtime.
	SourceSnapshotID string
}

// Executor orchestrates promotions. All collaborators are injected;
// nothing here reaches for global state.
type Executor struct {
	logger    *slog.Logger
	store     gitstore.Store
	persist   persistence.Persistence
	snapshots *snapshot.Manager
	rollback  *RollbackManager
	audit     *AuditRecorder
	leases    lease.Lease
	publisher eventbus.EventPublisher
	sink      jobs.StatusSink
	tracer    trace.Tracer
	hooks     []PostApplyHook
}

// NewExecutor wires a promotion executor. publisher and tracer may be nil;
// sink may be nil, in which case progress reporting is skipped.
func NewExecutor(
	logger *slog.Logger,
	store gitstore.Store,
	persist persistence.Persistence,
	snapshots *snapshot.Manager,
	rollback *RollbackManager,
	audit *AuditRecorder,
	leases lease.Lease,
	publisher eventbus.EventPublisher,
	sink jobs.StatusSink,
	tracer trace.Tracer,
	hooks ...PostApplyHook,
) *Executor {
	return &Executor{
		logger:    logger,
		store:     store,
		persist:   persist,
		snapshots: snapshots,
		rollback:  rollback,
		audit:     audit,
		leases:    leases,
		publisher: publisher,
		sink:      sink,
		tracer:    tracer,
		hooks:     hooks,
	}
}

// Execute runs one promotion to a terminal result. Business failures
// (policy blocks, apply failures, gate blocks) terminate in a FAILED
// result; only configuration and infrastructure failures return an error.
func (e *Executor) Execute(ctx context.Context, request Request) (*models.PromotionExecutionResult, error) {
	if request.PromotionID == "" {
		request.PromotionID = uuid.New().String()
	}

	logger := log.WithPromotion(e.logger, request.PromotionID, request.TenantID, request.Target.ID).
		With("source_environment", request.Source.ID)

	ctx, span := e.startSpan(ctx, request)
	defer span.End()

	result := &models.PromotionExecutionResult{
		PromotionID: request.PromotionID,
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
	}

	// Advisory check first: a cheap read before taking the lease.
	active, err := e.persist.PromotionRepository().ActiveByTargetEnvironment(ctx, request.TenantID, request.Target.ID)
	if err != nil && !persistence.IsPromotionNotFound(err) {
		return nil, fmt.Errorf("failed to check for active promotions: %w", err)
	}

	if active != nil {
		return nil, fmt.Errorf("%w: promotion %s", ErrPromotionActive, active.ID)
	}

	if err := e.leases.Acquire(ctx, request.Target.ID, request.PromotionID); err != nil {
		if errors.Is(err, lease.ErrHeld) {
			return nil, fmt.Errorf("%w: lease held", ErrPromotionActive)
		}

		return nil, err
	}

	defer func() {
		if err := e.leases.Release(context.WithoutCancel(ctx), request.Target.ID, request.PromotionID); err != nil {
			logger.ErrorContext(ctx, "failed to release promotion lease", "error", err)
		}
	}()

	if err := e.savePromotionRecord(ctx, request); err != nil {
		return nil, err
	}

	outcome, err := e.run(ctx, logger, request, result)
	if err != nil {
		e.finishPromotionRecord(ctx, request, models.PromotionStatusFailed)

		return nil, err
	}

	e.finishPromotionRecord(ctx, request, outcome.Status)

	return outcome, nil
}

// run executes everything between lease acquisition and the terminal
// result: snapshots, gates, the per-workflow loop and finalization.
func (e *Executor) run(ctx context.Context, logger *slog.Logger, request Request, result *models.PromotionExecutionResult) (*models.PromotionExecutionResult, error) {
	sourceWorkflows, sourceByID, err := e.loadSourceContent(ctx, request, result)
	if err != nil {
		return nil, err
	}

	targetWorkflows, err := request.TargetClient.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list target workflows: %w", err)
	}

	selections := request.Selections
	if selections == nil {
		selections, err = normalize.Compare(sourceWorkflows, targetWorkflows)
		if err != nil {
			return nil, err
		}
	}

	// Gate before the pre-promotion snapshot, so the drift check compares
	// the live target against its previous known-good snapshot, not the
	// one this promotion is about to take.
	gateResult, err := e.evaluateGate(ctx, logger, request, selections, sourceByID)
	if err != nil {
		return nil, err
	}

	result.CreatedPlaceholders = gateResult.CredentialIssues

	if !gateResult.Passed() {
		result.Status = models.PromotionStatusFailed
		result.Errors = append(result.Errors, gateResult.Errors...)
		result.Warnings = append(result.Warnings, gateResult.Warnings...)

		logger.WarnContext(ctx, "promotion blocked by gate", "errors", gateResult.Errors)
		e.finalize(ctx, logger, request, result)

		return result, nil
	}

	result.Warnings = append(result.Warnings, gateResult.Warnings...)

	preSnapshot, err := e.snapshots.CreatePrePromotion(ctx, request.Target, request.TargetClient,
		fmt.Sprintf("promotion %s from %s", request.PromotionID, request.Source.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create pre-promotion snapshot: %w", err)
	}

	result.TargetPreSnapshotID = preSnapshot.ID

	e.publish(ctx, request.Target.ID, events.PromotionStarted{
		BaseEvent:         events.NewBaseEvent(events.PromotionStartedEvent, request.TenantID, request.Target.ID),
		PromotionID:       request.PromotionID,
		SourceEnvironment: request.Source.ID,
		WorkflowCount:     countSelected(selections),
	})

	e.applySelections(ctx, logger, request, result, applyInput{
		selections:   selections,
		sourceByID:   sourceByID,
		target:       targetWorkflows,
		placeholders: gateResult.PlaceholderWorkflowIDs(),
		preSnapshot:  preSnapshot,
	})

	if result.Status != models.PromotionStatusFailed {
		result.Status = models.PromotionStatusCompleted
		if result.WorkflowsFailed > 0 {
			// Policy blocks failed individual workflows without touching
			// the target; the attempt as a whole still reports FAILED.
			result.Status = models.PromotionStatusFailed
		}
	}

	if result.Status == models.PromotionStatusCompleted && result.WorkflowsPromoted > 0 {
		postSnapshot, err := e.snapshots.Create(ctx, request.Target, request.TargetClient,
			models.SnapshotTypePostPromotion, fmt.Sprintf("after promotion %s", request.PromotionID))
		if err != nil {
			// The target is fully promoted; a missing post snapshot only
			// degrades the next drift baseline.
			logger.WarnContext(ctx, "failed to create post-promotion snapshot", "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("post-promotion snapshot failed: %v", err))
		} else {
			result.TargetPostSnapshotID = postSnapshot.ID
		}
	}

	e.finalize(ctx, logger, request, result)

	return result, nil
}

func (e *Executor) loadSourceContent(ctx context.Context, request Request, result *models.PromotionExecutionResult) ([]*models.Workflow, map[string]*models.Workflow, error) {
	var (
		sourceSnapshot *models.Snapshot
		err            error
	)

	if request.SourceSnapshotID != "" {
		sourceSnapshot, err = e.persist.SnapshotRepository().GetByID(ctx, request.TenantID, request.SourceSnapshotID)
	} else {
		sourceSnapshot, err = e.persist.SnapshotRepository().LatestByEnvironment(ctx, request.TenantID, request.Source.ID, "")
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve source snapshot for %s: %w", request.Source.ID, err)
	}

	if sourceSnapshot.CommitReference == "" {
		return nil, nil, fmt.Errorf("source snapshot %s has no commit reference", sourceSnapshot.ID)
	}

	result.SourceSnapshotID = sourceSnapshot.ID

	contents, err := e.store.ListFilesUnder(ctx, request.Source.SnapshotPath, sourceSnapshot.CommitReference)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load source content from store: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(contents))
	byID := make(map[string]*models.Workflow, len(contents))

	for id, content := range contents {
		workflow, err := normalize.ParseWorkflow([]byte(content))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse source workflow %s: %w", id, err)
		}

		workflows = append(workflows, workflow)
		byID[workflow.ID] = workflow
	}

	return workflows, byID, nil
}

func (e *Executor) evaluateGate(ctx context.Context, logger *slog.Logger, request Request, selections []models.WorkflowSelection, sourceByID map[string]*models.Workflow) (*models.GateResult, error) {
	evaluator := gate.NewEvaluator(
		logger,
		request.TargetClient,
		e.store,
		e.persist.SnapshotRepository(),
		e.persist.CredentialRepository(),
		e.publisher,
	)

	return evaluator.Evaluate(ctx, gate.Input{
		TenantID:        request.TenantID,
		Target:          request.Target,
		Policy:          request.Policy,
		Selections:      selections,
		SourceWorkflows: sourceByID,
	})
}

// finalize records the terminal outcome: audit entries, lifecycle events
// and the last progress update. Nothing in here can change the outcome.
func (e *Executor) finalize(ctx context.Context, logger *slog.Logger, request Request, result *models.PromotionExecutionResult) {
	e.audit.Record(ctx, request.TenantID, models.AuditActionExecute, result)

	if result.RollbackResult != nil {
		e.audit.Record(ctx, request.TenantID, models.AuditActionRollback, result)

		e.publish(ctx, request.Target.ID, events.PromotionRolledBack{
			BaseEvent:           events.NewBaseEvent(events.PromotionRolledBackEvent, request.TenantID, request.Target.ID),
			PromotionID:         request.PromotionID,
			SnapshotID:          result.RollbackResult.SnapshotID,
			WorkflowsRolledBack: result.RollbackResult.WorkflowsRolledBack,
			RollbackErrors:      len(result.RollbackResult.RollbackErrors),
		})
	}

	switch result.Status {
	case models.PromotionStatusCompleted:
		e.publish(ctx, request.Target.ID, events.PromotionCompleted{
			BaseEvent:         events.NewBaseEvent(events.PromotionCompletedEvent, request.TenantID, request.Target.ID),
			PromotionID:       request.PromotionID,
			WorkflowsPromoted: result.WorkflowsPromoted,
			WorkflowsSkipped:  result.WorkflowsSkipped,
		})

		e.updateJob(ctx, request, jobs.Update{Status: jobs.StatusCompleted, Progress: 100, Result: result})
	default:
		e.publish(ctx, request.Target.ID, events.PromotionFailed{
			BaseEvent:   events.NewBaseEvent(events.PromotionFailedEvent, request.TenantID, request.Target.ID),
			PromotionID: request.PromotionID,
			Error:       firstError(result.Errors),
		})

		e.updateJob(ctx, request, jobs.Update{Status: jobs.StatusFailed, Progress: 100, Result: result})
	}

	logger.InfoContext(ctx, "promotion finished",
		"status", string(result.Status),
		"promoted", result.WorkflowsPromoted,
		"failed", result.WorkflowsFailed,
		"skipped", result.WorkflowsSkipped,
	)
}

func (e *Executor) savePromotionRecord(ctx context.Context, request Request) error {
	record := &models.Promotion{
		ID:                request.PromotionID,
		TenantID:          request.TenantID,
		SourceEnvironment: request.Source.ID,
		TargetEnvironment: request.Target.ID,
		Status:            models.PromotionStatusRunning,
		CreatedAt:         time.Now().UTC(),
	}

	if err := e.persist.PromotionRepository().Save(ctx, record); err != nil {
		return fmt.Errorf("failed to record promotion: %w", err)
	}

	return nil
}

func (e *Executor) finishPromotionRecord(ctx context.Context, request Request, status models.PromotionStatus) {
	ctx = context.WithoutCancel(ctx)

	err := e.persist.PromotionRepository().UpdateStatus(ctx, request.TenantID, request.PromotionID, status)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to update promotion status",
			"promotion_id", request.PromotionID, "status", string(status), "error", err)
	}
}

func (e *Executor) startSpan(ctx context.Context, request Request) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, e.tracer, "promotion.execute",
		attribute.String(otelhelper.PromotionIDKey, request.PromotionID),
		attribute.String(otelhelper.TenantIDKey, request.TenantID),
		attribute.String(otelhelper.SourceEnvironmentKey, request.Source.ID),
		attribute.String(otelhelper.TargetEnvironmentKey, request.Target.ID),
	)
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(context.WithoutCancel(ctx), key, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish promotion event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Executor) updateJob(ctx context.Context, request Request, update jobs.Update) {
	if e.sink == nil || request.JobID == "" {
		return
	}

	e.sink.UpdateStatus(context.WithoutCancel(ctx), request.JobID, update)
}

func countSelected(selections []models.WorkflowSelection) int {
	count := 0

	for _, selection := range selections {
		if selection.Selected {
			count++
		}
	}

	return count
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return ""
	}

	return errs[0]
}
