// Package gate runs every pre-flight check a promotion must pass before it
// is allowed to mutate a target environment. Checks are evaluated fresh at
// call time, immediately before promotion. Nothing here is cached.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/stagehand/pkg/eventbus"
	"github.com/dukex/stagehand/pkg/events"
	"github.com/dukex/stagehand/pkg/gitstore"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/normalize"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/dukex/stagehand/pkg/runtime"
)

// Input carries everything one gate evaluation needs.
type Input struct {
	TenantID        string
	Target          *models.Environment
	Policy          models.PromotionPolicy
	Selections      []models.WorkflowSelection
	SourceWorkflows map[string]*models.Workflow // selected source content, by workflow id
}

// Evaluator aggregates drift, credential, node-support, webhook, health and
// schedule-window checks into one GateResult.
type Evaluator struct {
	logger      *slog.Logger
	target      runtime.Client
	store       gitstore.Store
	snapshots   persistence.SnapshotRepository
	credentials persistence.CredentialRepository
	publisher   eventbus.EventPublisher
}

// NewEvaluator wires a gate evaluator for one target environment.
// publisher may be nil; notification failures never block a gate.
func NewEvaluator(
	logger *slog.Logger,
	target runtime.Client,
	store gitstore.Store,
	snapshots persistence.SnapshotRepository,
	credentials persistence.CredentialRepository,
	publisher eventbus.EventPublisher,
) *Evaluator {
	return &Evaluator{
		logger:      logger,
		target:      target,
		store:       store,
		snapshots:   snapshots,
		credentials: credentials,
		publisher:   publisher,
	}
}

// Evaluate runs every configured check. Entries in the result's Errors
// block the promotion; Warnings do not.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (*models.GateResult, error) {
	result := &models.GateResult{
		DriftClean:       true,
		CredentialsReady: true,
		NodeSupportOK:    true,
		WebhooksReady:    true,
		TargetHealthy:    true,
		InScheduleWindow: true,
		Errors:           make([]string, 0),
		Warnings:         make([]string, 0),
		CredentialIssues: make([]models.CredentialIssue, 0),
	}

	e.checkTargetHealth(ctx, result)
	e.checkScheduleWindow(input.Policy, result)
	e.checkNodeSupport(input, result)
	e.checkWebhooks(input, result)

	if err := e.checkDrift(ctx, input, result); err != nil {
		return nil, err
	}

	if err := e.checkCredentials(ctx, input, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (e *Evaluator) checkTargetHealth(ctx context.Context, result *models.GateResult) {
	if err := e.target.TestConnection(ctx); err != nil {
		result.TargetHealthy = false
		result.Errors = append(result.Errors, fmt.Sprintf("target environment is unhealthy: %v", err))
	}
}

func (e *Evaluator) checkNodeSupport(input Input, result *models.GateResult) {
	if len(input.Policy.UnsupportedNodeTypes) == 0 {
		return
	}

	unsupported := make(map[string]bool, len(input.Policy.UnsupportedNodeTypes))
	for _, nodeType := range input.Policy.UnsupportedNodeTypes {
		unsupported[nodeType] = true
	}

	for _, workflow := range input.SourceWorkflows {
		for _, node := range workflow.Nodes {
			if unsupported[node.Type] {
				result.NodeSupportOK = false
				result.Errors = append(result.Errors, fmt.Sprintf(
					"workflow %q uses node type %s, which the target does not support",
					workflow.Name, node.Type))
			}
		}
	}
}

func (e *Evaluator) checkWebhooks(input Input, result *models.GateResult) {
	for _, workflow := range input.SourceWorkflows {
		for _, node := range workflow.Nodes {
			if !strings.Contains(strings.ToLower(node.Type), "webhook") || node.Disabled {
				continue
			}

			if node.WebhookID == "" {
				result.WebhooksReady = false
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"workflow %q node %q has no webhook id; the target will assign a new endpoint",
					workflow.Name, node.Name))
			}
		}
	}
}

// checkDrift compares the live target against its last known-good snapshot.
// Without any snapshot the drift state is unknown, which only warns.
func (e *Evaluator) checkDrift(ctx context.Context, input Input, result *models.GateResult) error {
	lastKnownGood, err := e.snapshots.LatestByEnvironment(ctx, input.TenantID, input.Target.ID, "")
	if persistence.IsSnapshotNotFound(err) {
		result.Warnings = append(result.Warnings, "no snapshot exists for the target environment; drift state is unknown")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to load last snapshot for drift check: %w", err)
	}

	if lastKnownGood.CommitReference == "" {
		result.Warnings = append(result.Warnings, "last snapshot has no commit reference; drift state is unknown")

		return nil
	}

	live, err := e.target.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list target workflows for drift check: %w", err)
	}

	stored, err := e.store.ListFilesUnder(ctx, input.Target.SnapshotPath, lastKnownGood.CommitReference)
	if err != nil {
		return fmt.Errorf("failed to read snapshot content for drift check: %w", err)
	}

	drifted, err := driftedWorkflows(live, stored)
	if err != nil {
		return err
	}

	if len(drifted) == 0 {
		return nil
	}

	result.DriftClean = false

	message := fmt.Sprintf("target has drifted from snapshot %s: %s",
		lastKnownGood.ID, strings.Join(drifted, ", "))

	if input.Policy.RequireCleanDrift {
		result.Errors = append(result.Errors, message)
	} else {
		result.Warnings = append(result.Warnings, message)
	}

	e.publish(ctx, input.Target.ID, events.DriftDetected{
		BaseEvent:         events.NewBaseEvent(events.DriftDetectedEvent, input.TenantID, input.Target.ID),
		SnapshotID:        lastKnownGood.ID,
		DriftedWorkflows:  drifted,
		BlockingPromotion: input.Policy.RequireCleanDrift,
	})

	return nil
}

func driftedWorkflows(live []*models.Workflow, stored map[string]string) ([]string, error) {
	storedHashes := make(map[string]string, len(stored))

	for id, content := range stored {
		workflow, err := normalize.ParseWorkflow([]byte(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored workflow %s: %w", id, err)
		}

		hash, err := normalize.ContentHash(workflow)
		if err != nil {
			return nil, err
		}

		storedHashes[id] = hash
	}

	drifted := make([]string, 0)

	for _, workflow := range live {
		hash, err := normalize.ContentHash(workflow)
		if err != nil {
			return nil, err
		}

		storedHash, exists := storedHashes[workflow.ID]
		if !exists || storedHash != hash {
			drifted = append(drifted, workflow.ID)
		}
	}

	return drifted, nil
}

func (e *Evaluator) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "failed to publish gate event", "event_type", event.GetType(), "error", err)
	}
}
