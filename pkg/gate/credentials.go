package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/stagehand/pkg/events"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/google/uuid"
)

// checkCredentials verifies every credential reference in the selected
// source workflows resolves to a mapping in the target environment. A
// missing mapping blocks the promotion unless the policy lets the gate
// create a disabled placeholder for it, in which case the workflow will be
// promoted inactive and the issue is only a warning.
func (e *Evaluator) checkCredentials(ctx context.Context, input Input, result *models.GateResult) error {
	seen := make(map[string]bool)

	for _, selection := range input.Selections {
		if !selection.Selected {
			continue
		}

		workflow, exists := input.SourceWorkflows[selection.WorkflowID]
		if !exists {
			continue
		}

		for _, node := range workflow.Nodes {
			for credentialType, ref := range node.Credentials {
				key := workflow.ID + "/" + credentialType + "/" + ref.Name
				if seen[key] {
					continue
				}

				seen[key] = true

				_, err := e.credentials.FindMapping(ctx, input.TenantID, input.Target.ID, credentialType, ref.Name)
				if err == nil {
					continue
				}

				if !persistence.IsMappingNotFound(err) {
					return fmt.Errorf("failed credential preflight for %s/%s: %w", credentialType, ref.Name, err)
				}

				issue := models.CredentialIssue{
					WorkflowID:     workflow.ID,
					CredentialType: credentialType,
					CredentialName: ref.Name,
					IssueKind:      models.CredentialIssueMissingMapping,
				}

				if input.Policy.CreatePlaceholderCredentials {
					if err := e.createPlaceholder(ctx, input, credentialType, ref.Name); err != nil {
						return err
					}

					issue.PlaceholderCreated = true
					result.Warnings = append(result.Warnings, fmt.Sprintf(
						"created disabled placeholder mapping for %s/%s; workflow %q will be promoted inactive",
						credentialType, ref.Name, workflow.Name))
				} else {
					result.CredentialsReady = false
					result.Errors = append(result.Errors, fmt.Sprintf(
						"no credential mapping for %s/%s referenced by workflow %q",
						credentialType, ref.Name, workflow.Name))
				}

				result.CredentialIssues = append(result.CredentialIssues, issue)

				e.publish(ctx, input.Target.ID, events.CredentialMissing{
					BaseEvent:          events.NewBaseEvent(events.CredentialMissingEvent, input.TenantID, input.Target.ID),
					WorkflowID:         workflow.ID,
					CredentialType:     credentialType,
					CredentialName:     ref.Name,
					PlaceholderCreated: issue.PlaceholderCreated,
				})
			}
		}
	}

	return nil
}

// createPlaceholder records the logical credential and a disabled
// placeholder mapping so the promotion can proceed without inventing a live
// credential. The physical name mirrors the logical one; Placeholder marks
// it so the executor forces the workflow inactive.
func (e *Evaluator) createPlaceholder(ctx context.Context, input Input, credentialType, logicalName string) error {
	now := time.Now().UTC()

	logical := &models.LogicalCredential{
		ID:        uuid.New().String(),
		TenantID:  input.TenantID,
		Provider:  credentialType,
		Name:      logicalName,
		CreatedAt: now,
	}

	if err := e.credentials.SaveLogicalCredential(ctx, logical); err != nil {
		return fmt.Errorf("failed to save logical credential %s/%s: %w", credentialType, logicalName, err)
	}

	mapping := &models.CredentialMapping{
		ID:                  uuid.New().String(),
		TenantID:            input.TenantID,
		Environment:         input.Target.ID,
		Provider:            credentialType,
		LogicalCredentialID: logical.ID,
		PhysicalType:        credentialType,
		PhysicalName:        logicalName,
		Placeholder:         true,
		CreatedAt:           now,
	}

	if err := e.credentials.SaveMapping(ctx, mapping); err != nil {
		return fmt.Errorf("failed to save placeholder mapping %s/%s: %w", credentialType, logicalName, err)
	}

	return nil
}
