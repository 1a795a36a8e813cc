package promotion

import (
	"context"

	"github.com/dukex/stagehand/pkg/models"
)

// PostApplyHook runs after a workflow was successfully applied to the
// target. Hooks are best-effort side-channel bookkeeping: each is wrapped,
// failures are logged and never escalate to a promotion failure.
type PostApplyHook struct {
	Name string
	Run  func(ctx context.Context, workflow *models.Workflow) error
}

// CanonicalLookup is the external canonical-workflow bookkeeping system,
// reduced to the one call the executor needs: recording where a canonical
// workflow identity now lives.
type CanonicalLookup interface {
	RecordPromotion(ctx context.Context, tenantID, canonicalID, environmentID, workflowID string) error
}

// CanonicalMappingHook updates the canonical identity map after each apply.
func CanonicalMappingHook(lookup CanonicalLookup, tenantID, environmentID string) PostApplyHook {
	return PostApplyHook{
		Name: "canonical_identity_mapping",
		Run: func(ctx context.Context, workflow *models.Workflow) error {
			return lookup.RecordPromotion(ctx, tenantID, workflow.ID, environmentID, workflow.ID)
		},
	}
}
