// Package credentials rewrites node credential references from a source
// environment's logical names to the target environment's physical
// credentials.
package credentials

import (
	"context"
	"fmt"
	"sort"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
)

// MappingLookup resolves a logical credential name for one environment.
// persistence.CredentialRepository satisfies it.
type MappingLookup interface {
	FindMapping(ctx context.Context, tenantID, environment, credentialType, logicalName string) (*models.CredentialMapping, error)
}

// Rewrite returns a copy of the workflow with every mappable node
// credential reference substituted by the target environment's physical
// credential, plus one structured record per substitution for the audit
// trail. References without a mapping are left untouched; the gate
// evaluator has already flagged them.
func Rewrite(ctx context.Context, workflow *models.Workflow, tenantID, targetEnvironment string, lookup MappingLookup) (*models.Workflow, []models.CredentialRewrite, error) {
	rewritten := *workflow
	rewritten.Nodes = make([]*models.Node, len(workflow.Nodes))

	rewrites := make([]models.CredentialRewrite, 0)

	for i, node := range workflow.Nodes {
		copied := *node
		rewritten.Nodes[i] = &copied

		if len(node.Credentials) == 0 {
			continue
		}

		copied.Credentials = make(map[string]models.CredentialRef, len(node.Credentials))
		for credentialType, ref := range node.Credentials {
			copied.Credentials[credentialType] = ref
		}

		credentialTypes := make([]string, 0, len(node.Credentials))
		for credentialType := range node.Credentials {
			credentialTypes = append(credentialTypes, credentialType)
		}

		// Deterministic rewrite order keeps the audit record stable.
		sort.Strings(credentialTypes)

		for _, credentialType := range credentialTypes {
			ref := node.Credentials[credentialType]

			mapping, err := lookup.FindMapping(ctx, tenantID, targetEnvironment, credentialType, ref.Name)
			if persistence.IsMappingNotFound(err) {
				continue
			}

			if err != nil {
				return nil, nil, fmt.Errorf("failed to look up mapping for %s/%s: %w", credentialType, ref.Name, err)
			}

			if mapping.PhysicalName == "" || mapping.PhysicalName == ref.Name {
				continue
			}

			copied.Credentials[credentialType] = models.CredentialRef{Name: mapping.PhysicalName}

			rewrites = append(rewrites, models.CredentialRewrite{
				WorkflowID:     workflow.ID,
				NodeID:         node.ID,
				CredentialType: credentialType,
				Original:       ref.Name,
				RewrittenTo:    mapping.PhysicalName,
			})
		}
	}

	return &rewritten, rewrites, nil
}
