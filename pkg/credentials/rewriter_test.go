package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/stagehand/pkg/mocks"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func workflowWithCredentials() *models.Workflow {
	return &models.Workflow{
		ID:   "wf-1",
		Name: "billing-export",
		Nodes: []*models.Node{
			{
				ID:   "node-1",
				Name: "Export",
				Type: "http_request",
				Credentials: map[string]models.CredentialRef{
					"httpAuth": {ID: "cred-1", Name: "billing-api"},
				},
			},
			{
				ID:   "node-2",
				Name: "Notify",
				Type: "slack",
				Credentials: map[string]models.CredentialRef{
					"slackApi": {ID: "cred-2", Name: "ops-slack"},
				},
			},
			{
				ID:   "node-3",
				Name: "Log",
				Type: "log",
			},
		},
	}
}

func TestRewriteSubstitutesMappedCredentials(t *testing.T) {
	repo := &mocks.MockCredentialRepository{}
	repo.On("FindMapping", mock.Anything, "tenant-1", "production", "httpAuth", "billing-api").
		Return(&models.CredentialMapping{PhysicalName: "billing-api-prod"}, nil)
	repo.On("FindMapping", mock.Anything, "tenant-1", "production", "slackApi", "ops-slack").
		Return(nil, persistence.ErrMappingNotFound)

	source := workflowWithCredentials()

	rewritten, rewrites, err := Rewrite(context.Background(), source, "tenant-1", "production", repo)
	require.NoError(t, err)

	// Mapped reference substituted.
	assert.Equal(t, "billing-api-prod", rewritten.Nodes[0].Credentials["httpAuth"].Name)

	// Unmapped reference left untouched.
	assert.Equal(t, "ops-slack", rewritten.Nodes[1].Credentials["slackApi"].Name)

	// The source workflow is never mutated.
	assert.Equal(t, "billing-api", source.Nodes[0].Credentials["httpAuth"].Name)

	require.Len(t, rewrites, 1)
	assert.Equal(t, models.CredentialRewrite{
		WorkflowID:     "wf-1",
		NodeID:         "node-1",
		CredentialType: "httpAuth",
		Original:       "billing-api",
		RewrittenTo:    "billing-api-prod",
	}, rewrites[0])

	repo.AssertExpectations(t)
}

func TestRewriteSkipsIdentityAndEmptyMappings(t *testing.T) {
	repo := &mocks.MockCredentialRepository{}
	repo.On("FindMapping", mock.Anything, "tenant-1", "production", "httpAuth", "billing-api").
		Return(&models.CredentialMapping{PhysicalName: "billing-api"}, nil)
	repo.On("FindMapping", mock.Anything, "tenant-1", "production", "slackApi", "ops-slack").
		Return(&models.CredentialMapping{PhysicalName: ""}, nil)

	rewritten, rewrites, err := Rewrite(context.Background(), workflowWithCredentials(), "tenant-1", "production", repo)
	require.NoError(t, err)

	assert.Empty(t, rewrites)
	assert.Equal(t, "billing-api", rewritten.Nodes[0].Credentials["httpAuth"].Name)
	assert.Equal(t, "ops-slack", rewritten.Nodes[1].Credentials["slackApi"].Name)
}

func TestRewriteLookupFailure(t *testing.T) {
	repo := &mocks.MockCredentialRepository{}
	repo.On("FindMapping", mock.Anything, "tenant-1", "production", "httpAuth", "billing-api").
		Return(nil, errors.New("connection refused"))

	_, _, err := Rewrite(context.Background(), workflowWithCredentials(), "tenant-1", "production", repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing-api")
}
