package gate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/stagehand/pkg/mocks"
	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testEnvironment() *models.Environment {
	return &models.Environment{
		ID:           "production",
		TenantID:     "tenant-1",
		Name:         "Production",
		BaseURL:      "https://prod.example.com",
		APIKey:       "key",
		SnapshotPath: "environments/production",
	}
}

func sourceWorkflow(id string, nodes ...*models.Node) *models.Workflow {
	return &models.Workflow{
		ID:          id,
		Name:        "workflow " + id,
		Active:      true,
		Nodes:       nodes,
		Connections: map[string]any{},
	}
}

func selectedChange(id string) models.WorkflowSelection {
	return models.WorkflowSelection{
		WorkflowID:   id,
		WorkflowName: "workflow " + id,
		ChangeType:   models.ChangeTypeChanged,
		Selected:     true,
	}
}

func newTestEvaluator(target *mocks.MockRuntimeClient, store *mocks.MockStore, snapshots *mocks.MockSnapshotRepository, credentials *mocks.MockCredentialRepository) *Evaluator {
	return NewEvaluator(slog.Default(), target, store, snapshots, credentials, nil)
}

func TestEvaluatePassesOnHealthyTarget(t *testing.T) {
	target := &mocks.MockRuntimeClient{}
	target.On("TestConnection", mock.Anything).Return(nil)

	snapshots := &mocks.MockSnapshotRepository{}
	snapshots.On("LatestByEnvironment", mock.Anything, "tenant-1", "production", models.SnapshotType("")).
		Return(nil, persistence.ErrSnapshotNotFound)

	credentials := &mocks.MockCredentialRepository{}
	credentials.On("FindMapping", mock.Anything, "tenant-1", "production", "httpAuth", "api-key").
		Return(&models.CredentialMapping{PhysicalName: "api-key-prod"}, nil)

	workflow := sourceWorkflow("wf-1", &models.Node{
		ID:   "node-1",
		Name: "Call",
		Type: "http_request",
		Credentials: map[string]models.CredentialRef{
			"httpAuth": {Name: "api-key"},
		},
	})

	evaluator := newTestEvaluator(target, &mocks.MockStore{}, snapshots, credentials)

	result, err := evaluator.Evaluate(context.Background(), Input{
		TenantID:        "tenant-1",
		Target:          testEnvironment(),
		Selections:      []models.WorkflowSelection{selectedChange("wf-1")},
		SourceWorkflows: map[string]*models.Workflow{"wf-1": workflow},
	})
	require.NoError(t, err)

	assert.True(t, result.Passed())
	assert.True(t, result.TargetHealthy)
	assert.True(t, result.CredentialsReady)

	// No snapshot yet means drift state is unknown, which only warns.
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "drift state is unknown")
}

func TestEvaluateBlocksUnhealthyTarget(t *testing.T) {
	target := &mocks.MockRuntimeClient{}
	target.On("TestConnection", mock.Anything).Return(errors.New("connection refused"))

	snapshots := &mocks.MockSnapshotRepository{}
	snapshots.On("LatestByEnvironment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, persistence.ErrSnapshotNotFound)

	evaluator := newTestEvaluator(target, &mocks.MockStore{}, snapshots, &mocks.MockCredentialRepository{})

	result, err := evaluator.Evaluate(context.Background(), Input{
		TenantID: "tenant-1",
		Target:   testEnvironment(),
	})
	require.NoError(t, err)

	assert.False(t, result.Passed())
	assert.False(t, result.TargetHealthy)
}

func TestEvaluateBlocksMissingCredentialMapping(t *testing.T) {
	target := &mocks.MockRuntimeClient{}
	target.On("TestConnection", mock.Anything).Return(nil)

	snapshots := &mocks.MockSnapshotRepository{}
	snapshots.On("LatestByEnvironment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, persistence.ErrSnapshotNotFound)

	credentials := &mocks.MockCredentialRepository{}
	credentials.On("FindMapping", mock.Anything, "tenant-1", "production", "slackApi", "ops-slack").
		Return(nil, persistence.ErrMappingNotFound)

	workflow := sourceWorkflow("wf-1", &models.Node{
		ID:   "node-1",
		Name: "Notify",
		Type: "slack",
		Credentials: map[string]models.CredentialRef{
			"slackApi": {Name: "ops-slack"},
		},
	})

	evaluator := newTestEvaluator(target, &mocks.MockStore{}, snapshots, credentials)

	result, err := evaluator.Evaluate(context.Background(), Input{
		TenantID:        "tenant-1",
		Target:          testEnvironment(),
		Selections:      []models.WorkflowSelection{selectedChange("wf-1")},
		SourceWorkflows: map[string]*models.Workflow{"wf-1": workflow},
	})
	require.NoError(t, err)

	assert.False(t, result.Passed())
	assert.False(t, result.CredentialsReady)
	require.Len(t, result.CredentialIssues, 1)
	assert.Equal(t, models.CredentialIssueMissingMapping, result.CredentialIssues[0].IssueKind)
	assert.False(t, result.CredentialIssues[0].PlaceholderCreated)
}

func TestEvaluateCreatesPlaceholderWhenAllowed(t *testing.T) {
	target := &mocks.MockRuntimeClient{}
	target.On("TestConnection", mock.Anything).Return(nil)

	snapshots := &mocks.MockSnapshotRepository{}
	snapshots.On("LatestByEnvironment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, persistence.ErrSnapshotNotFound)

	credentials := &mocks.MockCredentialRepository{}
	credentials.On("FindMapping", mock.Anything, "tenant-1", "production", "slackApi", "ops-slack").
		Return(nil, persistence.ErrMappingNotFound)
	credentials.On("SaveLogicalCredential", mock.Anything, mock.MatchedBy(func(c *models.LogicalCredential) bool {
		return c.Name == "ops-slack" && c.Provider == "slackApi"
	})).Return(nil)
	credentials.On("SaveMapping", mock.Anything, mock.MatchedBy(func(m *models.CredentialMapping) bool {
		return m.Placeholder && m.Environment == "production"
	})).Return(nil)

	workflow := sourceWorkflow("wf-1", &models.Node{
		ID:   "node-1",
		Name: "Notify",
		Type: "slack",
		Credentials: map[string]models.CredentialRef{
			"slackApi": {Name: "ops-slack"},
		},
	})

	evaluator := newTestEvaluator(target, &mocks.MockStore{}, snapshots, credentials)

	result, err := evaluator.Evaluate(context.Background(), Input{
		TenantID:        "tenant-1",
		Target:          testEnvironment(),
		Policy:          models.PromotionPolicy{CreatePlaceholderCredentials: true},
		Selections:      []models.WorkflowSelection{selectedChange("wf-1")},
		SourceWorkflows: map[string]*models.Workflow{"wf-1": workflow},
	})
	require.NoError(t, err)

	assert.True(t, result.Passed())
	require.Len(t, result.CredentialIssues, 1)
	assert.True(t, result.CredentialIssues[0].PlaceholderCreated)
	assert.Equal(t, map[string]bool{"wf-1": true}, result.PlaceholderWorkflowIDs())

	credentials.AssertExpectations(t)
}

func TestEvaluateBlocksUnsupportedNodeTypes(t *testing.T) {
	target := &mocks.MockRuntimeClient{}
	target.On("TestConnection", mock.Anything).Return(nil)

	snapshots := &mocks.MockSnapshotRepository{}
	snapshots.On("LatestByEnvironment", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, persistence.ErrSnapshotNotFound)

	workflow := sourceWorkflow("wf-1", &models.Node{
		ID:   "node-1",
		Name: "Exec",
		Type: "execute_command",
	})

	evaluator := newTestEvaluator(target, &mocks.MockStore{}, snapshots, &mocks.MockCredentialRepository{})

	result, err := evaluator.Evaluate(context.Background(), Input{
		TenantID:        "tenant-1",
		Target:          testEnvironment(),
		Policy:          models.PromotionPolicy{UnsupportedNodeTypes: []string{"execute_command"}},
		SourceWorkflows: map[string]*models.Workflow{"wf-1": workflow},
	})
	require.NoError(t, err)

	assert.False(t, result.Passed())
	assert.False(t, result.NodeSupportOK)
	assert.Contains(t, result.Errors[0], "execute_command")
}

func TestEvaluateDriftDetection(t *testing.T) {
	stored := sourceWorkflow("wf-1", &models.Node{
		ID:         "node-1",
		Name:       "Step",
		Type:       "http_request",
		Parameters: map[string]any{"url": "https://original"},
	})
	storedJSON, err := json.Marshal(stored)
	require.NoError(t, err)

	// The live copy was edited out of band after the snapshot.
	live := sourceWorkflow("wf-1", &models.Node{
		ID:         "node-1",
		Name:       "Step",
		Type:       "http_request",
		Parameters: map[string]any{"url": "https://edited-out-of-band"},
	})

	tests := []struct {
		name              string
		requireCleanDrift bool
		wantPassed        bool
	}{
		{name: "drift blocks when policy requires clean drift", requireCleanDrift: true, wantPassed: false},
		{name: "drift only warns by default", requireCleanDrift: false, wantPassed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &mocks.MockRuntimeClient{}
			target.On("TestConnection", mock.Anything).Return(nil)
			target.On("ListWorkflows", mock.Anything).Return([]*models.Workflow{live}, nil)

			snapshots := &mocks.MockSnapshotRepository{}
			snapshots.On("LatestByEnvironment", mock.Anything, "tenant-1", "production", models.SnapshotType("")).
				Return(&models.Snapshot{ID: "snap-1", CommitReference: "abc123"}, nil)

			store := &mocks.MockStore{}
			store.On("ListFilesUnder", mock.Anything, "environments/production", "abc123").
				Return(map[string]string{"wf-1": string(storedJSON)}, nil)

			evaluator := newTestEvaluator(target, store, snapshots, &mocks.MockCredentialRepository{})

			result, err := evaluator.Evaluate(context.Background(), Input{
				TenantID: "tenant-1",
				Target:   testEnvironment(),
				Policy:   models.PromotionPolicy{RequireCleanDrift: tt.requireCleanDrift},
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantPassed, result.Passed())
			assert.False(t, result.DriftClean)
		})
	}
}
