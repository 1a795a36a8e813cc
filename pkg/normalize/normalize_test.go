package normalize

import (
	"testing"
	"time"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildWorkflow(id string) *models.Workflow {
	updatedAt := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	return &models.Workflow{
		ID:        id,
		Name:      "order-sync",
		Active:    true,
		VersionID: "v-123",
		UpdatedAt: &updatedAt,
		Nodes: []*models.Node{
			{
				ID:       "node-2",
				Name:     "Send Email",
				Type:     "email",
				Position: []float64{200, 300},
				Parameters: map[string]any{
					"to": "ops@example.com",
				},
				Credentials: map[string]models.CredentialRef{
					"smtp": {ID: "cred-9", Name: "smtp-staging"},
				},
			},
			{
				ID:       "node-1",
				Name:     "Fetch Orders",
				Type:     "http_request",
				Position: []float64{100, 100},
				Parameters: map[string]any{
					"url": "https://api.example.com/orders",
				},
			},
		},
		Tags: []models.Tag{
			{ID: "tag-2", Name: "sales"},
			{ID: "tag-1", Name: "critical"},
		},
	}
}

func TestNormalizeStripsEnvironmentMetadata(t *testing.T) {
	normalized := Normalize(buildWorkflow("wf-1"))

	require.Len(t, normalized.Nodes, 2)

	// Nodes come back sorted by name, without ids or positions.
	assert.Equal(t, "Fetch Orders", normalized.Nodes[0].Name)
	assert.Equal(t, "Send Email", normalized.Nodes[1].Name)

	// Credential references are reduced to names.
	assert.Equal(t, map[string]string{"smtp": "smtp-staging"}, normalized.Nodes[1].Credentials)

	// Tags are reduced to sorted names.
	assert.Equal(t, []string{"critical", "sales"}, normalized.TagNames)
}

func TestContentHashStable(t *testing.T) {
	workflow := buildWorkflow("wf-1")

	first, err := ContentHash(workflow)
	require.NoError(t, err)

	second, err := ContentHash(workflow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestContentHashIgnoresEnvironmentSpecificEdits(t *testing.T) {
	base := buildWorkflow("wf-1")

	baseHash, err := ContentHash(base)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(w *models.Workflow)
	}{
		{
			name: "different workflow id",
			mutate: func(w *models.Workflow) {
				w.ID = "wf-other"
			},
		},
		{
			name: "node moved on canvas",
			mutate: func(w *models.Workflow) {
				w.Nodes[0].Position = []float64{999, 999}
			},
		},
		{
			name: "active flag toggled",
			mutate: func(w *models.Workflow) {
				w.Active = false
			},
		},
		{
			name: "version and trigger counters bumped",
			mutate: func(w *models.Workflow) {
				w.VersionID = "v-999"
				w.TriggerCount = 42
			},
		},
		{
			name: "credential id swapped, same name",
			mutate: func(w *models.Workflow) {
				w.Nodes[0].Credentials = map[string]models.CredentialRef{
					"smtp": {ID: "cred-other", Name: "smtp-staging"},
				}
			},
		},
		{
			name: "node order swapped",
			mutate: func(w *models.Workflow) {
				w.Nodes[0], w.Nodes[1] = w.Nodes[1], w.Nodes[0]
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := buildWorkflow("wf-1")
			tt.mutate(workflow)

			hash, err := ContentHash(workflow)
			require.NoError(t, err)

			assert.Equal(t, baseHash, hash)
		})
	}
}

func TestContentHashDetectsRealChanges(t *testing.T) {
	base := buildWorkflow("wf-1")

	baseHash, err := ContentHash(base)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(w *models.Workflow)
	}{
		{
			name: "parameter changed",
			mutate: func(w *models.Workflow) {
				w.Nodes[1].Parameters["url"] = "https://api.example.com/v2/orders"
			},
		},
		{
			name: "node disabled",
			mutate: func(w *models.Workflow) {
				w.Nodes[0].Disabled = true
			},
		},
		{
			name: "credential name changed",
			mutate: func(w *models.Workflow) {
				w.Nodes[0].Credentials = map[string]models.CredentialRef{
					"smtp": {ID: "cred-9", Name: "smtp-production"},
				}
			},
		},
		{
			name: "node renamed",
			mutate: func(w *models.Workflow) {
				w.Nodes[0].Name = "Send Slack Message"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := buildWorkflow("wf-1")
			tt.mutate(workflow)

			hash, err := ContentHash(workflow)
			require.NoError(t, err)

			assert.NotEqual(t, baseHash, hash)
		})
	}
}

func TestEqual(t *testing.T) {
	a := buildWorkflow("wf-a")
	b := buildWorkflow("wf-b")

	identical, err := Equal(a, b)
	require.NoError(t, err)
	assert.True(t, identical)

	b.Nodes[0].Parameters["to"] = "alerts@example.com"

	identical, err = Equal(a, b)
	require.NoError(t, err)
	assert.False(t, identical)
}
