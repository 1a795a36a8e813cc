package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *RESTClient {
	return NewRESTClient(&models.Environment{
		BaseURL: serverURL,
		APIKey:  "secret-key",
	}, retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond})
}

func workflowJSON(id string) map[string]any {
	return map[string]any{
		"id":   id,
		"name": "workflow " + id,
		"nodes": []map[string]any{
			{"id": "node-1", "name": "Step", "type": "http_request"},
		},
		"connections": map[string]any{},
	}
}

func TestListWorkflows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "/api/v1/workflows", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{workflowJSON("wf-1"), workflowJSON("wf-2")},
		})
	}))
	defer server.Close()

	workflows, err := testClient(server.URL).ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "wf-1", workflows[0].ID)
}

func TestGetWorkflowNotFound(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetWorkflow(context.Background(), "missing")
	require.ErrorIs(t, err, ErrWorkflowNotFound)
	assert.True(t, IsNotFound(err))

	// Not-found is permanent, never retried.
	assert.Equal(t, int32(1), requests.Load())
}

func TestUpdateWorkflowRetriesServerErrors(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		assert.Equal(t, http.MethodPut, r.Method)
		_ = json.NewEncoder(w).Encode(workflowJSON("wf-1"))
	}))
	defer server.Close()

	workflow, err := testClient(server.URL).UpdateWorkflow(context.Background(), "wf-1", &models.Workflow{
		ID:          "wf-1",
		Name:        "workflow wf-1",
		Nodes:       []*models.Node{{ID: "node-1", Name: "Step", Type: "http_request"}},
		Connections: map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, "wf-1", workflow.ID)
	assert.Equal(t, int32(3), requests.Load())
}

func TestCreateWorkflowClientErrorNotRetried(t *testing.T) {
	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid workflow"}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).CreateWorkflow(context.Background(), &models.Workflow{
		Name:        "broken",
		Nodes:       []*models.Node{},
		Connections: map[string]any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), requests.Load())
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer server.Close()

	require.NoError(t, testClient(server.URL).TestConnection(context.Background()))
}
