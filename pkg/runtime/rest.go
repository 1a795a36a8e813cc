package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/normalize"
	"github.com/dukex/stagehand/pkg/retry"
)

const (
	apiKeyHeader   = "X-API-Key"
	requestTimeout = 30 * time.Second
)

// RESTClient talks to a workflow runtime over its REST API. Transient
// failures (timeouts, 429, 5xx) are retried through the injected policy;
// other 4xx are not.
type RESTClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	policy     retry.Policy
}

// NewRESTClient builds a client for one environment's runtime API.
func NewRESTClient(environment *models.Environment, policy retry.Policy) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimSuffix(environment.BaseURL, "/"),
		apiKey:     environment.APIKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		policy:     policy,
	}
}

type workflowList struct {
	Data []json.RawMessage `json:"data"`
}

// ListWorkflows returns every workflow definition in the environment.
func (c *RESTClient) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/workflows", nil)
	if err != nil {
		return nil, err
	}

	var list workflowList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode workflow list: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(list.Data))

	for _, raw := range list.Data {
		workflow, err := normalize.ParseWorkflow(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse workflow from runtime: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// GetWorkflow returns one workflow by id.
func (c *RESTClient) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/workflows/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	return normalize.ParseWorkflow(body)
}

// CreateWorkflow creates a workflow definition in the environment.
func (c *RESTClient) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow %q: %w", workflow.Name, err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/workflows", payload)
	if err != nil {
		return nil, err
	}

	return normalize.ParseWorkflow(body)
}

// UpdateWorkflow replaces the workflow with the given id.
func (c *RESTClient) UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	payload, err := json.Marshal(workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow %q: %w", workflow.Name, err)
	}

	body, err := c.do(ctx, http.MethodPut, "/api/v1/workflows/"+url.PathEscape(id), payload)
	if err != nil {
		return nil, err
	}

	return normalize.ParseWorkflow(body)
}

// TestConnection verifies the runtime API answers authenticated requests.
func (c *RESTClient) TestConnection(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/v1/workflows", nil)

	return err
}

func (c *RESTClient) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body []byte

	err := c.policy.Do(ctx, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to build request: %w", err))
		}

		request.Header.Set(apiKeyHeader, c.apiKey)
		request.Header.Set("Content-Type", "application/json")

		response, err := c.httpClient.Do(request)
		if err != nil {
			// Network-level failures are transient by default.
			return fmt.Errorf("request to %s failed: %w", path, err)
		}

		defer func() {
			_ = response.Body.Close()
		}()

		data, err := io.ReadAll(response.Body)
		if err != nil {
			return fmt.Errorf("failed to read response from %s: %w", path, err)
		}

		switch {
		case response.StatusCode == http.StatusNotFound:
			return retry.Permanent(ErrWorkflowNotFound)
		case response.StatusCode >= 400 && !retry.RetryableStatus(response.StatusCode):
			return retry.Permanent(fmt.Errorf("runtime returned %d for %s %s: %s",
				response.StatusCode, method, path, strings.TrimSpace(string(data))))
		case response.StatusCode >= 400:
			return fmt.Errorf("runtime returned %d for %s %s", response.StatusCode, method, path)
		}

		body = data

		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}
