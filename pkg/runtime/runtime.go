// Package runtime abstracts the workflow runtime API of one environment.
// The promotion core only ever talks to a runtime through Client, so tests
// substitute fakes and "not found" is a typed outcome instead of a parsed
// error string.
package runtime

import (
	"context"
	"errors"

	"github.com/dukex/stagehand/pkg/models"
)

// ErrWorkflowNotFound is the typed not-found outcome. The executor treats
// it as "create instead of update", never as a failure by itself.
var ErrWorkflowNotFound = errors.New("workflow not found in runtime")

// Client is the per-environment workflow runtime API.
type Client interface {
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error)
	TestConnection(ctx context.Context) error
}

// IsNotFound reports whether err is the typed not-found outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
