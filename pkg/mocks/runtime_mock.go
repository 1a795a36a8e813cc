// Package mocks provides testify mocks for the promotion core's
// collaborator interfaces.
package mocks

import (
	"context"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRuntimeClient is a mock implementation of runtime.Client.
type MockRuntimeClient struct {
	mock.Mock
}

func (m *MockRuntimeClient) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockRuntimeClient) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockRuntimeClient) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	args := m.Called(ctx, workflow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockRuntimeClient) UpdateWorkflow(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	args := m.Called(ctx, id, workflow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockRuntimeClient) TestConnection(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
