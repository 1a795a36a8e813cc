package mocks

import (
	"context"

	"github.com/dukex/stagehand/pkg/eventbus"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock implementation of eventbus.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

// MockLease is a mock implementation of lease.Lease.
type MockLease struct {
	mock.Mock
}

func (m *MockLease) Acquire(ctx context.Context, environmentID, promotionID string) error {
	args := m.Called(ctx, environmentID, promotionID)

	return args.Error(0)
}

func (m *MockLease) Release(ctx context.Context, environmentID, promotionID string) error {
	args := m.Called(ctx, environmentID, promotionID)

	return args.Error(0)
}
