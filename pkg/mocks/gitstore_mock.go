package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of gitstore.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) WriteFiles(ctx context.Context, files map[string]string, message string) (string, error) {
	args := m.Called(ctx, files, message)

	return args.String(0), args.Error(1)
}

func (m *MockStore) ReadFileAt(ctx context.Context, path, ref string) (string, error) {
	args := m.Called(ctx, path, ref)

	return args.String(0), args.Error(1)
}

func (m *MockStore) ListFilesUnder(ctx context.Context, dir, ref string) (map[string]string, error) {
	args := m.Called(ctx, dir, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockStore) LatestCommitFor(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)

	return args.String(0), args.Error(1)
}
