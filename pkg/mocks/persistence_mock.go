package mocks

import (
	"context"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockSnapshotRepository is a mock implementation of
// persistence.SnapshotRepository.
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snapshot *models.Snapshot) error {
	args := m.Called(ctx, snapshot)

	return args.Error(0)
}

func (m *MockSnapshotRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Snapshot, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepository) LatestByEnvironment(ctx context.Context, tenantID, environmentID string, snapshotType models.SnapshotType) (*models.Snapshot, error) {
	args := m.Called(ctx, tenantID, environmentID, snapshotType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Snapshot), args.Error(1)
}

// MockPromotionRepository is a mock implementation of
// persistence.PromotionRepository.
type MockPromotionRepository struct {
	mock.Mock
}

func (m *MockPromotionRepository) Save(ctx context.Context, promotion *models.Promotion) error {
	args := m.Called(ctx, promotion)

	return args.Error(0)
}

func (m *MockPromotionRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Promotion, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Promotion), args.Error(1)
}

func (m *MockPromotionRepository) UpdateStatus(ctx context.Context, tenantID, id string, status models.PromotionStatus) error {
	args := m.Called(ctx, tenantID, id, status)

	return args.Error(0)
}

func (m *MockPromotionRepository) ActiveByTargetEnvironment(ctx context.Context, tenantID, environmentID string) (*models.Promotion, error) {
	args := m.Called(ctx, tenantID, environmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Promotion), args.Error(1)
}

// MockCredentialRepository is a mock implementation of
// persistence.CredentialRepository.
type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) SaveLogicalCredential(ctx context.Context, credential *models.LogicalCredential) error {
	args := m.Called(ctx, credential)

	return args.Error(0)
}

func (m *MockCredentialRepository) SaveMapping(ctx context.Context, mapping *models.CredentialMapping) error {
	args := m.Called(ctx, mapping)

	return args.Error(0)
}

func (m *MockCredentialRepository) FindMapping(ctx context.Context, tenantID, environment, credentialType, logicalName string) (*models.CredentialMapping, error) {
	args := m.Called(ctx, tenantID, environment, credentialType, logicalName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CredentialMapping), args.Error(1)
}

// MockAuditLogRepository is a mock implementation of
// persistence.AuditLogRepository.
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockAuditLogRepository) ListByPromotion(ctx context.Context, tenantID, promotionID string) ([]*models.AuditLogEntry, error) {
	args := m.Called(ctx, tenantID, promotionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.AuditLogEntry), args.Error(1)
}

// MockPersistence bundles the repository mocks behind the
// persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Snapshots   *MockSnapshotRepository
	Promotions  *MockPromotionRepository
	Credentials *MockCredentialRepository
	Audits      *MockAuditLogRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Snapshots:   &MockSnapshotRepository{},
		Promotions:  &MockPromotionRepository{},
		Credentials: &MockCredentialRepository{},
		Audits:      &MockAuditLogRepository{},
	}
}

func (m *MockPersistence) SnapshotRepository() persistence.SnapshotRepository {
	return m.Snapshots
}

func (m *MockPersistence) PromotionRepository() persistence.PromotionRepository {
	return m.Promotions
}

func (m *MockPersistence) CredentialRepository() persistence.CredentialRepository {
	return m.Credentials
}

func (m *MockPersistence) AuditLogRepository() persistence.AuditLogRepository {
	return m.Audits
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
