// Package persistence provides the data-access contracts for promotion
// records: snapshots, promotions, credential mappings and the audit log.
// All queries are tenant-scoped.
package persistence

import (
	"context"

	"github.com/dukex/stagehand/pkg/models"
)

// SnapshotRepository stores immutable snapshot records.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *models.Snapshot) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Snapshot, error)

	// LatestByEnvironment returns the most recent snapshot of an
	// environment, optionally filtered by type (empty means any). The
	// gate's drift check uses it as the last known-good state.
	LatestByEnvironment(ctx context.Context, tenantID, environmentID string, snapshotType models.SnapshotType) (*models.Snapshot, error)
}

// PromotionRepository stores promotion attempts.
type PromotionRepository interface {
	Save(ctx context.Context, promotion *models.Promotion) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Promotion, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status models.PromotionStatus) error

	// ActiveByTargetEnvironment returns the running promotion targeting an
	// environment, or ErrPromotionNotFound when there is none.
	ActiveByTargetEnvironment(ctx context.Context, tenantID, environmentID string) (*models.Promotion, error)
}

// CredentialRepository stores logical credentials and their per-environment
// mappings.
type CredentialRepository interface {
	SaveLogicalCredential(ctx context.Context, credential *models.LogicalCredential) error
	SaveMapping(ctx context.Context, mapping *models.CredentialMapping) error

	// FindMapping resolves (tenant, environment, credential type, logical
	// name) to a physical credential, or ErrMappingNotFound.
	FindMapping(ctx context.Context, tenantID, environment, credentialType, logicalName string) (*models.CredentialMapping, error)
}

// AuditLogRepository appends immutable audit entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListByPromotion(ctx context.Context, tenantID, promotionID string) ([]*models.AuditLogEntry, error)
}

// Persistence bundles every repository behind one connection lifecycle.
type Persistence interface {
	SnapshotRepository() SnapshotRepository
	PromotionRepository() PromotionRepository
	CredentialRepository() CredentialRepository
	AuditLogRepository() AuditLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
