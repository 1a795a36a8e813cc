package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
)

// CredentialRepository handles logical credential and mapping operations.
type CredentialRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *CredentialRepository) SaveLogicalCredential(ctx context.Context, credential *models.LogicalCredential) error {
	query := `
		INSERT INTO logical_credentials (id, tenant_id, provider, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, provider, name) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		credential.ID,
		credential.TenantID,
		credential.Provider,
		credential.Name,
		credential.CreatedAt,
	)
	if err != nil {
		return &persistence.StoreError{Op: "SaveLogicalCredential", ID: credential.ID, Err: err}
	}

	return nil
}

func (r *CredentialRepository) SaveMapping(ctx context.Context, mapping *models.CredentialMapping) error {
	query := `
		INSERT INTO credential_mappings
			(id, tenant_id, environment, provider, logical_credential_id, physical_type, physical_name, placeholder, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, environment, logical_credential_id) DO UPDATE SET
			physical_type = EXCLUDED.physical_type,
			physical_name = EXCLUDED.physical_name,
			placeholder = EXCLUDED.placeholder
	`

	_, err := r.db.ExecContext(ctx, query,
		mapping.ID,
		mapping.TenantID,
		mapping.Environment,
		mapping.Provider,
		mapping.LogicalCredentialID,
		mapping.PhysicalType,
		mapping.PhysicalName,
		mapping.Placeholder,
		mapping.CreatedAt,
	)
	if err != nil {
		return &persistence.StoreError{Op: "SaveMapping", ID: mapping.ID, Err: err}
	}

	return nil
}

func (r *CredentialRepository) FindMapping(ctx context.Context, tenantID, environment, credentialType, logicalName string) (*models.CredentialMapping, error) {
	query := `
		SELECT
			m.id
		  , m.tenant_id
		  , m.environment
		  , m.provider
		  , m.logical_credential_id
		  , m.physical_type
		  , m.physical_name
		  , m.placeholder
		  , m.created_at
		FROM credential_mappings m
		JOIN logical_credentials l ON l.id = m.logical_credential_id
		WHERE m.tenant_id = $1
		  AND m.environment = $2
		  AND l.provider = $3
		  AND l.name = $4
	`

	var mapping models.CredentialMapping

	err := r.db.QueryRowContext(ctx, query, tenantID, environment, credentialType, logicalName).Scan(
		&mapping.ID,
		&mapping.TenantID,
		&mapping.Environment,
		&mapping.Provider,
		&mapping.LogicalCredentialID,
		&mapping.PhysicalType,
		&mapping.PhysicalName,
		&mapping.Placeholder,
		&mapping.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrMappingNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan credential mapping: %w", err)
	}

	return &mapping, nil
}
