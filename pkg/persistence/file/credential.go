package file

import (
	"context"
	"encoding/json"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
)

const (
	logicalCollection = "logical_credentials"
	mappingCollection = "credential_mappings"
)

// CredentialRepository stores logical credentials and mappings as JSON files.
type CredentialRepository struct {
	root string
}

func (r *CredentialRepository) SaveLogicalCredential(_ context.Context, credential *models.LogicalCredential) error {
	return writeRecord(r.root, logicalCollection, credential.ID, credential)
}

func (r *CredentialRepository) SaveMapping(_ context.Context, mapping *models.CredentialMapping) error {
	return writeRecord(r.root, mappingCollection, mapping.ID, mapping)
}

// FindMapping resolves a logical credential name to the physical credential
// of one environment by joining logical credentials and mappings in memory.
func (r *CredentialRepository) FindMapping(_ context.Context, tenantID, environment, credentialType, logicalName string) (*models.CredentialMapping, error) {
	var logical *models.LogicalCredential

	err := eachRecord(r.root, logicalCollection, func(data []byte) error {
		var candidate models.LogicalCredential
		if err := json.Unmarshal(data, &candidate); err != nil {
			return err
		}

		if candidate.TenantID == tenantID && candidate.Provider == credentialType && candidate.Name == logicalName {
			copied := candidate
			logical = &copied
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if logical == nil {
		return nil, persistence.ErrMappingNotFound
	}

	var mapping *models.CredentialMapping

	err = eachRecord(r.root, mappingCollection, func(data []byte) error {
		var candidate models.CredentialMapping
		if err := json.Unmarshal(data, &candidate); err != nil {
			return err
		}

		if candidate.TenantID == tenantID &&
			candidate.Environment == environment &&
			candidate.LogicalCredentialID == logical.ID {
			copied := candidate
			mapping = &copied
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if mapping == nil {
		return nil, persistence.ErrMappingNotFound
	}

	return mapping, nil
}
