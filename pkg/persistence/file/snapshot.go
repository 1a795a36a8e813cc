package file

import (
	"context"
	"encoding/json"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
)

const snapshotCollection = "snapshots"

// SnapshotRepository stores snapshot records as JSON files.
type SnapshotRepository struct {
	root string
}

func (r *SnapshotRepository) Save(_ context.Context, snapshot *models.Snapshot) error {
	return writeRecord(r.root, snapshotCollection, snapshot.ID, snapshot)
}

func (r *SnapshotRepository) GetByID(_ context.Context, tenantID, id string) (*models.Snapshot, error) {
	var snapshot models.Snapshot

	found, err := readRecord(r.root, snapshotCollection, id, &snapshot)
	if err != nil {
		return nil, err
	}

	if !found || snapshot.TenantID != tenantID {
		return nil, persistence.ErrSnapshotNotFound
	}

	return &snapshot, nil
}

func (r *SnapshotRepository) LatestByEnvironment(_ context.Context, tenantID, environmentID string, snapshotType models.SnapshotType) (*models.Snapshot, error) {
	var latest *models.Snapshot

	err := eachRecord(r.root, snapshotCollection, func(data []byte) error {
		var snapshot models.Snapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return err
		}

		if snapshot.TenantID != tenantID || snapshot.EnvironmentID != environmentID {
			return nil
		}

		if snapshotType != "" && snapshot.Type != snapshotType {
			return nil
		}

		if latest == nil || snapshot.CreatedAt.After(latest.CreatedAt) {
			copied := snapshot
			latest = &copied
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if latest == nil {
		return nil, persistence.ErrSnapshotNotFound
	}

	return latest, nil
}
