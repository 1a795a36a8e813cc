package file

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
)

const promotionCollection = "promotions"

// PromotionRepository stores promotion records as JSON files.
type PromotionRepository struct {
	root string
}

func (r *PromotionRepository) Save(_ context.Context, promotion *models.Promotion) error {
	return writeRecord(r.root, promotionCollection, promotion.ID, promotion)
}

func (r *PromotionRepository) GetByID(_ context.Context, tenantID, id string) (*models.Promotion, error) {
	var promotion models.Promotion

	found, err := readRecord(r.root, promotionCollection, id, &promotion)
	if err != nil {
		return nil, err
	}

	if !found || promotion.TenantID != tenantID {
		return nil, persistence.ErrPromotionNotFound
	}

	return &promotion, nil
}

func (r *PromotionRepository) UpdateStatus(ctx context.Context, tenantID, id string, status models.PromotionStatus) error {
	promotion, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	promotion.Status = status

	if status == models.PromotionStatusCompleted || status == models.PromotionStatusFailed {
		now := time.Now().UTC()
		promotion.FinishedAt = &now
	}

	return r.Save(ctx, promotion)
}

func (r *PromotionRepository) ActiveByTargetEnvironment(_ context.Context, tenantID, environmentID string) (*models.Promotion, error) {
	var active *models.Promotion

	err := eachRecord(r.root, promotionCollection, func(data []byte) error {
		var promotion models.Promotion
		if err := json.Unmarshal(data, &promotion); err != nil {
			return err
		}

		if promotion.TenantID != tenantID || promotion.TargetEnvironment != environmentID {
			return nil
		}

		if promotion.Status == models.PromotionStatusRunning {
			copied := promotion
			active = &copied
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if active == nil {
		return nil, persistence.ErrPromotionNotFound
	}

	return active, nil
}
