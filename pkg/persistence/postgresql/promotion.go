package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/dukex/stagehand/pkg/persistence"
)

// PromotionRepository handles promotion database operations.
type PromotionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *PromotionRepository) Save(ctx context.Context, promotion *models.Promotion) error {
	query := `
		INSERT INTO promotions (id, tenant_id, source_environment, target_environment, status, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at
	`

	_, err := r.db.ExecContext(ctx, query,
		promotion.ID,
		promotion.TenantID,
		promotion.SourceEnvironment,
		promotion.TargetEnvironment,
		string(promotion.Status),
		promotion.CreatedAt,
		promotion.FinishedAt,
	)
	if err != nil {
		return &persistence.StoreError{Op: "SavePromotion", ID: promotion.ID, Err: err}
	}

	return nil
}

func (r *PromotionRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Promotion, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , source_environment
		  , target_environment
		  , status
		  , created_at
		  , finished_at
		FROM promotions
		WHERE tenant_id = $1 AND id = $2
	`

	return r.scanPromotion(r.db.QueryRowContext(ctx, query, tenantID, id))
}

func (r *PromotionRepository) UpdateStatus(ctx context.Context, tenantID, id string, status models.PromotionStatus) error {
	var finishedAt *time.Time

	if status == models.PromotionStatusCompleted || status == models.PromotionStatusFailed {
		now := time.Now().UTC()
		finishedAt = &now
	}

	query := `
		UPDATE promotions
		SET status = $3, finished_at = COALESCE($4, finished_at)
		WHERE tenant_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, id, string(status), finishedAt)
	if err != nil {
		return &persistence.StoreError{Op: "UpdatePromotionStatus", ID: id, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrPromotionNotFound
	}

	return nil
}

func (r *PromotionRepository) ActiveByTargetEnvironment(ctx context.Context, tenantID, environmentID string) (*models.Promotion, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , source_environment
		  , target_environment
		  , status
		  , created_at
		  , finished_at
		FROM promotions
		WHERE tenant_id = $1 AND target_environment = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanPromotion(r.db.QueryRowContext(ctx, query, tenantID, environmentID, string(models.PromotionStatusRunning)))
}

func (r *PromotionRepository) scanPromotion(row *sql.Row) (*models.Promotion, error) {
	var promotion models.Promotion

	err := row.Scan(
		&promotion.ID,
		&promotion.TenantID,
		&promotion.SourceEnvironment,
		&promotion.TargetEnvironment,
		&promotion.Status,
		&promotion.CreatedAt,
		&promotion.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrPromotionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan promotion: %w", err)
	}

	return &promotion, nil
}
