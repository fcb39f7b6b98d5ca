package deals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

type DealRepo interface {
	Create(ctx context.Context, tx *gorm.DB, d *types.Deal) (*types.Deal, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Deal, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Deal, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.DealStatus) error
	UpdateProperty(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type dealRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDealRepo(db *gorm.DB, baseLog *logger.Logger) DealRepo {
	repoLog := baseLog.With("repo", "DealRepo")
	return &dealRepo{db: db, log: repoLog}
}

func (dr *dealRepo) Create(ctx context.Context, tx *gorm.DB, d *types.Deal) (*types.Deal, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if err := transaction.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (dr *dealRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Deal, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var result types.Deal
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (dr *dealRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Deal, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var results []*types.Deal
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (dr *dealRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.DealStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Deal{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (dr *dealRepo) UpdateProperty(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Deal{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (dr *dealRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Deal{}).Error
}
