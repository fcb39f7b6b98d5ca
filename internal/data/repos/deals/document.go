package deals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, doc *types.Document) (*types.Document, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error)
	ListByDeal(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) ([]types.Document, error)
	Save(ctx context.Context, tx *gorm.DB, doc *types.Document) error
	UpdateRecognition(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByParties(ctx context.Context, tx *gorm.DB, partyIDs []uuid.UUID) error
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	repoLog := baseLog.With("repo", "DocumentRepo")
	return &documentRepo{db: db, log: repoLog}
}

func (dr *documentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.Document) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if err := transaction.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (dr *documentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var result types.Document
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (dr *documentRepo) ListByDeal(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) ([]types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var results []types.Document
	if err := transaction.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (dr *documentRepo) Save(ctx context.Context, tx *gorm.DB, doc *types.Document) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	return transaction.WithContext(ctx).Save(doc).Error
}

func (dr *documentRepo) UpdateRecognition(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if len(fields) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (dr *documentRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Document{}).Error
}

func (dr *documentRepo) DeleteByParties(ctx context.Context, tx *gorm.DB, partyIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if len(partyIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("party_id IN ?", partyIDs).
		Delete(&types.Document{}).Error
}
