package deals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

type PartyRepo interface {
	ListByDeal(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) ([]types.Party, error)
	ListByRole(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, role types.PartyRole) ([]types.Party, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Party, error)
	// ReplaceForRole swaps the whole role list atomically; positions are
	// rewritten from the slice order.
	ReplaceForRole(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, role types.PartyRole, parties []types.Party) ([]types.Party, error)
}

type partyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPartyRepo(db *gorm.DB, baseLog *logger.Logger) PartyRepo {
	repoLog := baseLog.With("repo", "PartyRepo")
	return &partyRepo{db: db, log: repoLog}
}

func (pr *partyRepo) ListByDeal(ctx context.Context, tx *gorm.DB, dealID uuid.UUID) ([]types.Party, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []types.Party
	if err := transaction.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("role ASC, position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *partyRepo) ListByRole(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, role types.PartyRole) ([]types.Party, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []types.Party
	if err := transaction.WithContext(ctx).
		Where("deal_id = ? AND role = ?", dealID, role).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *partyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Party, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result types.Party
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *partyRepo) ReplaceForRole(ctx context.Context, tx *gorm.DB, dealID uuid.UUID, role types.PartyRole, parties []types.Party) ([]types.Party, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	run := func(db *gorm.DB) error {
		if err := db.
			Unscoped().
			Where("deal_id = ? AND role = ?", dealID, role).
			Delete(&types.Party{}).Error; err != nil {
			return err
		}
		if len(parties) == 0 {
			return nil
		}
		for i := range parties {
			parties[i].DealID = dealID
			parties[i].Role = role
			parties[i].Position = i
		}
		return db.Create(&parties).Error
	}

	if tx != nil {
		if err := run(transaction.WithContext(ctx)); err != nil {
			return nil, err
		}
		return parties, nil
	}
	if err := transaction.WithContext(ctx).Transaction(run); err != nil {
		return nil, err
	}
	return parties, nil
}
