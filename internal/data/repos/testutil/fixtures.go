package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
)

func SeedDeal(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *types.Deal {
	tb.Helper()
	d := &types.Deal{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "Rua Augusta 120",
		Status:    deal.DealStatusPreparation,
		DeedCount: 1,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed deal: %v", err)
	}
	return d
}

func SeedParty(tb testing.TB, ctx context.Context, tx *gorm.DB, dealID uuid.UUID, role types.PartyRole, position int) *types.Party {
	tb.Helper()
	p := &types.Party{
		ID:           uuid.New(),
		DealID:       dealID,
		Role:         role,
		Position:     position,
		PersonType:   deal.PersonTypeIndividual,
		MaritalState: deal.MaritalSingle,
		Name:         "Seeded Party",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed party: %v", err)
	}
	return p
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, dealID uuid.UUID, docType string) *types.Document {
	tb.Helper()
	doc := &types.Document{
		ID:                uuid.New(),
		DealID:            dealID,
		Category:          deal.CategorySellers,
		Type:              docType,
		OriginalName:      "scan.pdf",
		MimeType:          "application/pdf",
		StorageKey:        "deals/" + dealID.String() + "/" + uuid.NewString(),
		RecognitionStatus: deal.RecognitionIdle,
	}
	if err := tx.WithContext(ctx).Create(doc).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return doc
}
