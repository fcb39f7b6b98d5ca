package deals

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dealdesk/intake-backend/internal/data/repos/testutil"
	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
)

func TestPartyRepoReplaceForRole(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewPartyRepo(db, testutil.Logger(t))

	d := testutil.SeedDeal(t, ctx, tx, uuid.New())
	testutil.SeedParty(t, ctx, tx, d.ID, deal.PartyRoleSeller, 0)
	testutil.SeedParty(t, ctx, tx, d.ID, deal.PartyRoleSeller, 1)
	keptBuyer := testutil.SeedParty(t, ctx, tx, d.ID, deal.PartyRoleBuyer, 0)

	replacement := []types.Party{
		{ID: uuid.New(), PersonType: deal.PersonTypeIndividual, MaritalState: deal.MaritalMarried, Name: "New Principal"},
		{ID: uuid.New(), PersonType: deal.PersonTypeIndividual, MaritalState: deal.MaritalMarried, IsSpouse: true},
		{ID: uuid.New(), PersonType: deal.PersonTypeEntity, Name: "Holding Ltda"},
	}
	if _, err := repo.ReplaceForRole(ctx, tx, d.ID, deal.PartyRoleSeller, replacement); err != nil {
		t.Fatalf("ReplaceForRole: %v", err)
	}

	sellers, err := repo.ListByRole(ctx, tx, d.ID, deal.PartyRoleSeller)
	if err != nil {
		t.Fatalf("ListByRole: %v", err)
	}
	if len(sellers) != 3 {
		t.Fatalf("sellers: want=3 got=%d", len(sellers))
	}
	for i, p := range sellers {
		if p.Position != i {
			t.Fatalf("position at %d: want=%d got=%d", i, i, p.Position)
		}
		if p.DealID != d.ID || p.Role != deal.PartyRoleSeller {
			t.Fatalf("party %d carries wrong deal/role", i)
		}
	}
	if !sellers[1].IsSpouse {
		t.Fatalf("slice order lost: spouse expected at position 1")
	}

	buyers, err := repo.ListByRole(ctx, tx, d.ID, deal.PartyRoleBuyer)
	if err != nil {
		t.Fatalf("ListByRole buyers: %v", err)
	}
	if len(buyers) != 1 || buyers[0].ID != keptBuyer.ID {
		t.Fatalf("replacing sellers must not touch buyers")
	}
}

func TestPartyRepoReplaceForRoleEmpty(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewPartyRepo(db, testutil.Logger(t))

	d := testutil.SeedDeal(t, ctx, tx, uuid.New())
	testutil.SeedParty(t, ctx, tx, d.ID, deal.PartyRoleBuyer, 0)

	if _, err := repo.ReplaceForRole(ctx, tx, d.ID, deal.PartyRoleBuyer, nil); err != nil {
		t.Fatalf("ReplaceForRole: %v", err)
	}
	buyers, err := repo.ListByRole(ctx, tx, d.ID, deal.PartyRoleBuyer)
	if err != nil {
		t.Fatalf("ListByRole: %v", err)
	}
	if len(buyers) != 0 {
		t.Fatalf("buyers: want=0 got=%d", len(buyers))
	}
}

func TestPartyRepoListByDealOrdering(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewPartyRepo(db, testutil.Logger(t))

	d := testutil.SeedDeal(t, ctx, tx, uuid.New())
	testutil.SeedParty(t, ctx, tx, d.ID, deal.PartyRoleSeller, 1)
	testutil.SeedParty(t, ctx, tx, d.ID, deal.PartyRoleSeller, 0)
	testutil.SeedParty(t, ctx, tx, d.ID, deal.PartyRoleBuyer, 0)

	all, err := repo.ListByDeal(ctx, tx, d.ID)
	if err != nil {
		t.Fatalf("ListByDeal: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("parties: want=3 got=%d", len(all))
	}
	if all[0].Role != deal.PartyRoleBuyer {
		t.Fatalf("buyers sort before sellers, got role=%s", all[0].Role)
	}
	if all[1].Position != 0 || all[2].Position != 1 {
		t.Fatalf("sellers not ordered by position: %d, %d", all[1].Position, all[2].Position)
	}
}
