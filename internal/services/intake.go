package services

import (
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealdesk/intake-backend/internal/checklist"
	"github.com/dealdesk/intake-backend/internal/data/repos"
	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
	"github.com/dealdesk/intake-backend/internal/matcher"
	"github.com/dealdesk/intake-backend/internal/pkg/dbctx"
	"github.com/dealdesk/intake-backend/internal/platform/apierr"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/roster"
)

// PropertyPatch carries a partial property-config edit; nil fields are left
// untouched.
type PropertyPatch struct {
	Name             *string `json:"name,omitempty"`
	UseFGTS          *bool   `json:"use_fgts,omitempty"`
	BankFinancing    *bool   `json:"bank_financing,omitempty"`
	ConsortiumLetter *bool   `json:"consortium_letter,omitempty"`
	PropertyState    *string `json:"property_state,omitempty"`
	PropertyType     *string `json:"property_type,omitempty"`
	DeedCount        *int    `json:"deed_count,omitempty"`
}

type IntakeService interface {
	CreateDeal(dbc dbctx.Context, userID uuid.UUID, name string) (*types.Deal, error)
	GetDeal(dbc dbctx.Context, dealID uuid.UUID) (*types.Deal, error)
	ListDeals(dbc dbctx.Context, userID uuid.UUID) ([]*types.Deal, error)
	UpdateProperty(dbc dbctx.Context, dealID uuid.UUID, patch PropertyPatch) (*types.Deal, error)
	UpdateStatus(dbc dbctx.Context, dealID uuid.UUID, status types.DealStatus) error

	Parties(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole) ([]types.Party, error)
	AddParty(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole) ([]types.Party, error)
	UpdateParty(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole, index int, patch roster.Patch) ([]types.Party, error)
	RemoveParty(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole, index int) ([]types.Party, error)

	Checklist(dbc dbctx.Context, dealID uuid.UUID) (*types.ConsolidatedChecklist, error)
	ChecklistView(dbc dbctx.Context, dealID uuid.UUID) (*ChecklistView, error)
	Progress(dbc dbctx.Context, dealID uuid.UUID) (matcher.Progress, error)
}

// ChecklistView is the consolidated checklist resolved against the roster:
// per-party requirement statuses, link candidates, and the overall progress.
type ChecklistView struct {
	Checklist *types.ConsolidatedChecklist `json:"checklist"`
	Sellers   []matcher.PartyChecklist     `json:"sellers"`
	Buyers    []matcher.PartyChecklist     `json:"buyers"`
	Progress  matcher.Progress             `json:"progress"`
}

type intakeService struct {
	db           *gorm.DB
	log          *logger.Logger
	dealRepo     repos.DealRepo
	partyRepo    repos.PartyRepo
	documentRepo repos.DocumentRepo
	consolidator checklist.Consolidator
	notifier     IntakeNotifier
}

func NewIntakeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	dealRepo repos.DealRepo,
	partyRepo repos.PartyRepo,
	documentRepo repos.DocumentRepo,
	consolidator checklist.Consolidator,
	notifier IntakeNotifier,
) IntakeService {
	serviceLog := baseLog.With("service", "IntakeService")
	return &intakeService{
		db:           db,
		log:          serviceLog,
		dealRepo:     dealRepo,
		partyRepo:    partyRepo,
		documentRepo: documentRepo,
		consolidator: consolidator,
		notifier:     notifier,
	}
}

func (is *intakeService) CreateDeal(dbc dbctx.Context, userID uuid.UUID, name string) (*types.Deal, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, "missing_user_id", nil)
	}
	d := &types.Deal{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Status:    deal.DealStatusPreparation,
		DeedCount: 1,
	}
	created, err := is.dealRepo.Create(dbc.Ctx, dbc.Tx, d)
	if err != nil {
		return nil, err
	}

	// Every deal starts with one seller and one buyer; the roster is never
	// empty.
	for _, role := range []types.PartyRole{deal.PartyRoleSeller, deal.PartyRoleBuyer} {
		list := roster.AddParty(nil, created.ID, role)
		if _, err := is.partyRepo.ReplaceForRole(dbc.Ctx, dbc.Tx, created.ID, role, list); err != nil {
			return nil, err
		}
	}
	is.log.Info("deal created", "deal_id", created.ID.String(), "user_id", userID.String())
	return created, nil
}

func (is *intakeService) GetDeal(dbc dbctx.Context, dealID uuid.UUID) (*types.Deal, error) {
	return is.dealRepo.GetByID(dbc.Ctx, dbc.Tx, dealID)
}

func (is *intakeService) ListDeals(dbc dbctx.Context, userID uuid.UUID) ([]*types.Deal, error) {
	return is.dealRepo.ListByUser(dbc.Ctx, dbc.Tx, userID)
}

func (is *intakeService) UpdateProperty(dbc dbctx.Context, dealID uuid.UUID, patch PropertyPatch) (*types.Deal, error) {
	fields := map[string]any{}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.UseFGTS != nil {
		fields["use_fgts"] = *patch.UseFGTS
	}
	if patch.BankFinancing != nil {
		fields["bank_financing"] = *patch.BankFinancing
	}
	if patch.ConsortiumLetter != nil {
		fields["consortium_letter"] = *patch.ConsortiumLetter
	}
	if patch.PropertyState != nil {
		fields["property_state"] = *patch.PropertyState
	}
	if patch.PropertyType != nil {
		fields["property_type"] = *patch.PropertyType
	}
	if patch.DeedCount != nil {
		fields["deed_count"] = *patch.DeedCount
	}
	if err := is.dealRepo.UpdateProperty(dbc.Ctx, dbc.Tx, dealID, fields); err != nil {
		return nil, err
	}
	updated, err := is.dealRepo.GetByID(dbc.Ctx, dbc.Tx, dealID)
	if err != nil {
		return nil, err
	}
	is.notifier.DealUpdated(dealID, updated)
	// Property changes reshape the checklist too: deed count alters the
	// MATRICULA slots, financing flags alter the requirement set.
	is.notifyChecklist(dbc, dealID)
	return updated, nil
}

func (is *intakeService) UpdateStatus(dbc dbctx.Context, dealID uuid.UUID, status types.DealStatus) error {
	if err := is.dealRepo.UpdateStatus(dbc.Ctx, dbc.Tx, dealID, status); err != nil {
		return err
	}
	updated, err := is.dealRepo.GetByID(dbc.Ctx, dbc.Tx, dealID)
	if err != nil {
		return err
	}
	is.notifier.DealUpdated(dealID, updated)
	return nil
}

func (is *intakeService) Parties(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole) ([]types.Party, error) {
	return is.partyRepo.ListByRole(dbc.Ctx, dbc.Tx, dealID, role)
}

func (is *intakeService) AddParty(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole) ([]types.Party, error) {
	current, err := is.partyRepo.ListByRole(dbc.Ctx, dbc.Tx, dealID, role)
	if err != nil {
		return nil, err
	}
	return is.saveRoster(dbc, dealID, role, current, roster.AddParty(current, dealID, role))
}

func (is *intakeService) UpdateParty(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole, index int, patch roster.Patch) ([]types.Party, error) {
	current, err := is.partyRepo.ListByRole(dbc.Ctx, dbc.Tx, dealID, role)
	if err != nil {
		return nil, err
	}
	next, err := roster.UpdateParty(current, index, patch)
	if err != nil {
		return nil, err
	}
	return is.saveRoster(dbc, dealID, role, current, next)
}

func (is *intakeService) RemoveParty(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole, index int) ([]types.Party, error) {
	current, err := is.partyRepo.ListByRole(dbc.Ctx, dbc.Tx, dealID, role)
	if err != nil {
		return nil, err
	}
	next, removed := roster.RemoveParty(current, index)
	if !removed {
		return current, nil
	}
	return is.saveRoster(dbc, dealID, role, current, next)
}

// saveRoster persists the transformed role list and cascades: documents of
// parties that fell out of the roster are deleted with them.
func (is *intakeService) saveRoster(dbc dbctx.Context, dealID uuid.UUID, role types.PartyRole, before, after []types.Party) ([]types.Party, error) {
	saved, err := is.partyRepo.ReplaceForRole(dbc.Ctx, dbc.Tx, dealID, role, after)
	if err != nil {
		return nil, err
	}

	if removed := removedPartyIDs(before, after); len(removed) > 0 {
		if err := is.documentRepo.DeleteByParties(dbc.Ctx, dbc.Tx, removed); err != nil {
			return nil, err
		}
	}

	is.notifyChecklist(dbc, dealID)
	return saved, nil
}

func removedPartyIDs(before, after []types.Party) []uuid.UUID {
	kept := make(map[uuid.UUID]bool, len(after))
	for _, p := range after {
		kept[p.ID] = true
	}
	var out []uuid.UUID
	for _, p := range before {
		if !kept[p.ID] {
			out = append(out, p.ID)
		}
	}
	return out
}

// loadChecklist consolidates the catalog for the deal's current roster and
// returns the roster alongside, since every consumer needs both.
func (is *intakeService) loadChecklist(dbc dbctx.Context, dealID uuid.UUID) (*types.ConsolidatedChecklist, []types.Party, []types.Party, error) {
	d, err := is.dealRepo.GetByID(dbc.Ctx, dbc.Tx, dealID)
	if err != nil {
		return nil, nil, nil, err
	}
	sellers, err := is.partyRepo.ListByRole(dbc.Ctx, dbc.Tx, dealID, deal.PartyRoleSeller)
	if err != nil {
		return nil, nil, nil, err
	}
	buyers, err := is.partyRepo.ListByRole(dbc.Ctx, dbc.Tx, dealID, deal.PartyRoleBuyer)
	if err != nil {
		return nil, nil, nil, err
	}
	con, err := is.consolidator.Consolidate(dbc.Ctx, sellers, buyers, d.PropertyConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	return con, sellers, buyers, nil
}

func (is *intakeService) Checklist(dbc dbctx.Context, dealID uuid.UUID) (*types.ConsolidatedChecklist, error) {
	con, _, _, err := is.loadChecklist(dbc, dealID)
	return con, err
}

func (is *intakeService) ChecklistView(dbc dbctx.Context, dealID uuid.UUID) (*ChecklistView, error) {
	con, sellers, buyers, err := is.loadChecklist(dbc, dealID)
	if err != nil {
		return nil, err
	}
	docs, err := is.documentRepo.ListByDeal(dbc.Ctx, dbc.Tx, dealID)
	if err != nil {
		return nil, err
	}

	var sellerDocs, buyerDocs []types.Document
	for _, d := range docs {
		switch d.Category {
		case deal.CategorySellers:
			sellerDocs = append(sellerDocs, d)
		case deal.CategoryBuyers:
			buyerDocs = append(buyerDocs, d)
		}
	}

	return &ChecklistView{
		Checklist: con,
		Sellers:   matcher.PartyChecklists(con.Sellers, sellers, sellerDocs),
		Buyers:    matcher.PartyChecklists(con.Buyers, buyers, buyerDocs),
		Progress:  matcher.Summarize(con, sellers, buyers, docs),
	}, nil
}

func (is *intakeService) Progress(dbc dbctx.Context, dealID uuid.UUID) (matcher.Progress, error) {
	con, sellers, buyers, err := is.loadChecklist(dbc, dealID)
	if err != nil {
		return matcher.Progress{}, err
	}
	docs, err := is.documentRepo.ListByDeal(dbc.Ctx, dbc.Tx, dealID)
	if err != nil {
		return matcher.Progress{}, err
	}
	return matcher.Summarize(con, sellers, buyers, docs), nil
}

// notifyChecklist rebuilds and pushes the checklist after a roster or
// property change. Best effort: a catalog outage does not fail the edit
// itself.
func (is *intakeService) notifyChecklist(dbc dbctx.Context, dealID uuid.UUID) {
	con, sellers, buyers, err := is.loadChecklist(dbc, dealID)
	if err != nil {
		is.log.Warn("checklist rebuild failed", "deal_id", dealID.String(), "error", err)
		return
	}
	docs, err := is.documentRepo.ListByDeal(dbc.Ctx, dbc.Tx, dealID)
	if err != nil {
		is.log.Warn("document list failed", "deal_id", dealID.String(), "error", err)
		return
	}
	is.notifier.ChecklistUpdated(dealID, con, matcher.Summarize(con, sellers, buyers, docs))
}
