package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dealdesk/intake-backend/internal/checklist"
	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
	"github.com/dealdesk/intake-backend/internal/matcher"
	"github.com/dealdesk/intake-backend/internal/pkg/dbctx"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/roster"
)

type memDealRepo struct {
	mu    sync.Mutex
	deals map[uuid.UUID]*types.Deal
}

func newMemDealRepo() *memDealRepo { return &memDealRepo{deals: map[uuid.UUID]*types.Deal{}} }

func (r *memDealRepo) Create(_ context.Context, _ *gorm.DB, d *types.Deal) (*types.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.deals[d.ID] = &cp
	return d, nil
}

func (r *memDealRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDealRepo) ListByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID) ([]*types.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Deal
	for _, d := range r.deals {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memDealRepo) UpdateStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, status types.DealStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.Status = status
	return nil
}

func (r *memDealRepo) UpdateProperty(_ context.Context, _ *gorm.DB, id uuid.UUID, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deals[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["deed_count"].(int); ok {
		d.DeedCount = v
	}
	if v, ok := fields["name"].(string); ok {
		d.Name = v
	}
	return nil
}

func (r *memDealRepo) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.deals, id)
	return nil
}

type memPartyRepo struct {
	mu      sync.Mutex
	parties map[uuid.UUID][]types.Party // keyed by deal id
}

func newMemPartyRepo() *memPartyRepo { return &memPartyRepo{parties: map[uuid.UUID][]types.Party{}} }

func (r *memPartyRepo) ListByDeal(_ context.Context, _ *gorm.DB, dealID uuid.UUID) ([]types.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.Party(nil), r.parties[dealID]...), nil
}

func (r *memPartyRepo) ListByRole(_ context.Context, _ *gorm.DB, dealID uuid.UUID, role types.PartyRole) ([]types.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Party
	for _, p := range r.parties[dealID] {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPartyRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, list := range r.parties {
		for _, p := range list {
			if p.ID == id {
				cp := p
				return &cp, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPartyRepo) ReplaceForRole(_ context.Context, _ *gorm.DB, dealID uuid.UUID, role types.PartyRole, parties []types.Party) ([]types.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []types.Party
	for _, p := range r.parties[dealID] {
		if p.Role != role {
			kept = append(kept, p)
		}
	}
	for i := range parties {
		parties[i].DealID = dealID
		parties[i].Role = role
		parties[i].Position = i
	}
	r.parties[dealID] = append(kept, parties...)
	return parties, nil
}

type memDocumentRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*types.Document
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{docs: map[uuid.UUID]*types.Document{}}
}

func (r *memDocumentRepo) Create(_ context.Context, _ *gorm.DB, doc *types.Document) (*types.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
	return doc, nil
}

func (r *memDocumentRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *memDocumentRepo) ListByDeal(_ context.Context, _ *gorm.DB, dealID uuid.UUID) ([]types.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.Document
	for _, d := range r.docs {
		if d.DealID == dealID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memDocumentRepo) Save(_ context.Context, _ *gorm.DB, doc *types.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *memDocumentRepo) UpdateRecognition(_ context.Context, _ *gorm.DB, id uuid.UUID, fields map[string]any) error {
	return nil
}

func (r *memDocumentRepo) Delete(_ context.Context, _ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *memDocumentRepo) DeleteByParties(_ context.Context, _ *gorm.DB, partyIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range r.docs {
		for _, pid := range partyIDs {
			if d.PartyID != nil && *d.PartyID == pid {
				delete(r.docs, id)
			}
		}
	}
	return nil
}

type fakeConsolidator struct {
	err   error
	con   *types.ConsolidatedChecklist
	calls int
}

func (f *fakeConsolidator) Consolidate(context.Context, []deal.Party, []deal.Party, deal.PropertyConfig) (*types.ConsolidatedChecklist, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.con != nil {
		return f.con, nil
	}
	return &types.ConsolidatedChecklist{TotalPairs: 1}, nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	checklists int
	deals      int
}

func (n *recordingNotifier) DocumentUpdated(uuid.UUID, *types.Document) {}
func (n *recordingNotifier) ChecklistUpdated(uuid.UUID, *types.ConsolidatedChecklist, matcher.Progress) {
	n.mu.Lock()
	n.checklists++
	n.mu.Unlock()
}
func (n *recordingNotifier) DealUpdated(uuid.UUID, *types.Deal) {
	n.mu.Lock()
	n.deals++
	n.mu.Unlock()
}
func (n *recordingNotifier) RecognitionResult(uuid.UUID, *types.Document) {}

func newTestIntake(t *testing.T, con checklist.Consolidator) (IntakeService, *memPartyRepo, *memDocumentRepo, *recordingNotifier) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	dealRepo := newMemDealRepo()
	partyRepo := newMemPartyRepo()
	docRepo := newMemDocumentRepo()
	notifier := &recordingNotifier{}
	svc := NewIntakeService(nil, log, dealRepo, partyRepo, docRepo, con, notifier)
	return svc, partyRepo, docRepo, notifier
}

func bg() dbctx.Context { return dbctx.Context{Ctx: context.Background()} }

func TestCreateDealSeedsBothRoles(t *testing.T) {
	svc, partyRepo, _, _ := newTestIntake(t, &fakeConsolidator{})

	d, err := svc.CreateDeal(bg(), uuid.New(), "Av. Paulista 1000")
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}

	for _, role := range []types.PartyRole{deal.PartyRoleSeller, deal.PartyRoleBuyer} {
		list, err := partyRepo.ListByRole(context.Background(), nil, d.ID, role)
		if err != nil {
			t.Fatalf("ListByRole: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("role %s: want=1 party got=%d", role, len(list))
		}
		if list[0].IsSpouse {
			t.Fatalf("seeded party must be a principal")
		}
	}
}

func TestUpdatePartyPersistsSpouseAndRebuildsChecklist(t *testing.T) {
	svc, partyRepo, _, notifier := newTestIntake(t, &fakeConsolidator{})
	d, err := svc.CreateDeal(bg(), uuid.New(), "deal")
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}

	married := deal.MaritalMarried
	parties, err := svc.UpdateParty(bg(), d.ID, deal.PartyRoleSeller, 0, roster.Patch{MaritalState: &married})
	if err != nil {
		t.Fatalf("UpdateParty: %v", err)
	}
	if len(parties) != 2 || !parties[1].IsSpouse {
		t.Fatalf("spouse not spliced in: %+v", parties)
	}

	persisted, err := partyRepo.ListByRole(context.Background(), nil, d.ID, deal.PartyRoleSeller)
	if err != nil {
		t.Fatalf("ListByRole: %v", err)
	}
	if len(persisted) != 2 {
		t.Fatalf("persisted sellers: want=2 got=%d", len(persisted))
	}
	if persisted[1].Position != 1 {
		t.Fatalf("positions not rewritten: %+v", persisted)
	}
	if notifier.checklists == 0 {
		t.Fatalf("roster change must push a rebuilt checklist")
	}
}

func TestRemovePartyCascadesDocuments(t *testing.T) {
	svc, partyRepo, docRepo, _ := newTestIntake(t, &fakeConsolidator{})
	d, err := svc.CreateDeal(bg(), uuid.New(), "deal")
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if _, err := svc.AddParty(bg(), d.ID, deal.PartyRoleSeller); err != nil {
		t.Fatalf("AddParty: %v", err)
	}

	sellers, _ := partyRepo.ListByRole(context.Background(), nil, d.ID, deal.PartyRoleSeller)
	if len(sellers) != 2 {
		t.Fatalf("sellers: want=2 got=%d", len(sellers))
	}
	victim := sellers[1]
	doc := &types.Document{ID: uuid.New(), DealID: d.ID, PartyID: &victim.ID, Type: deal.DocTypeRG}
	if _, err := docRepo.Create(context.Background(), nil, doc); err != nil {
		t.Fatalf("Create doc: %v", err)
	}

	if _, err := svc.RemoveParty(bg(), d.ID, deal.PartyRoleSeller, 1); err != nil {
		t.Fatalf("RemoveParty: %v", err)
	}

	if _, err := docRepo.GetByID(context.Background(), nil, doc.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("document of removed party must be deleted, got err=%v", err)
	}
}

func TestUpdatePropertyRebuildsChecklist(t *testing.T) {
	svc, _, _, notifier := newTestIntake(t, &fakeConsolidator{})
	d, err := svc.CreateDeal(bg(), uuid.New(), "deal")
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}

	before := notifier.checklists
	deeds := 2
	if _, err := svc.UpdateProperty(bg(), d.ID, PropertyPatch{DeedCount: &deeds}); err != nil {
		t.Fatalf("UpdateProperty: %v", err)
	}
	if notifier.deals == 0 {
		t.Fatalf("property change must push the updated deal")
	}
	if notifier.checklists <= before {
		t.Fatalf("deed count change must push a rebuilt checklist")
	}
}

func TestChecklistViewResolvesPerParty(t *testing.T) {
	con := &fakeConsolidator{con: &types.ConsolidatedChecklist{
		TotalPairs: 1,
		Sellers: types.ChecklistCategory{Requirements: []types.Requirement{
			{ID: deal.DocTypeRG, Scope: types.ScopePrincipal, Obligatory: true},
		}},
	}}
	svc, partyRepo, docRepo, _ := newTestIntake(t, con)
	d, err := svc.CreateDeal(bg(), uuid.New(), "deal")
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}

	sellers, _ := partyRepo.ListByRole(context.Background(), nil, d.ID, deal.PartyRoleSeller)
	validated := true
	doc := &types.Document{
		ID:        uuid.New(),
		DealID:    d.ID,
		PartyID:   &sellers[0].ID,
		Category:  deal.CategorySellers,
		Type:      deal.DocTypeRG,
		Validated: &validated,
	}
	if _, err := docRepo.Create(context.Background(), nil, doc); err != nil {
		t.Fatalf("Create doc: %v", err)
	}

	view, err := svc.ChecklistView(bg(), d.ID)
	if err != nil {
		t.Fatalf("ChecklistView: %v", err)
	}
	if len(view.Sellers) != 1 || view.Sellers[0].PartyID != sellers[0].ID {
		t.Fatalf("seller checklist not keyed by party: %+v", view.Sellers)
	}
	reqs := view.Sellers[0].Requirements
	if len(reqs) != 1 || reqs[0].Status != matcher.StatusSatisfied {
		t.Fatalf("seller RG slot must be satisfied: %+v", reqs)
	}
	if len(view.Buyers) != 1 || len(view.Buyers[0].Requirements) != 0 {
		t.Fatalf("buyer principal has no seller requirements: %+v", view.Buyers)
	}
	if view.Progress.Required != 1 || view.Progress.Validated != 1 {
		t.Fatalf("progress must count the satisfied slot: %+v", view.Progress)
	}
}

func TestRosterEditSurvivesCatalogOutage(t *testing.T) {
	con := &fakeConsolidator{err: checklist.ErrCatalogUnavailable}
	svc, partyRepo, _, notifier := newTestIntake(t, con)
	d, err := svc.CreateDeal(bg(), uuid.New(), "deal")
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}

	if _, err := svc.AddParty(bg(), d.ID, deal.PartyRoleBuyer); err != nil {
		t.Fatalf("AddParty must succeed despite catalog outage: %v", err)
	}
	buyers, _ := partyRepo.ListByRole(context.Background(), nil, d.ID, deal.PartyRoleBuyer)
	if len(buyers) != 2 {
		t.Fatalf("buyers: want=2 got=%d", len(buyers))
	}
	if notifier.checklists != 0 {
		t.Fatalf("no checklist push when consolidation failed")
	}
}
