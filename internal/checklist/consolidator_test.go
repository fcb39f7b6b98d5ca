package checklist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []PairRequest
	fn    func(req PairRequest) (*PairChecklist, error)
}

func (f *fakeProvider) FetchPair(_ context.Context, req PairRequest) (*PairChecklist, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(req)
}

func testConsolidator(t *testing.T, provider CatalogProvider) *consolidator {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	c := NewConsolidator(log, provider).(*consolidator)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func party(role deal.PartyRole, m deal.MaritalState) deal.Party {
	p := deal.NewParty(uuid.New(), role)
	p.MaritalState = m
	return p
}

func req(id string, scope types.RequirementScope) types.Requirement {
	return types.Requirement{ID: id, Name: id, Scope: scope, Obligatory: true}
}

func TestConsolidateMergesAndDedupes(t *testing.T) {
	sellers := []deal.Party{
		party(deal.PartyRoleSeller, deal.MaritalSingle),
		party(deal.PartyRoleSeller, deal.MaritalMarried),
	}
	buyers := []deal.Party{party(deal.PartyRoleBuyer, deal.MaritalSingle)}

	provider := &fakeProvider{fn: func(pr PairRequest) (*PairChecklist, error) {
		res := &PairChecklist{
			Sellers: types.ChecklistCategory{
				Requirements: []types.Requirement{req("RG", types.ScopePrincipal)},
				Alerts:       []string{"confirm seller identity"},
			},
			Property: types.ChecklistCategory{
				Requirements: []types.Requirement{req(deal.DocTypeDeed, types.ScopeUnscoped)},
			},
			Complexity:    types.Complexity("BAIXA"),
			EstimatedDays: 10,
		}
		if pr.SellerMaritalState == deal.MaritalMarried {
			res.Sellers.Requirements = append(res.Sellers.Requirements,
				req("RG", types.ScopeSpouse))
			res.Complexity = types.Complexity("ALTA")
			res.EstimatedDays = 25
		}
		return res, nil
	}}
	c := testConsolidator(t, provider)

	out, err := c.Consolidate(context.Background(), sellers, buyers, deal.PropertyConfig{DeedCount: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, out.TotalPairs)
	assert.Zero(t, out.FailedPairs)

	// "RG|titular" appears in both pair responses but is kept once; the
	// spouse-scoped copy is a distinct requirement.
	require.Len(t, out.Sellers.Requirements, 2)
	assert.Equal(t, types.ScopePrincipal, out.Sellers.Requirements[0].Scope)
	assert.Equal(t, types.ScopeSpouse, out.Sellers.Requirements[1].Scope)
	assert.Equal(t, []string{"confirm seller identity"}, out.Sellers.Alerts)

	assert.Equal(t, types.Complexity("ALTA"), out.Summary.MaxComplexity)
	assert.Equal(t, 25, out.Summary.MaxEstimatedDays)
	assert.Equal(t, time.Date(2026, 3, 26, 0, 0, 0, 0, time.UTC), out.Summary.EstimatedCompletion)
}

func TestConsolidateToleratesPartialFailure(t *testing.T) {
	sellers := []deal.Party{
		party(deal.PartyRoleSeller, deal.MaritalSingle),
		party(deal.PartyRoleSeller, deal.MaritalSingle),
		party(deal.PartyRoleSeller, deal.MaritalSingle),
	}
	buyers := []deal.Party{party(deal.PartyRoleBuyer, deal.MaritalSingle)}

	var n int
	var mu sync.Mutex
	provider := &fakeProvider{fn: func(PairRequest) (*PairChecklist, error) {
		mu.Lock()
		n++
		fail := n == 2
		mu.Unlock()
		if fail {
			return nil, errors.New("catalog 503")
		}
		return &PairChecklist{
			Sellers:       types.ChecklistCategory{Requirements: []types.Requirement{req("RG", types.ScopePrincipal)}},
			Complexity:    types.Complexity("MEDIA"),
			EstimatedDays: 12,
		}, nil
	}}
	c := testConsolidator(t, provider)

	out, err := c.Consolidate(context.Background(), sellers, buyers, deal.PropertyConfig{})
	require.NoError(t, err, "one failed pair must not sink the checklist")
	assert.Equal(t, 3, out.TotalPairs)
	assert.Equal(t, 1, out.FailedPairs)
	assert.Len(t, out.Sellers.Requirements, 1)
	assert.Equal(t, 12, out.Summary.MaxEstimatedDays)
}

func TestConsolidateAllPairsFailed(t *testing.T) {
	provider := &fakeProvider{fn: func(PairRequest) (*PairChecklist, error) {
		return nil, errors.New("connection refused")
	}}
	c := testConsolidator(t, provider)

	_, err := c.Consolidate(context.Background(),
		[]deal.Party{party(deal.PartyRoleSeller, deal.MaritalSingle)},
		[]deal.Party{party(deal.PartyRoleBuyer, deal.MaritalSingle)},
		deal.PropertyConfig{})
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestConsolidateNoPairs(t *testing.T) {
	provider := &fakeProvider{fn: func(PairRequest) (*PairChecklist, error) {
		t.Fatal("provider must not be called without pairs")
		return nil, nil
	}}
	c := testConsolidator(t, provider)

	_, err := c.Consolidate(context.Background(), nil, nil, deal.PropertyConfig{})
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestConsolidateSpousesDoNotFanOut(t *testing.T) {
	principal := party(deal.PartyRoleSeller, deal.MaritalMarried)
	spouse := deal.NewParty(principal.DealID, principal.Role)
	spouse.IsSpouse = true
	spouse.MaritalState = deal.MaritalMarried

	provider := &fakeProvider{fn: func(PairRequest) (*PairChecklist, error) {
		return &PairChecklist{}, nil
	}}
	c := testConsolidator(t, provider)

	out, err := c.Consolidate(context.Background(),
		[]deal.Party{principal, spouse},
		[]deal.Party{party(deal.PartyRoleBuyer, deal.MaritalSingle)},
		deal.PropertyConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.TotalPairs)
	assert.Len(t, provider.calls, 1)
}

func TestConsolidateDeedCountClamped(t *testing.T) {
	provider := &fakeProvider{fn: func(PairRequest) (*PairChecklist, error) {
		return &PairChecklist{
			Property: types.ChecklistCategory{
				Requirements: []types.Requirement{
					req(deal.DocTypeDeed, types.ScopeUnscoped),
					req(deal.DocTypeIPTU, types.ScopeUnscoped),
				},
			},
		}, nil
	}}

	for deeds, want := range map[int]int{0: 1, 3: 3, 9: 5} {
		c := testConsolidator(t, provider)
		out, err := c.Consolidate(context.Background(),
			[]deal.Party{party(deal.PartyRoleSeller, deal.MaritalSingle)},
			[]deal.Party{party(deal.PartyRoleBuyer, deal.MaritalSingle)},
			deal.PropertyConfig{DeedCount: deeds})
		require.NoError(t, err)
		assert.Equal(t, want, out.Property.Requirements[0].RequiredCount, "deeds=%d", deeds)
		assert.Equal(t, 1, out.Property.Requirements[1].RequiredCount)
	}
}
