package matcher

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
)

func boolPtr(b bool) *bool { return &b }

func doc(docType string, validated *bool, linked ...string) deal.Document {
	return deal.Document{
		Type:      docType,
		Types:     datatypes.JSONSlice[string](linked),
		Validated: validated,
	}
}

func TestSatisfies(t *testing.T) {
	req := types.Requirement{ID: deal.DocTypeRG}

	assert.True(t, Satisfies(doc(deal.DocTypeRG, nil), req), "primary type match")
	assert.True(t, Satisfies(doc(deal.DocTypeCNH, nil, deal.DocTypeRG), req), "linked type match")
	assert.False(t, Satisfies(doc(deal.DocTypeCNH, nil), req))
}

func TestStatusPrecedence(t *testing.T) {
	req := types.Requirement{ID: deal.DocTypeRG}

	cases := []struct {
		name string
		docs []deal.Document
		want RequirementStatus
	}{
		{"no documents", nil, StatusEmpty},
		{"only unrelated documents", []deal.Document{doc(deal.DocTypeIPTU, boolPtr(true))}, StatusEmpty},
		{"single pending", []deal.Document{doc(deal.DocTypeRG, nil)}, StatusPending},
		{"single rejected", []deal.Document{doc(deal.DocTypeRG, boolPtr(false))}, StatusError},
		{"single validated", []deal.Document{doc(deal.DocTypeRG, boolPtr(true))}, StatusSatisfied},
		{
			"rejected plus pending stays pending",
			[]deal.Document{doc(deal.DocTypeRG, boolPtr(false)), doc(deal.DocTypeRG, nil)},
			StatusPending,
		},
		{
			"rejected blocks satisfaction",
			[]deal.Document{doc(deal.DocTypeRG, boolPtr(false)), doc(deal.DocTypeRG, boolPtr(true))},
			StatusError,
		},
		{
			"validated plus pending stays pending",
			[]deal.Document{doc(deal.DocTypeRG, nil), doc(deal.DocTypeRG, boolPtr(true))},
			StatusPending,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Status(req, tc.docs))
		})
	}
}

func TestStatusRequiredCount(t *testing.T) {
	req := types.Requirement{ID: deal.DocTypeDeed, RequiredCount: 3}

	docs := []deal.Document{
		doc(deal.DocTypeDeed, boolPtr(true)),
		doc(deal.DocTypeDeed, boolPtr(true)),
	}
	assert.Equal(t, StatusPending, Status(req, docs), "two of three deeds validated")

	docs = append(docs, doc(deal.DocTypeDeed, boolPtr(true)))
	assert.Equal(t, StatusSatisfied, Status(req, docs))
}

func TestForScope(t *testing.T) {
	reqs := []types.Requirement{
		{ID: "A", Scope: types.ScopeUnscoped},
		{ID: "B", Scope: types.ScopePrincipal},
		{ID: "C", Scope: types.ScopeSpouse},
	}

	ids := func(rs []types.Requirement) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"A", "B"}, ids(ForScope(reqs, false)))
	assert.Equal(t, []string{"A", "C"}, ids(ForScope(reqs, true)))
}

func TestReusableCandidates(t *testing.T) {
	req := types.Requirement{ID: deal.DocTypeRG}

	alreadySatisfying := doc(deal.DocTypeRG, boolPtr(true))
	alreadySatisfying.RecognitionStatus = deal.RecognitionCompleted
	alreadySatisfying.RemoteID = "r1"

	reusable := doc(deal.DocTypeCNH, boolPtr(true))
	reusable.RecognitionStatus = deal.RecognitionCompleted
	reusable.RemoteID = "r2"

	unvalidated := doc(deal.DocTypeCNH, nil)
	unvalidated.RecognitionStatus = deal.RecognitionCompleted
	unvalidated.RemoteID = "r3"

	stillProcessing := doc(deal.DocTypeCNH, boolPtr(true))
	stillProcessing.RecognitionStatus = deal.RecognitionProcessing
	stillProcessing.RemoteID = "r4"

	noRemote := doc(deal.DocTypeCNH, boolPtr(true))
	noRemote.RecognitionStatus = deal.RecognitionCompleted

	out := ReusableCandidates(req, []deal.Document{
		alreadySatisfying, reusable, unvalidated, stillProcessing, noRemote,
	})
	assert.Len(t, out, 1)
	assert.Equal(t, "r2", out[0].RemoteID)
}

func party(isSpouse bool) deal.Party {
	return deal.Party{ID: uuid.New(), IsSpouse: isSpouse}
}

func partyDoc(p deal.Party, docType string, validated *bool, cat deal.DocumentCategory) deal.Document {
	d := doc(docType, validated)
	d.PartyID = &p.ID
	d.Category = cat
	return d
}

func TestSummarizeFansOutPerParty(t *testing.T) {
	con := &types.ConsolidatedChecklist{
		Sellers: types.ChecklistCategory{Requirements: []types.Requirement{
			{ID: deal.DocTypeRG, Scope: types.ScopePrincipal, Obligatory: true},
			{ID: "OPTIONAL", Obligatory: false},
		}},
		Property: types.ChecklistCategory{Requirements: []types.Requirement{
			{ID: deal.DocTypeDeed, Obligatory: true, RequiredCount: 2},
		}},
	}

	s1, s2 := party(false), party(false)
	rg := partyDoc(s1, deal.DocTypeRG, boolPtr(true), deal.CategorySellers)
	deed := doc(deal.DocTypeDeed, boolPtr(true))
	deed.Category = deal.CategoryProperty

	p := Summarize(con, []deal.Party{s1, s2}, nil, []deal.Document{rg, deed})
	assert.Equal(t, 4, p.Required, "1 RG slot per principal seller + 2 deed slots; optional ignored")
	assert.Equal(t, 2, p.Validated, "only the first seller uploaded an RG")
	assert.InDelta(t, 50.0, p.Percent, 0.1)

	assert.Zero(t, Summarize(nil, nil, nil, nil).Required)
}

func TestSummarizeHonorsScope(t *testing.T) {
	con := &types.ConsolidatedChecklist{
		Sellers: types.ChecklistCategory{Requirements: []types.Requirement{
			{ID: deal.DocTypeRG, Scope: types.ScopePrincipal, Obligatory: true},
			{ID: "CERTIDAO_CASAMENTO", Scope: types.ScopeSpouse, Obligatory: true},
		}},
	}

	principal, spouse := party(false), party(true)
	p := Summarize(con, []deal.Party{principal, spouse}, nil, nil)
	assert.Equal(t, 2, p.Required, "principal-scoped slot for the principal, spouse-scoped for the spouse")
}

func TestSummarizeIgnoresOtherPartiesDocuments(t *testing.T) {
	con := &types.ConsolidatedChecklist{
		Sellers: types.ChecklistCategory{Requirements: []types.Requirement{
			{ID: deal.DocTypeRG, Scope: types.ScopePrincipal, Obligatory: true},
		}},
	}

	s1, s2 := party(false), party(false)
	// Both RGs belong to the first seller; the second seller's slot stays open.
	docs := []deal.Document{
		partyDoc(s1, deal.DocTypeRG, boolPtr(true), deal.CategorySellers),
		partyDoc(s1, deal.DocTypeRG, boolPtr(true), deal.CategorySellers),
	}

	p := Summarize(con, []deal.Party{s1, s2}, nil, docs)
	assert.Equal(t, 2, p.Required)
	assert.Equal(t, 1, p.Validated)
}

func TestSummarizeCategoryIsolation(t *testing.T) {
	con := &types.ConsolidatedChecklist{
		Sellers: types.ChecklistCategory{Requirements: []types.Requirement{
			{ID: deal.DocTypeRG, Obligatory: true},
		}},
	}

	// A validated RG filed under buyers does not count for the seller slot.
	seller := party(false)
	rg := partyDoc(seller, deal.DocTypeRG, boolPtr(true), deal.CategoryBuyers)

	p := Summarize(con, []deal.Party{seller}, nil, []deal.Document{rg})
	assert.Equal(t, 1, p.Required)
	assert.Zero(t, p.Validated)
}

func TestPartyChecklists(t *testing.T) {
	cat := types.ChecklistCategory{Requirements: []types.Requirement{
		{ID: deal.DocTypeRG, Scope: types.ScopePrincipal, Obligatory: true},
		{ID: "CERTIDAO_CASAMENTO", Scope: types.ScopeSpouse, Obligatory: true},
		{ID: deal.DocTypeProofAddress, Obligatory: true},
	}}

	principal, spouse := party(false), party(true)

	rg := partyDoc(principal, deal.DocTypeRG, boolPtr(true), deal.CategorySellers)
	reusable := partyDoc(principal, deal.DocTypeCNH, boolPtr(true), deal.CategorySellers)
	reusable.RecognitionStatus = deal.RecognitionCompleted
	reusable.RemoteID = "r9"

	out := PartyChecklists(cat, []deal.Party{principal, spouse}, []deal.Document{rg, reusable})
	require.Len(t, out, 2)

	assert.Equal(t, principal.ID, out[0].PartyID)
	require.Len(t, out[0].Requirements, 2, "principal gets titular + unscoped requirements")
	assert.Equal(t, StatusSatisfied, out[0].Requirements[0].Status)
	assert.Equal(t, StatusEmpty, out[0].Requirements[1].Status)
	require.Len(t, out[0].Requirements[1].Reusable, 1, "the completed CNH can be linked to the open slot")
	assert.Equal(t, "r9", out[0].Requirements[1].Reusable[0].RemoteID)

	assert.True(t, out[1].IsSpouse)
	require.Len(t, out[1].Requirements, 2, "spouse gets conjuge + unscoped requirements")
	assert.Equal(t, "CERTIDAO_CASAMENTO", out[1].Requirements[0].Requirement.ID)
	assert.Equal(t, StatusEmpty, out[1].Requirements[0].Status)
}
