// Package matcher relates uploaded documents to checklist requirements. It is
// pure computation over in-memory snapshots; persistence and recognition live
// elsewhere.
package matcher

import (
	"github.com/google/uuid"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
)

// RequirementStatus is the rollup state of one requirement given the
// documents currently attached to it.
type RequirementStatus string

const (
	// StatusEmpty means nothing has been uploaded against the requirement.
	StatusEmpty RequirementStatus = "empty"
	// StatusPending means at least one attached document awaits validation,
	// or fewer validated documents exist than the requirement demands.
	StatusPending RequirementStatus = "pending"
	// StatusError means a rejected document is attached and none are still
	// pending.
	StatusError RequirementStatus = "error"
	// StatusSatisfied means every attached document validated true and
	// enough of them exist.
	StatusSatisfied RequirementStatus = "satisfied"
)

// Satisfies reports whether doc counts toward req: either the declared
// primary type matches, or the requirement id is in the document's linked
// type set.
func Satisfies(doc deal.Document, req types.Requirement) bool {
	if doc.Type == req.ID {
		return true
	}
	for _, t := range doc.Types {
		if t == req.ID {
			return true
		}
	}
	return false
}

// DocumentsFor returns the documents that count toward req, in input order.
func DocumentsFor(req types.Requirement, docs []deal.Document) []deal.Document {
	var out []deal.Document
	for _, d := range docs {
		if Satisfies(d, req) {
			out = append(out, d)
		}
	}
	return out
}

// Status rolls the attached documents up into one requirement state.
// Satisfied requires every attached document to be validated true; a single
// rejection blocks it. A pending document masks a rejection, since the
// pending one may still validate.
func Status(req types.Requirement, docs []deal.Document) RequirementStatus {
	matching := DocumentsFor(req, docs)
	if len(matching) == 0 {
		return StatusEmpty
	}

	need := req.RequiredCount
	if need <= 0 {
		need = 1
	}

	validated := 0
	rejected := 0
	anyPending := false
	for _, d := range matching {
		switch {
		case d.Validated == nil:
			anyPending = true
		case *d.Validated:
			validated++
		default:
			rejected++
		}
	}

	switch {
	case rejected == 0 && !anyPending && validated >= need:
		return StatusSatisfied
	case anyPending || rejected == 0:
		return StatusPending
	default:
		return StatusError
	}
}

// ForScope filters requirements down to the ones that apply to a principal or
// a spouse. Unscoped requirements apply to both.
func ForScope(reqs []types.Requirement, isSpouse bool) []types.Requirement {
	want := types.ScopePrincipal
	if isSpouse {
		want = types.ScopeSpouse
	}
	var out []types.Requirement
	for _, r := range reqs {
		if r.Scope == types.ScopeUnscoped || r.Scope == want {
			out = append(out, r)
		}
	}
	return out
}

// ReusableCandidates returns documents from the same party pool that could be
// linked to req: completed and validated recognitions carrying a remote id
// that do not already satisfy the requirement.
func ReusableCandidates(req types.Requirement, docs []deal.Document) []deal.Document {
	var out []deal.Document
	for _, d := range docs {
		if Satisfies(d, req) {
			continue
		}
		if d.Validated == nil || !*d.Validated {
			continue
		}
		if d.RecognitionStatus != deal.RecognitionCompleted || d.RemoteID == "" {
			continue
		}
		out = append(out, d)
	}
	return out
}

// PartyDocuments filters docs down to the ones filed for one party.
func PartyDocuments(partyID uuid.UUID, docs []deal.Document) []deal.Document {
	var out []deal.Document
	for _, d := range docs {
		if d.PartyID != nil && *d.PartyID == partyID {
			out = append(out, d)
		}
	}
	return out
}

// RequirementDetail is the resolved state of one requirement for one party:
// its rollup status plus the documents that could be linked to cover it.
type RequirementDetail struct {
	Requirement types.Requirement `json:"requirement"`
	Status      RequirementStatus `json:"status"`
	Reusable    []deal.Document   `json:"reusable,omitempty"`
}

// PartyChecklist is one party's slice of a category checklist.
type PartyChecklist struct {
	PartyID      uuid.UUID           `json:"party_id"`
	IsSpouse     bool                `json:"is_spouse"`
	Requirements []RequirementDetail `json:"requirements"`
}

// PartyChecklists resolves one category against its roster: every party gets
// the requirements of its scope, each with a status over that party's own
// documents and the reuse candidates from the same pool.
func PartyChecklists(cat types.ChecklistCategory, parties []deal.Party, docs []deal.Document) []PartyChecklist {
	var out []PartyChecklist
	for _, party := range parties {
		partyDocs := PartyDocuments(party.ID, docs)
		pc := PartyChecklist{PartyID: party.ID, IsSpouse: party.IsSpouse}
		for _, r := range ForScope(cat.Requirements, party.IsSpouse) {
			pc.Requirements = append(pc.Requirements, RequirementDetail{
				Requirement: r,
				Status:      Status(r, partyDocs),
				Reusable:    ReusableCandidates(r, partyDocs),
			})
		}
		out = append(out, pc)
	}
	return out
}

// Progress is a deal-wide completion summary.
type Progress struct {
	Required  int     `json:"required"`
	Validated int     `json:"validated"`
	Percent   float64 `json:"percent"`
}

// Summarize counts validated documents against obligatory requirement slots.
// Seller and buyer requirements fan out per roster party within their scope,
// each counted over that party's own documents; property requirements count
// once for the deal. A requirement contributes RequiredCount slots; extra
// validated documents beyond the slot count do not inflate the total.
func Summarize(con *types.ConsolidatedChecklist, sellers, buyers []deal.Party, docs []deal.Document) Progress {
	var p Progress
	if con == nil {
		return p
	}

	byCategory := map[deal.DocumentCategory][]deal.Document{}
	for _, d := range docs {
		byCategory[d.Category] = append(byCategory[d.Category], d)
	}

	slot := func(r types.Requirement, docs []deal.Document) {
		if !r.Obligatory {
			return
		}
		need := r.RequiredCount
		if need <= 0 {
			need = 1
		}
		p.Required += need

		validated := 0
		for _, d := range DocumentsFor(r, docs) {
			if d.Validated != nil && *d.Validated {
				validated++
			}
		}
		if validated > need {
			validated = need
		}
		p.Validated += validated
	}

	perParty := func(cat types.ChecklistCategory, parties []deal.Party, catDocs []deal.Document) {
		for _, party := range parties {
			partyDocs := PartyDocuments(party.ID, catDocs)
			for _, r := range ForScope(cat.Requirements, party.IsSpouse) {
				slot(r, partyDocs)
			}
		}
	}
	perParty(con.Sellers, sellers, byCategory[deal.CategorySellers])
	perParty(con.Buyers, buyers, byCategory[deal.CategoryBuyers])
	for _, r := range con.Property.Requirements {
		slot(r, byCategory[deal.CategoryProperty])
	}

	if p.Required > 0 {
		p.Percent = float64(p.Validated) / float64(p.Required) * 100
	}
	return p
}
