// Package roster owns the ordered party lists of a deal and keeps spouse
// records consistent when parties are edited. Every operation is a pure
// transform: it returns a fresh slice and never mutates its input.
package roster

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dealdesk/intake-backend/internal/domain/deal"
)

// Patch carries the fields of a party edit; nil fields are left untouched.
type Patch struct {
	PersonType     *deal.PersonType     `json:"person_type,omitempty"`
	MaritalState   *deal.MaritalState   `json:"marital_state,omitempty"`
	PropertyRegime *deal.PropertyRegime `json:"property_regime,omitempty"`
	Name           *string              `json:"name,omitempty"`
	Email          *string              `json:"email,omitempty"`
	CPF            *string              `json:"cpf,omitempty"`
}

func (p Patch) apply(target deal.Party) deal.Party {
	if p.PersonType != nil {
		target.PersonType = *p.PersonType
	}
	if p.MaritalState != nil {
		target.MaritalState = *p.MaritalState
	}
	if p.PropertyRegime != nil {
		target.PropertyRegime = *p.PropertyRegime
	}
	if p.Name != nil {
		target.Name = *p.Name
	}
	if p.Email != nil {
		target.Email = *p.Email
	}
	if p.CPF != nil {
		target.CPF = *p.CPF
	}
	return target
}

// AddParty appends a default individual party to the list.
func AddParty(list []deal.Party, dealID uuid.UUID, role deal.PartyRole) []deal.Party {
	out := clone(list)
	return append(out, deal.NewParty(dealID, role))
}

// RemoveParty removes the party at index. Removing the last remaining party
// is blocked; the returned bool reports whether a removal happened.
func RemoveParty(list []deal.Party, index int) ([]deal.Party, bool) {
	if len(list) <= 1 || index < 0 || index >= len(list) {
		return clone(list), false
	}
	out := make([]deal.Party, 0, len(list)-1)
	out = append(out, list[:index]...)
	out = append(out, list[index+1:]...)
	return out, true
}

// UpdateParty applies patch to the party at index and runs the spousal-sync
// rules: auto-inserting a spouse when the marital state starts requiring
// one, dropping the adjacent spouse when it stops, and propagating a
// property-regime change to the paired counterpart.
func UpdateParty(list []deal.Party, index int, patch Patch) ([]deal.Party, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("roster: party index %d out of range (len %d)", index, len(list))
	}

	out := clone(list)
	old := out[index]
	updated := patch.apply(old)
	out[index] = updated

	individual := updated.PersonType == deal.PersonTypeIndividual

	// Add-spouse: marital state newly requires a spouse, the edited party is
	// a principal, and no spouse exists anywhere in the list yet.
	if individual &&
		updated.MaritalState.RequiresSpouse() &&
		!old.MaritalState.RequiresSpouse() &&
		!updated.IsSpouse &&
		!hasSpouse(out) {
		spouse := deal.NewParty(updated.DealID, updated.Role)
		spouse.IsSpouse = true
		spouse.MaritalState = updated.MaritalState
		spouse.PropertyRegime = updated.PropertyRegime
		if spouse.PropertyRegime == "" {
			spouse.PropertyRegime = deal.DefaultRegime
		}
		out = splice(out, index+1, spouse)
	}

	// Remove-spouse: the principal left a spouse-requiring state; its spouse
	// is by construction the immediately following entry.
	if individual &&
		old.MaritalState.RequiresSpouse() &&
		!updated.MaritalState.RequiresSpouse() &&
		!updated.IsSpouse {
		next := index + 1
		if next < len(out) && out[next].IsSpouse {
			out = append(out[:next], out[next+1:]...)
		}
	}

	// Regime-propagation: overwrite the paired counterpart's regime with the
	// edited side's new value. One-directional; never cascades further.
	if individual &&
		updated.MaritalState.RequiresSpouse() &&
		updated.PropertyRegime != old.PropertyRegime {
		if pair := pairIndex(out, index); pair >= 0 {
			out[pair].PropertyRegime = updated.PropertyRegime
		}
	}

	return out, nil
}

// pairIndex locates the counterpart of the party at index: for a spouse, the
// nearest preceding qualifying principal (falling back to the first
// qualifying principal anywhere when the spouse was reordered to the front);
// for a principal, the nearest following spouse entry, falling back to the
// first spouse anywhere. With several principals missing their own spouses
// this is first-match by list order.
func pairIndex(list []deal.Party, index int) int {
	edited := list[index]
	if edited.IsSpouse {
		for i := index - 1; i >= 0; i-- {
			if !list[i].IsSpouse && list[i].MaritalState.RequiresSpouse() {
				return i
			}
		}
		for i := range list {
			if i != index && !list[i].IsSpouse && list[i].MaritalState.RequiresSpouse() {
				return i
			}
		}
		return -1
	}
	for i := index + 1; i < len(list); i++ {
		if list[i].IsSpouse {
			return i
		}
	}
	for i := range list {
		if i != index && list[i].IsSpouse {
			return i
		}
	}
	return -1
}

func hasSpouse(list []deal.Party) bool {
	for _, p := range list {
		if p.IsSpouse {
			return true
		}
	}
	return false
}

// Violations reports best-effort invariant breaches: a qualifying principal
// without any spouse record, a spouse whose regime diverges from its paired
// principal, or a spouse with no principal at all. The presentation layer
// uses these to surface an "add spouse" affordance.
func Violations(list []deal.Party) []string {
	var out []string
	for i, p := range list {
		if p.IsSpouse {
			if pairIndex(list, i) < 0 {
				out = append(out, fmt.Sprintf("spouse at %d has no qualifying principal", i))
			}
			continue
		}
		if p.PersonType != deal.PersonTypeIndividual || !p.MaritalState.RequiresSpouse() {
			continue
		}
		if !hasSpouse(list) {
			out = append(out, fmt.Sprintf("party at %d is %s but has no spouse record", i, p.MaritalState))
			continue
		}
		if pair := pairIndex(list, i); pair >= 0 && list[pair].PropertyRegime != p.PropertyRegime {
			out = append(out, fmt.Sprintf("party at %d and spouse at %d disagree on property regime", i, pair))
		}
	}
	return out
}

func clone(list []deal.Party) []deal.Party {
	out := make([]deal.Party, len(list))
	copy(out, list)
	return out
}

func splice(list []deal.Party, at int, p deal.Party) []deal.Party {
	out := make([]deal.Party, 0, len(list)+1)
	out = append(out, list[:at]...)
	out = append(out, p)
	out = append(out, list[at:]...)
	return out
}
