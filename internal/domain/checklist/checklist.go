package checklist

import "time"

// Scope tags which party a requirement applies to. An empty scope applies to
// principals and spouses alike.
type Scope string

const (
	ScopeUnscoped  Scope = ""
	ScopePrincipal Scope = "titular"
	ScopeSpouse    Scope = "conjuge"
)

type Complexity string

const (
	ComplexityLow      Complexity = "BAIXA"
	ComplexityMedium   Complexity = "MEDIA"
	ComplexityMedHigh  Complexity = "MEDIA_ALTA"
	ComplexityHigh     Complexity = "ALTA"
	ComplexityVeryHigh Complexity = "MUITO_ALTA"
)

var complexityRank = map[Complexity]int{
	ComplexityLow:      1,
	ComplexityMedium:   2,
	ComplexityMedHigh:  3,
	ComplexityHigh:     4,
	ComplexityVeryHigh: 5,
}

func (c Complexity) Rank() int { return complexityRank[c] }

// Max returns the higher of the two ratings; unknown ratings rank lowest.
func (c Complexity) Max(other Complexity) Complexity {
	if other.Rank() > c.Rank() {
		return other
	}
	return c
}

// Requirement is one document rule from the external catalog. Immutable once
// fetched. RequiredCount is 1 except for deed (MATRICULA) requirements,
// which need one instance per deed.
type Requirement struct {
	ID            string `json:"id"`
	Name          string `json:"nome"`
	Description   string `json:"observacao,omitempty"`
	Scope         Scope  `json:"de,omitempty"`
	Obligatory    bool   `json:"obrigatorio"`
	RequiredCount int    `json:"required_count,omitempty"`
}

// Key identifies a requirement for dedup purposes across pair responses.
func (r Requirement) Key() string { return r.ID + "|" + string(r.Scope) }

type Category struct {
	Requirements []Requirement `json:"documentos"`
	Alerts       []string      `json:"alertas"`
}

type Summary struct {
	MaxComplexity       Complexity `json:"complexidade_maxima"`
	MaxEstimatedDays    int        `json:"prazo_estimado_dias"`
	EstimatedCompletion time.Time  `json:"data_estimada_conclusao"`
}

// Consolidated is the merged checklist across every seller×buyer pair.
// Rebuilt whole on each roster or property change, never patched.
type Consolidated struct {
	Sellers  Category `json:"vendedores"`
	Buyers   Category `json:"compradores"`
	Property Category `json:"imovel"`
	Summary  Summary  `json:"resumo"`

	// TotalPairs/FailedPairs record fan-out health; FailedPairs > 0 with a
	// usable checklist means the consolidation degraded to the successful
	// subset.
	TotalPairs  int `json:"total_pairs"`
	FailedPairs int `json:"failed_pairs"`
}
