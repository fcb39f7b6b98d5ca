package deal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PartyRole string

const (
	PartyRoleSeller PartyRole = "seller"
	PartyRoleBuyer  PartyRole = "buyer"
)

type PersonType string

const (
	PersonTypeIndividual PersonType = "PF"
	PersonTypeEntity     PersonType = "PJ"
)

type MaritalState string

const (
	MaritalSingle     MaritalState = "solteiro"
	MaritalMarried    MaritalState = "casado"
	MaritalCivilUnion MaritalState = "uniao_estavel"
	MaritalDivorced   MaritalState = "divorciado"
	MaritalWidowed    MaritalState = "viuvo"
)

// RequiresSpouse reports whether the state implies a paired spouse record.
func (m MaritalState) RequiresSpouse() bool {
	return m == MaritalMarried || m == MaritalCivilUnion
}

type PropertyRegime string

const (
	RegimePartialCommunity   PropertyRegime = "comunhao_parcial"
	RegimeFullCommunity      PropertyRegime = "comunhao_universal"
	RegimeSeparation         PropertyRegime = "separacao_total"
	RegimeFinalParticipation PropertyRegime = "participacao_final"
)

// DefaultRegime is applied when a spouse is auto-inserted for a principal
// that has no regime picked yet.
const DefaultRegime = RegimePartialCommunity

type Party struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DealID uuid.UUID `gorm:"type:uuid;not null;index" json:"deal_id"`
	Deal   *Deal     `gorm:"constraint:OnDelete:CASCADE;foreignKey:DealID;references:ID" json:"deal,omitempty"`

	Role     PartyRole `gorm:"column:role;not null;index" json:"role"`
	Position int       `gorm:"column:position;not null" json:"position"`

	PersonType     PersonType     `gorm:"column:person_type;not null;default:'PF'" json:"person_type"`
	MaritalState   MaritalState   `gorm:"column:marital_state" json:"marital_state"`
	PropertyRegime PropertyRegime `gorm:"column:property_regime" json:"property_regime"`
	IsSpouse       bool           `gorm:"column:is_spouse;not null;default:false" json:"is_spouse"`

	Name  string `gorm:"column:name" json:"name"`
	Email string `gorm:"column:email" json:"email"`
	CPF   string `gorm:"column:cpf" json:"cpf"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Party) TableName() string { return "deal_party" }

// NewParty returns a default individual party for the given role.
func NewParty(dealID uuid.UUID, role PartyRole) Party {
	return Party{
		ID:           uuid.New(),
		DealID:       dealID,
		Role:         role,
		PersonType:   PersonTypeIndividual,
		MaritalState: MaritalSingle,
	}
}
