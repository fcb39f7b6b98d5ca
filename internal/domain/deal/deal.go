package deal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DealStatus string

const (
	DealStatusPreparation DealStatus = "preparation"
	DealStatusSent        DealStatus = "sent"
	DealStatusSigned      DealStatus = "signed"
)

type Deal struct {
	ID     uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string     `gorm:"column:name;not null" json:"name"`
	Status DealStatus `gorm:"column:status;not null;default:'preparation'" json:"status"`

	UseFGTS          bool   `gorm:"column:use_fgts;not null;default:false" json:"use_fgts"`
	BankFinancing    bool   `gorm:"column:bank_financing;not null;default:false" json:"bank_financing"`
	ConsortiumLetter bool   `gorm:"column:consortium_letter;not null;default:false" json:"consortium_letter"`
	PropertyState    string `gorm:"column:property_state" json:"property_state"`
	PropertyType     string `gorm:"column:property_type" json:"property_type"`
	DeedCount        int    `gorm:"column:deed_count;not null;default:1" json:"deed_count"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Deal) TableName() string { return "deal" }

// PropertyConfig is the slice of deal configuration the requirement catalog
// cares about.
type PropertyConfig struct {
	Financing     bool   `json:"financing"`
	PropertyState string `json:"property_state"`
	PropertyType  string `json:"property_type"`
	DeedCount     int    `json:"deed_count"`
}

func (d Deal) PropertyConfig() PropertyConfig {
	return PropertyConfig{
		Financing:     d.BankFinancing,
		PropertyState: d.PropertyState,
		PropertyType:  d.PropertyType,
		DeedCount:     d.DeedCount,
	}
}
