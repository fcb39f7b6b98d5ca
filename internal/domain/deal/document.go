package deal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentCategory string

const (
	CategorySellers  DocumentCategory = "sellers"
	CategoryBuyers   DocumentCategory = "buyers"
	CategoryProperty DocumentCategory = "property"
)

// Well-known catalog document type ids. The catalog may introduce new ids
// at any time; these are only the ones the engine treats specially.
const (
	DocTypeRG           = "RG"
	DocTypeCNH          = "CNH"
	DocTypeDeed         = "MATRICULA"
	DocTypeIPTU         = "IPTU"
	DocTypeProofAddress = "COMPROVANTE_RESIDENCIA"
	DocTypeCorpContract = "CONTRATO_SOCIAL"
)

type RecognitionStatus string

const (
	RecognitionIdle       RecognitionStatus = "idle"
	RecognitionUploading  RecognitionStatus = "uploading"
	RecognitionProcessing RecognitionStatus = "processing"
	RecognitionCompleted  RecognitionStatus = "completed"
	RecognitionError      RecognitionStatus = "error"
)

// Terminal reports whether the status can only be left via explicit retry.
func (s RecognitionStatus) Terminal() bool {
	return s == RecognitionCompleted || s == RecognitionError
}

// Document is one uploaded artifact plus its recognition/validation state.
// Type is the declared primary type; Types is the full satisfied set and is
// always a superset of Type (it grows through linking).
type Document struct {
	ID      uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DealID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"deal_id"`
	Deal    *Deal      `gorm:"constraint:OnDelete:CASCADE;foreignKey:DealID;references:ID" json:"deal,omitempty"`
	PartyID *uuid.UUID `gorm:"type:uuid;index" json:"party_id,omitempty"`

	Category DocumentCategory            `gorm:"column:category;not null;index" json:"category"`
	Type     string                      `gorm:"column:type;not null" json:"type"`
	Types    datatypes.JSONSlice[string] `gorm:"column:types;type:jsonb" json:"types"`

	OriginalName string `gorm:"column:original_name;not null" json:"original_name"`
	MimeType     string `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes    int64  `gorm:"column:size_bytes" json:"size_bytes"`
	StorageKey   string `gorm:"column:storage_key" json:"storage_key"`
	FileURL      string `gorm:"column:file_url" json:"file_url"`

	// RemoteID is the recognition backend's correlation id; empty until the
	// backend has accepted the submission.
	RemoteID          string            `gorm:"column:remote_id;index" json:"remote_id,omitempty"`
	RecognitionStatus RecognitionStatus `gorm:"column:recognition_status;not null;default:'idle'" json:"recognition_status"`
	RecognitionError  string            `gorm:"column:recognition_error" json:"recognition_error,omitempty"`

	// Validated is tri-state: nil means pending.
	Validated     *bool          `gorm:"column:validated" json:"validated,omitempty"`
	ExtractedData datatypes.JSON `gorm:"column:extracted_data;type:jsonb" json:"extracted_data,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "deal_document" }
