package domain

import (
	"github.com/dealdesk/intake-backend/internal/domain/checklist"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
)

type (
	Deal           = deal.Deal
	DealStatus     = deal.DealStatus
	PropertyConfig = deal.PropertyConfig

	Party          = deal.Party
	PartyRole      = deal.PartyRole
	PersonType     = deal.PersonType
	MaritalState   = deal.MaritalState
	PropertyRegime = deal.PropertyRegime

	Document          = deal.Document
	DocumentCategory  = deal.DocumentCategory
	RecognitionStatus = deal.RecognitionStatus

	Requirement           = checklist.Requirement
	RequirementScope      = checklist.Scope
	Complexity            = checklist.Complexity
	ChecklistCategory     = checklist.Category
	ChecklistSummary      = checklist.Summary
	ConsolidatedChecklist = checklist.Consolidated
)

const (
	PartyRoleSeller = deal.PartyRoleSeller
	PartyRoleBuyer  = deal.PartyRoleBuyer

	PersonTypeIndividual = deal.PersonTypeIndividual
	PersonTypeEntity     = deal.PersonTypeEntity

	CategorySellers  = deal.CategorySellers
	CategoryBuyers   = deal.CategoryBuyers
	CategoryProperty = deal.CategoryProperty

	RecognitionIdle       = deal.RecognitionIdle
	RecognitionUploading  = deal.RecognitionUploading
	RecognitionProcessing = deal.RecognitionProcessing
	RecognitionCompleted  = deal.RecognitionCompleted
	RecognitionError      = deal.RecognitionError

	ScopeUnscoped  = checklist.ScopeUnscoped
	ScopePrincipal = checklist.ScopePrincipal
	ScopeSpouse    = checklist.ScopeSpouse
)
