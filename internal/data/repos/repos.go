package repos

import (
	"gorm.io/gorm"

	"github.com/dealdesk/intake-backend/internal/data/repos/deals"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

type DealRepo = deals.DealRepo
type PartyRepo = deals.PartyRepo
type DocumentRepo = deals.DocumentRepo

func NewDealRepo(db *gorm.DB, baseLog *logger.Logger) DealRepo { return deals.NewDealRepo(db, baseLog) }
func NewPartyRepo(db *gorm.DB, baseLog *logger.Logger) PartyRepo {
	return deals.NewPartyRepo(db, baseLog)
}
func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return deals.NewDocumentRepo(db, baseLog)
}
