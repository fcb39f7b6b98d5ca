package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/services"
)

type ChecklistHandler struct {
	log           *logger.Logger
	intakeService services.IntakeService
}

func NewChecklistHandler(baseLog *logger.Logger, intakeService services.IntakeService) *ChecklistHandler {
	return &ChecklistHandler{
		log:           baseLog.With("handler", "ChecklistHandler"),
		intakeService: intakeService,
	}
}

// GET /api/deals/:id/checklist
func (h *ChecklistHandler) Get(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	view, err := h.intakeService.ChecklistView(dbc(c), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"checklist": view.Checklist,
		"sellers":   view.Sellers,
		"buyers":    view.Buyers,
		"progress":  view.Progress,
	})
}
