package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/middleware"
	"github.com/dealdesk/intake-backend/internal/pkg/dbctx"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/services"
)

type DealHandler struct {
	log           *logger.Logger
	intakeService services.IntakeService
}

func NewDealHandler(baseLog *logger.Logger, intakeService services.IntakeService) *DealHandler {
	return &DealHandler{
		log:           baseLog.With("handler", "DealHandler"),
		intakeService: intakeService,
	}
}

func dbc(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

func dealID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid deal id")
	}
	return id, nil
}

// POST /api/deals
func (h *DealHandler) Create(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	d, err := h.intakeService.CreateDeal(dbc(c), middleware.UserID(c), body.Name)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"deal": d})
}

// GET /api/deals
func (h *DealHandler) List(c *gin.Context) {
	deals, err := h.intakeService.ListDeals(dbc(c), middleware.UserID(c))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deals": deals})
}

// GET /api/deals/:id
func (h *DealHandler) Get(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	d, err := h.intakeService.GetDeal(dbc(c), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deal": d})
}

// PATCH /api/deals/:id
func (h *DealHandler) UpdateProperty(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var patch services.PropertyPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	d, err := h.intakeService.UpdateProperty(dbc(c), id, patch)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deal": d})
}

// PUT /api/deals/:id/status
func (h *DealHandler) UpdateStatus(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		Status types.DealStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.intakeService.UpdateStatus(dbc(c), id, body.Status); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/deals/:id/progress
func (h *DealHandler) Progress(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	progress, err := h.intakeService.Progress(dbc(c), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"progress": progress})
}
