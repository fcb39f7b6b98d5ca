package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/domain/deal"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/roster"
	"github.com/dealdesk/intake-backend/internal/services"
)

type PartyHandler struct {
	log           *logger.Logger
	intakeService services.IntakeService
}

func NewPartyHandler(baseLog *logger.Logger, intakeService services.IntakeService) *PartyHandler {
	return &PartyHandler{
		log:           baseLog.With("handler", "PartyHandler"),
		intakeService: intakeService,
	}
}

func partyRole(c *gin.Context) (types.PartyRole, error) {
	switch role := types.PartyRole(c.Param("role")); role {
	case deal.PartyRoleSeller, deal.PartyRoleBuyer:
		return role, nil
	default:
		return "", fmt.Errorf("invalid party role %q", c.Param("role"))
	}
}

func partyIndex(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid party index")
	}
	return index, nil
}

// GET /api/deals/:id/parties/:role
func (h *PartyHandler) List(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	role, err := partyRole(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_role", err)
		return
	}
	parties, err := h.intakeService.Parties(dbc(c), id, role)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"parties": parties, "violations": roster.Violations(parties)})
}

// POST /api/deals/:id/parties/:role
func (h *PartyHandler) Add(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	role, err := partyRole(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_role", err)
		return
	}
	parties, err := h.intakeService.AddParty(dbc(c), id, role)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"parties": parties})
}

// PATCH /api/deals/:id/parties/:role/:index
func (h *PartyHandler) Update(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	role, err := partyRole(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_role", err)
		return
	}
	index, err := partyIndex(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_index", err)
		return
	}
	var patch roster.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	parties, err := h.intakeService.UpdateParty(dbc(c), id, role, index, patch)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"parties": parties})
}

// DELETE /api/deals/:id/parties/:role/:index
func (h *PartyHandler) Remove(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	role, err := partyRole(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_role", err)
		return
	}
	index, err := partyIndex(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_index", err)
		return
	}
	parties, err := h.intakeService.RemoveParty(dbc(c), id, role, index)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"parties": parties})
}
