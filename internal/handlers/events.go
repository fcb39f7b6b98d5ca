package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/recognition"
	"github.com/dealdesk/intake-backend/internal/services"
)

// EventsHandler is the inbound boundary for the recognition backend's
// webhooks. Accepted events go through the push channel so every API
// instance reconciles them, not just the one that got the callback.
type EventsHandler struct {
	log             *logger.Logger
	apiKey          string
	publisher       recognition.Publisher
	documentService services.DocumentService
}

func NewEventsHandler(
	baseLog *logger.Logger,
	cfg config.RecognitionConfig,
	publisher recognition.Publisher,
	documentService services.DocumentService,
) *EventsHandler {
	return &EventsHandler{
		log:             baseLog.With("handler", "EventsHandler"),
		apiKey:          cfg.APIKey,
		publisher:       publisher,
		documentService: documentService,
	}
}

// POST /api/recognition/events
func (h *EventsHandler) Receive(c *gin.Context) {
	if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Api-Key")), []byte(h.apiKey)) != 1 {
		RespondError(c, http.StatusUnauthorized, "invalid_api_key", fmt.Errorf("invalid api key"))
		return
	}

	var res recognition.Result
	if err := c.ShouldBindJSON(&res); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if res.RemoteID == "" {
		RespondError(c, http.StatusBadRequest, "missing_remote_id", fmt.Errorf("remote_id required"))
		return
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(c.Request.Context(), res); err == nil {
			c.Status(http.StatusAccepted)
			return
		}
		h.log.Warn("publish recognition event failed; handling locally", "remote_id", res.RemoteID)
	}
	h.documentService.HandleResult(res)
	c.Status(http.StatusAccepted)
}
