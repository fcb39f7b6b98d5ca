package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
	"github.com/dealdesk/intake-backend/internal/services"
)

type DocumentHandler struct {
	log             *logger.Logger
	documentService services.DocumentService
}

func NewDocumentHandler(baseLog *logger.Logger, documentService services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		log:             baseLog.With("handler", "DocumentHandler"),
		documentService: documentService,
	}
}

func docID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("docId"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid document id")
	}
	return id, nil
}

// POST /api/deals/:id/documents  (multipart)
func (h *DocumentHandler) Upload(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	in := services.UploadInput{
		Category: types.DocumentCategory(c.PostForm("category")),
		Type:     c.PostForm("type"),
		Name:     fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
	}
	if raw := c.PostForm("party_id"); raw != "" {
		partyID, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_party_id", err)
			return
		}
		in.PartyID = &partyID
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(dbc(c), id, in, file)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

// GET /api/deals/:id/documents
func (h *DocumentHandler) List(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	docs, err := h.documentService.List(dbc(c), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"documents": docs,
		"checking":  h.documentService.Checking(id),
	})
}

// POST /api/deals/:id/documents/:docId/link
func (h *DocumentHandler) Link(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	sourceID, err := docID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	var body struct {
		Type     string                 `json:"type" binding:"required"`
		Category types.DocumentCategory `json:"category" binding:"required"`
		PartyID  *uuid.UUID             `json:"party_id,omitempty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	doc, err := h.documentService.Link(dbc(c), id, sourceID, body.Type, body.PartyID, body.Category)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

// DELETE /api/deals/:id/documents/:docId
func (h *DocumentHandler) Remove(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	documentID, err := docID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	if err := h.documentService.Remove(dbc(c), id, documentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/deals/:id/documents/:docId/retry
func (h *DocumentHandler) Retry(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	documentID, err := docID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	if err := h.documentService.Retry(dbc(c), id, documentID); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// POST /api/deals/:id/documents/refresh
func (h *DocumentHandler) Refresh(c *gin.Context) {
	id, err := dealID(c)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := h.documentService.Refresh(dbc(c), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"checking": h.documentService.Checking(id)})
}
