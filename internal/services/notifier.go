package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/matcher"
	"github.com/dealdesk/intake-backend/internal/realtime"
)

// IntakeNotifier pushes intake changes to subscribed clients. Channels are
// deal ids.
type IntakeNotifier interface {
	DocumentUpdated(dealID uuid.UUID, doc *types.Document)
	ChecklistUpdated(dealID uuid.UUID, con *types.ConsolidatedChecklist, progress matcher.Progress)
	DealUpdated(dealID uuid.UUID, d *types.Deal)
	RecognitionResult(dealID uuid.UUID, doc *types.Document)
}

type intakeNotifier struct {
	emit SSEEmitter
}

func NewIntakeNotifier(emit SSEEmitter) IntakeNotifier {
	return &intakeNotifier{emit: emit}
}

func (n *intakeNotifier) DocumentUpdated(dealID uuid.UUID, doc *types.Document) {
	if n == nil || n.emit == nil || dealID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: dealID.String(),
		Event:   realtime.SSEEventDocumentUpdated,
		Data:    map[string]any{"document": doc},
	})
}

func (n *intakeNotifier) ChecklistUpdated(dealID uuid.UUID, con *types.ConsolidatedChecklist, progress matcher.Progress) {
	if n == nil || n.emit == nil || dealID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: dealID.String(),
		Event:   realtime.SSEEventChecklistUpdated,
		Data: map[string]any{
			"checklist": con,
			"progress":  progress,
		},
	})
}

func (n *intakeNotifier) DealUpdated(dealID uuid.UUID, d *types.Deal) {
	if n == nil || n.emit == nil || dealID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: dealID.String(),
		Event:   realtime.SSEEventDealUpdated,
		Data:    map[string]any{"deal": d},
	})
}

func (n *intakeNotifier) RecognitionResult(dealID uuid.UUID, doc *types.Document) {
	if n == nil || n.emit == nil || dealID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: dealID.String(),
		Event:   realtime.SSEEventRecognition,
		Data: map[string]any{
			"document_id": doc.ID,
			"status":      doc.RecognitionStatus,
			"validated":   doc.Validated,
			"error":       doc.RecognitionError,
		},
	})
}
