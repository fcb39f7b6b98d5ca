package realtime

// SSEEvent names the server-sent event types pushed to intake clients.
// Channels are deal ids, so every subscriber of a deal sees its updates.
type SSEEvent string

const (
	SSEEventDocumentUpdated  SSEEvent = "document.updated"
	SSEEventChecklistUpdated SSEEvent = "checklist.updated"
	SSEEventDealUpdated      SSEEvent = "deal.updated"
	SSEEventRecognition      SSEEvent = "recognition.result"
)

type SSEMessage struct {
	Channel string         `json:"channel"`
	Event   SSEEvent       `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
}
