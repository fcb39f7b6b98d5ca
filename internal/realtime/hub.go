package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

// SSEHub fans messages out to the connected clients of this instance.
// Cross-instance delivery happens through the bus, which forwards into the
// hub of every instance.
type SSEHub struct {
	log *logger.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]*SSEClient
}

func NewSSEHub(baseLog *logger.Logger) *SSEHub {
	return &SSEHub{
		log:     baseLog.With("service", "SSEHub"),
		clients: make(map[uuid.UUID]*SSEClient),
	}
}

func (h *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	client := &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, 64),
		done:     make(chan struct{}),
		Logger:   h.log,
	}
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	return client
}

func (h *SSEHub) AddChannel(client *SSEClient, channel string) {
	if client == nil || channel == "" {
		return
	}
	h.mu.Lock()
	client.Channels[channel] = true
	h.mu.Unlock()
}

func (h *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	if client == nil {
		return
	}
	h.mu.Lock()
	delete(client.Channels, channel)
	h.mu.Unlock()
}

// Broadcast delivers msg to every client subscribed to its channel. Slow
// clients get dropped rather than block the hub.
func (h *SSEHub) Broadcast(msg SSEMessage) {
	h.mu.RLock()
	var stale []*SSEClient
	for _, client := range h.clients {
		if !client.Channels[msg.Channel] {
			continue
		}
		select {
		case client.Outbound <- msg:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.log.Warn("dropping slow SSE client", "client_id", client.ID.String())
		h.CloseClient(client)
	}
}

func (h *SSEHub) CloseClient(client *SSEClient) {
	if client == nil {
		return
	}
	h.mu.Lock()
	_, live := h.clients[client.ID]
	delete(h.clients, client.ID)
	h.mu.Unlock()
	if live {
		close(client.done)
		close(client.Outbound)
	}
}

// Done exposes the client's shutdown signal for the HTTP handler.
func (c *SSEClient) Done() <-chan struct{} { return c.done }
