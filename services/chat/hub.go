package chat

import (
	"log/slog"
	"sync"

	"tokencast/models"

	"github.com/gorilla/websocket"
)

// Event is a chat feed frame delivered to websocket subscribers.
type Event struct {
	Type      string              `json:"type"` // "message", "delete" or "clear"
	Message   *models.ChatMessage `json:"message,omitempty"`
	MessageID string              `json:"messageId,omitempty"`
}

// Hub fans chat events out to the websocket subscribers of each stream.
// Writes are serialized under the hub lock; a failed write drops the
// connection rather than blocking the rest of the room.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*websocket.Conn]bool),
	}
}

// Register attaches a connection to a stream's feed.
func (h *Hub) Register(streamID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[streamID] == nil {
		h.subscribers[streamID] = make(map[*websocket.Conn]bool)
	}
	h.subscribers[streamID][conn] = true
}

// Unregister detaches a connection. The caller closes the connection.
func (h *Hub) Unregister(streamID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subscribers[streamID], conn)
	if len(h.subscribers[streamID]) == 0 {
		delete(h.subscribers, streamID)
	}
}

// Broadcast delivers an event to every subscriber of the stream. Dead
// connections are dropped in place.
func (h *Hub) Broadcast(streamID string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.subscribers[streamID] {
		if err := conn.WriteJSON(event); err != nil {
			slog.Debug("[chat] dropping dead subscriber", "stream_id", streamID, "error", err)
			conn.Close()
			delete(h.subscribers[streamID], conn)
		}
	}
	if len(h.subscribers[streamID]) == 0 {
		delete(h.subscribers, streamID)
	}
}

// SubscriberCount returns the number of open feed connections for a stream.
func (h *Hub) SubscriberCount(streamID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[streamID])
}
