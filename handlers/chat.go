package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"tokencast/models"
	chatsvc "tokencast/services/chat"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type chatService interface {
	PostMessage(ctx context.Context, streamID, content, authorName string, userID *string) (*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, streamID, id string) error
	ClearHistory(ctx context.Context, streamID string) (int64, error)
	ListMessages(ctx context.Context, streamID string) ([]models.ChatMessage, error)
}

var _ chatService = (*chatsvc.Service)(nil)

type streamGetter interface {
	Get(ctx context.Context, id string) (*models.Stream, error)
}

// ChatHandler exposes the chat log and its websocket feed.
type ChatHandler struct {
	service  chatService
	hub      *chatsvc.Hub
	streams  streamGetter
	identity identity
	upgrader websocket.Upgrader
}

// NewChatHandler creates the chat handler.
func NewChatHandler(service chatService, hub *chatsvc.Hub, streams streamGetter, id identity) *ChatHandler {
	return &ChatHandler{
		service:  service,
		hub:      hub,
		streams:  streams,
		identity: id,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The page origin is enforced upstream by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// List returns a stream's messages in creation order. A retrieval failure
// degrades to an empty list so a broken chat pane never takes the page down.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]

	messages, err := h.service.ListMessages(r.Context(), streamID)
	if err != nil {
		slog.Warn("[chat] list failed, serving empty history", "stream_id", streamID, "error", err)
		messages = nil
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// Post appends a message. Authenticated callers post under their account;
// anonymous viewers post with just a display name.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]

	var request struct {
		Content    string `json:"content"`
		AuthorName string `json:"authorName"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	authorName := request.AuthorName
	var userID *string
	if user, err := h.identity.CurrentUser(r); err == nil {
		userID = &user.ID
		authorName = user.DisplayName
	}

	message, err := h.service.PostMessage(r.Context(), streamID, request.Content, authorName, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

// Delete removes a single message. Only the stream owner or an admin may
// moderate; deleting an already-absent ID is a 404.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamID, messageID := vars["id"], vars["messageId"]

	if err := h.authorizeModeration(r, streamID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.DeleteMessage(r.Context(), streamID, messageID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear bulk-deletes a stream's history.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]

	if err := h.authorizeModeration(r, streamID); err != nil {
		writeError(w, err)
		return
	}

	deleted, err := h.service.ClearHistory(r.Context(), streamID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// Feed upgrades to a websocket and streams chat events until the client goes
// away. The feed is read-only; posting stays on the JSON endpoint.
func (h *ChatHandler) Feed(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]

	if _, err := h.streams.Get(r.Context(), streamID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("[chat] websocket upgrade failed", "stream_id", streamID, "error", err)
		return
	}

	h.hub.Register(streamID, conn)
	defer func() {
		h.hub.Unregister(streamID, conn)
		conn.Close()
	}()

	// Drain control frames; any read error means the client disconnected.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ChatHandler) authorizeModeration(r *http.Request, streamID string) error {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		return err
	}
	if user.Admin {
		return nil
	}

	stream, err := h.streams.Get(r.Context(), streamID)
	if err != nil {
		return err
	}
	if stream.UserID != user.ID {
		return fmt.Errorf("%w: stream %s is not owned by caller", models.ErrUnauthorized, streamID)
	}
	return nil
}
