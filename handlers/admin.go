package handlers

import (
	"context"
	"net/http"
	"time"

	"tokencast/models"
	chatsvc "tokencast/services/chat"
)

type liveLister interface {
	ListLive(ctx context.Context) ([]models.Stream, error)
}

// AdminHandler provides administrative endpoints for monitoring the platform
type AdminHandler struct {
	streams liveLister
	hub     *chatsvc.Hub
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(streams liveLister, hub *chatsvc.Hub) *AdminHandler {
	return &AdminHandler{streams: streams, hub: hub}
}

// LiveStreamInfo represents one currently live stream
type LiveStreamInfo struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ViewerCount     int       `json:"viewer_count"`
	ChatSubscribers int       `json:"chat_subscribers"`
	TokenAddress    string    `json:"token_address,omitempty"`
	Recording       bool      `json:"recording"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LiveStreamsResponse is the response for the live streams endpoint
type LiveStreamsResponse struct {
	Streams []LiveStreamInfo `json:"streams"`
	Count   int              `json:"count"`
	Viewers int              `json:"viewers"`
}

// GetLiveStreams returns all live streams with their viewer and chat counts
func (h *AdminHandler) GetLiveStreams(w http.ResponseWriter, r *http.Request) {
	live, err := h.streams.ListLive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	response := LiveStreamsResponse{
		Streams: []LiveStreamInfo{},
	}

	for _, stream := range live {
		info := LiveStreamInfo{
			ID:          stream.ID,
			Title:       stream.Title,
			ViewerCount: stream.ViewerCount,
			UpdatedAt:   stream.UpdatedAt,
			Recording:   stream.EgressID != nil && *stream.EgressID != "",
		}
		if stream.TokenAddress != nil {
			info.TokenAddress = *stream.TokenAddress
		}
		if h.hub != nil {
			info.ChatSubscribers = h.hub.SubscriberCount(stream.ID)
		}
		response.Streams = append(response.Streams, info)
		response.Viewers += stream.ViewerCount
	}

	response.Count = len(response.Streams)
	writeJSON(w, http.StatusOK, response)
}
