package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"tokencast/models"
	streamsvc "tokencast/services/streams"
	viewersvc "tokencast/services/viewers"

	"github.com/gorilla/mux"
)

type streamService interface {
	EnsureForUser(ctx context.Context, userID, displayName string) (*models.Stream, error)
	Get(ctx context.Context, id string) (*models.Stream, error)
	GoLive(ctx context.Context, streamID, callerUserID string) error
	GoOffline(ctx context.Context, streamID, callerUserID string) error
	UpdateTitle(ctx context.Context, streamID, callerUserID, title string) error
	AttachToken(ctx context.Context, streamID, callerUserID, tokenAddress string) error
	DetachToken(ctx context.Context, streamID, callerUserID string) error
	StartRecording(ctx context.Context, streamID, callerUserID string) (*models.EgressJob, error)
	StopRecording(ctx context.Context, streamID, callerUserID string) error
}

var _ streamService = (*streamsvc.Service)(nil)

type viewerService interface {
	RecordHeartbeat(ctx context.Context, streamID string, observedCount int) error
	SyncFromRoomService(ctx context.Context) (int, error)
}

var _ viewerService = (*viewersvc.Service)(nil)

// StreamHandler exposes stream lifecycle and viewer accounting endpoints.
type StreamHandler struct {
	streams  streamService
	viewers  viewerService
	identity identity
}

// NewStreamHandler creates the stream handler.
func NewStreamHandler(streams streamService, viewers viewerService, id identity) *StreamHandler {
	return &StreamHandler{streams: streams, viewers: viewers, identity: id}
}

// Get returns a stream by ID.
func (h *StreamHandler) Get(w http.ResponseWriter, r *http.Request) {
	stream, err := h.streams.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

// Ensure returns the caller's stream, creating it on first use.
func (h *StreamHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	stream, err := h.streams.EnsureForUser(r.Context(), user.ID, user.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

// SetLive flips the caller's stream live or offline.
func (h *StreamHandler) SetLive(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var request struct {
		Live bool `json:"live"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	streamID := mux.Vars(r)["id"]
	if request.Live {
		err = h.streams.GoLive(r.Context(), streamID, user.ID)
	} else {
		err = h.streams.GoOffline(r.Context(), streamID, user.ID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTitle sets the stream title.
func (h *StreamHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var request struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.streams.UpdateTitle(r.Context(), mux.Vars(r)["id"], user.ID, request.Title); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Heartbeat records one viewing client's observed participant count. Open to
// any connected viewer; the count is advisory and periodically corrected by
// the room-service sync.
func (h *StreamHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Count int `json:"count"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.viewers.RecordHeartbeat(r.Context(), mux.Vars(r)["id"], request.Count); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync runs a reconciliation pass against the room service. Admin-only; the
// background scheduler calls the same service path.
func (h *StreamHandler) Sync(w http.ResponseWriter, r *http.Request) {
	updated, err := h.viewers.SyncFromRoomService(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// AttachToken binds a goal-tracking token address to the stream.
func (h *StreamHandler) AttachToken(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var request struct {
		TokenAddress string `json:"tokenAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.streams.AttachToken(r.Context(), mux.Vars(r)["id"], user.ID, request.TokenAddress); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DetachToken clears the stream's token address.
func (h *StreamHandler) DetachToken(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.streams.DetachToken(r.Context(), mux.Vars(r)["id"], user.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartRecording starts a room-service egress job for the stream.
func (h *StreamHandler) StartRecording(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := h.streams.StartRecording(r.Context(), mux.Vars(r)["id"], user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// StopRecording stops the stream's active egress job.
func (h *StreamHandler) StopRecording(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.streams.StopRecording(r.Context(), mux.Vars(r)["id"], user.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
