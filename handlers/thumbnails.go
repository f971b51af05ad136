package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	thumbsvc "tokencast/services/thumbnails"

	"github.com/gorilla/mux"
)

type thumbnailService interface {
	Resolve(ctx context.Context, streamID string) (string, error)
	CacheURL(streamID, url string)
	Upload(ctx context.Context, streamID, callerUserID string, data []byte) (string, error)
}

var _ thumbnailService = (*thumbsvc.Service)(nil)

// ThumbnailHandler exposes thumbnail resolution, upload and cache refresh.
type ThumbnailHandler struct {
	service   thumbnailService
	identity  identity
	maxUpload int64
}

// NewThumbnailHandler creates the thumbnail handler.
func NewThumbnailHandler(service thumbnailService, id identity, maxUpload int64) *ThumbnailHandler {
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	return &ThumbnailHandler{service: service, identity: id, maxUpload: maxUpload}
}

// Resolve returns a displayable thumbnail URL for the stream.
func (h *ThumbnailHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Upload stores the raw image body as the stream's thumbnail.
func (h *ThumbnailHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxUpload))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	url, err := h.service.Upload(r.Context(), mux.Vars(r)["id"], user.ID, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

// Cache records a client-captured thumbnail URL for a live stream. Capture
// happens in the viewer's browser; the server stores whatever URL it is
// given, in cache only.
func (h *ThumbnailHandler) Cache(w http.ResponseWriter, r *http.Request) {
	var request struct {
		URL string `json:"url"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.service.CacheURL(mux.Vars(r)["id"], request.URL)
	w.WriteHeader(http.StatusNoContent)
}
