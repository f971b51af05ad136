package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tokencast/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy to HTTP status codes. Validation
// and authorization errors surface to the caller; upstream and unexpected
// failures are logged and reported generically.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrUpstream):
		slog.Error("[handlers] upstream failure", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream service failure"})
	default:
		slog.Error("[handlers] internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
