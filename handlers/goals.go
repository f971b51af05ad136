package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"tokencast/models"
	goalsvc "tokencast/services/goals"

	"github.com/gorilla/mux"
)

type goalService interface {
	Replace(ctx context.Context, streamID, callerUserID string, inputs []goalsvc.GoalInput) ([]models.Goal, error)
	List(ctx context.Context, streamID string) ([]models.Goal, error)
	Refresh(ctx context.Context, streamID string) (int, error)
}

var _ goalService = (*goalsvc.Service)(nil)

// GoalHandler exposes market-cap goal management.
type GoalHandler struct {
	service  goalService
	identity identity
}

// NewGoalHandler creates the goal handler.
func NewGoalHandler(service goalService, id identity) *GoalHandler {
	return &GoalHandler{service: service, identity: id}
}

// List returns a stream's goals ordered by index.
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.service.List(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if goals == nil {
		goals = []models.Goal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

// Replace swaps the full goal set for the caller's stream.
func (h *GoalHandler) Replace(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity.CurrentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var request struct {
		Goals []goalsvc.GoalInput `json:"goals"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	goals, err := h.service.Replace(r.Context(), mux.Vars(r)["id"], user.ID, request.Goals)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

// Refresh observes the token market cap now and marks crossed goals reached.
func (h *GoalHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	marked, err := h.service.Refresh(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reached": marked})
}
