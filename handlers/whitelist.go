package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"tokencast/models"
	wlsvc "tokencast/services/whitelist"

	"github.com/gorilla/mux"
)

type whitelistService interface {
	Apply(ctx context.Context, input wlsvc.ApplyInput) (*models.WhitelistApplication, error)
	SetStatus(ctx context.Context, id string, status models.WhitelistStatus) (*models.WhitelistApplication, error)
	StatusFor(ctx context.Context, wallet string) (*models.WhitelistStatus, error)
	StatusForUser(ctx context.Context, userID string) (*models.WhitelistStatus, error)
	ListDetailed(ctx context.Context, status *models.WhitelistStatus) ([]wlsvc.ApplicationDetail, error)
}

var _ whitelistService = (*wlsvc.Service)(nil)

// WhitelistHandler exposes the wallet-gated onboarding workflow.
type WhitelistHandler struct {
	service  whitelistService
	identity identity
}

// NewWhitelistHandler creates the whitelist handler.
func NewWhitelistHandler(service whitelistService, id identity) *WhitelistHandler {
	return &WhitelistHandler{service: service, identity: id}
}

// Apply creates a pending application for a wallet. A logged-in caller gets
// the application linked to their account.
func (h *WhitelistHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var request struct {
		WalletAddress string `json:"walletAddress"`
		Pitch         string `json:"pitch"`
		TwitterURL    string `json:"twitterUrl"`
		TelegramURL   string `json:"telegramUrl"`
		WebsiteURL    string `json:"websiteUrl"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	input := wlsvc.ApplyInput{
		WalletAddress: request.WalletAddress,
		Pitch:         request.Pitch,
		TwitterURL:    request.TwitterURL,
		TelegramURL:   request.TelegramURL,
		WebsiteURL:    request.WebsiteURL,
	}
	if user, err := h.identity.CurrentUser(r); err == nil {
		input.UserID = &user.ID
	}

	application, err := h.service.Apply(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, application)
}

type statusResponse struct {
	// Status is null when no application exists, distinct from "pending".
	Status *models.WhitelistStatus `json:"status"`
}

// Status looks up the application status for a wallet (?wallet=) or, absent
// that, the authenticated caller.
func (h *WhitelistHandler) Status(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.URL.Query().Get("wallet"))

	var status *models.WhitelistStatus
	var err error
	if wallet != "" {
		status, err = h.service.StatusFor(r.Context(), wallet)
	} else {
		user, userErr := h.identity.CurrentUser(r)
		if userErr != nil {
			writeError(w, userErr)
			return
		}
		status, err = h.service.StatusForUser(r.Context(), user.ID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

// List returns applications for review, optionally filtered (?status=), with
// each wallet's on-chain balance attached. Admin-only via router middleware.
func (h *WhitelistHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *models.WhitelistStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		s := models.WhitelistStatus(raw)
		status = &s
	}

	applications, err := h.service.ListDetailed(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	if applications == nil {
		applications = []wlsvc.ApplicationDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": applications})
}

// SetStatus overwrites an application's status. Admin-only via router
// middleware; any status may replace any other.
func (h *WhitelistHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Status models.WhitelistStatus `json:"status"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	application, err := h.service.SetStatus(r.Context(), mux.Vars(r)["id"], request.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, application)
}
