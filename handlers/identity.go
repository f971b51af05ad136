package handlers

import (
	"net/http"

	"tokencast/models"
)

// identity resolves the authenticated platform account for a request. Wired
// to the auth service in cmd; handlers pass resolved IDs explicitly into
// services instead of relying on ambient session state.
type identity interface {
	CurrentUser(r *http.Request) (*models.User, error)
}
