package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/models"
)

// SessionService defines the session operations required by the
// SessionHandler.
type SessionService interface {
	// WhoAmI returns the logged-in operator, or the outcome explaining
	// why there is none.
	WhoAmI(context.Context) (*models.ProfileSnapshot, api.Outcome)
	// Login stores a credential obtained by the external login flow.
	Login(context.Context, models.Credential) error
	// Logout revokes and clears the session. It never fails.
	Logout(context.Context) api.LogoutCompleted
}

// SessionHandler handles HTTP requests for the console session.
type SessionHandler struct {
	SessionService SessionService
}

// Login handles POST /api/session. It expects the credential issued by
// the login flow, with a non-empty "accessToken" field.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cred models.Credential
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil || cred.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if cred.Role != "" && !cred.Role.Valid() {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	if err := h.SessionService.Login(r.Context(), cred); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}
	writeResult(w, http.StatusOK, api.Result{Success: true, Message: "Logged in"})
}

// Me handles GET /api/session/me. A 401 response carries needsLogin and
// tells the view to navigate to the login entry point.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	_, out := h.SessionService.WhoAmI(r.Context())
	writeOutcome(w, out)
}

// Logout handles POST /api/session/logout. It always responds 200.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, h.SessionService.Logout(r.Context()))
}
