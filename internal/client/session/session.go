// Package session answers "who is logged in" and "is the session still
// valid", and performs logout. It is the only component besides the
// executor's purge path that mutates the persisted session.
package session

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/logger"
	"github.com/atinyakov/opsconsole/internal/models"
)

// LogoutPath is the remote revocation endpoint.
const LogoutPath = "/auth/logout"

const (
	msgLoggedOut          = "Logged out successfully"
	msgLoggedOutUnconfirm = "Logged out locally; the server could not confirm the session was revoked"
)

// Doer executes an API request.
type Doer interface {
	Execute(ctx context.Context, req api.Request) api.Outcome
}

// ProfileSource is the profile cache.
type ProfileSource interface {
	Get(ctx context.Context) (*models.ProfileSnapshot, api.Outcome)
	Clear(ctx context.Context) error
}

// CredentialStore is the credential store.
type CredentialStore interface {
	Set(ctx context.Context, cred models.Credential) error
	Purge(ctx context.Context) error
}

// Controller orchestrates the credential store, the executor and the
// profile cache.
type Controller struct {
	creds    CredentialStore
	doer     Doer
	profiles ProfileSource
	log      *zap.Logger
}

// NewController returns a Controller.
func NewController(creds CredentialStore, doer Doer, profiles ProfileSource, log *zap.Logger) *Controller {
	return &Controller{creds: creds, doer: doer, profiles: profiles, log: logger.OrNop(log)}
}

// WhoAmI returns the logged-in operator. On api.NeedsLogin the caller
// must send the operator to the login entry point and render nothing
// else in the meantime.
func (c *Controller) WhoAmI(ctx context.Context) (*models.ProfileSnapshot, api.Outcome) {
	return c.profiles.Get(ctx)
}

// Login stores a credential handed over by the external login flow. Any
// snapshot cached for a previous credential is dropped.
func (c *Controller) Login(ctx context.Context, cred models.Credential) error {
	if cred.Role != "" && !cred.Role.Valid() {
		return fmt.Errorf("session: unknown role %q", cred.Role)
	}
	if err := c.profiles.Clear(ctx); err != nil {
		return fmt.Errorf("session: drop previous profile: %w", err)
	}
	if err := c.creds.Set(ctx, cred); err != nil {
		return fmt.Errorf("session: store credential: %w", err)
	}
	return nil
}

// Logout revokes the session on the server when it can, and always
// clears the local session. It never fails: the returned outcome is
// always LogoutCompleted, with Warning set when revocation could not be
// confirmed.
func (c *Controller) Logout(ctx context.Context) api.LogoutCompleted {
	out := c.doer.Execute(ctx, api.Request{Method: http.MethodPost, Path: LogoutPath})
	result := LogoutPolicy(out)

	if result.Warning {
		c.log.Warn("logout not confirmed by server", zap.String("outcome", fmt.Sprintf("%T", out)))
	}
	if err := c.creds.Purge(ctx); err != nil {
		c.log.Error("purge session on logout", zap.Error(err))
		result = api.LogoutCompleted{Message: msgLoggedOutUnconfirm, Warning: true}
	}
	return result
}

// LogoutPolicy maps the outcome of the remote logout call onto the
// user-visible result. Every outcome is a completed logout; only
// Success, and a server that already rejects the credential, count as
// confirmed.
func LogoutPolicy(out api.Outcome) api.LogoutCompleted {
	switch o := out.(type) {
	case api.Success:
		return api.LogoutCompleted{Message: msgLoggedOut}
	case api.NeedsLogin:
		if o.ErrorType == api.ErrorTypeTokenMissing {
			return api.LogoutCompleted{Message: msgLoggedOutUnconfirm, Warning: true}
		}
		return api.LogoutCompleted{Message: msgLoggedOut}
	case api.LogoutCompleted:
		return o
	default:
		return api.LogoutCompleted{Message: msgLoggedOutUnconfirm, Warning: true}
	}
}
