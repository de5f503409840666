package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/models"
)

// fakeSessionService implements SessionService for testing.
type fakeSessionService struct {
	whoAmIOut  api.Outcome
	snapshot   *models.ProfileSnapshot
	loginErr   error
	logoutOut  api.LogoutCompleted
	loggedIn   []models.Credential
	logoutCall int
}

func (f *fakeSessionService) WhoAmI(context.Context) (*models.ProfileSnapshot, api.Outcome) {
	return f.snapshot, f.whoAmIOut
}

func (f *fakeSessionService) Login(_ context.Context, cred models.Credential) error {
	f.loggedIn = append(f.loggedIn, cred)
	return f.loginErr
}

func (f *fakeSessionService) Logout(context.Context) api.LogoutCompleted {
	f.logoutCall++
	return f.logoutOut
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) api.Result {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var res api.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestSessionHandler_Login(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		service      *fakeSessionService
		expectedCode int
		expectedMsg  string
		stored       int
	}{
		{"invalid JSON", `not a json`, &fakeSessionService{}, http.StatusBadRequest, "invalid request", 0},
		{"empty token", `{"accessToken":""}`, &fakeSessionService{}, http.StatusBadRequest, "invalid request", 0},
		{"unknown role", `{"accessToken":"t","role":"root"}`, &fakeSessionService{}, http.StatusBadRequest, "unknown role", 0},
		{"storage failure", `{"accessToken":"t"}`, &fakeSessionService{loginErr: errors.New("disk full")}, http.StatusInternalServerError, "failed to store credential", 1},
		{"ok", `{"accessToken":"t","refreshToken":"r","role":"superadmin"}`, &fakeSessionService{}, http.StatusOK, "Logged in", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/session", bytes.NewBufferString(tt.body))
			h := &SessionHandler{SessionService: tt.service}
			h.Login(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			res := decodeResult(t, rec)
			assert.Equal(t, tt.expectedMsg, res.Message)
			assert.Equal(t, tt.expectedCode == http.StatusOK, res.Success)
			assert.Len(t, tt.service.loggedIn, tt.stored)
		})
	}
}

func TestSessionHandler_LoginStoresCredential(t *testing.T) {
	svc := &fakeSessionService{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/session",
		bytes.NewBufferString(`{"accessToken":"t","refreshToken":"r","role":"admin"}`))
	(&SessionHandler{SessionService: svc}).Login(rec, req)

	require.Len(t, svc.loggedIn, 1)
	assert.Equal(t, models.Credential{AccessToken: "t", RefreshToken: "r", Role: models.RoleAdmin}, svc.loggedIn[0])
}

func TestSessionHandler_Me(t *testing.T) {
	profile, err := api.NewSuccess("profile loaded", map[string]string{"id": "1", "email": "ops@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name         string
		out          api.Outcome
		expectedCode int
		check        func(t *testing.T, res api.Result)
	}{
		{"success", profile, http.StatusOK, func(t *testing.T, res api.Result) {
			assert.True(t, res.Success)
			assert.JSONEq(t, `{"id":"1","email":"ops@example.com"}`, string(res.Data))
		}},
		{"needs login", api.NeedsLogin{Message: "expired", ErrorType: api.ErrorTypeTokenExpired}, http.StatusUnauthorized, func(t *testing.T, res api.Result) {
			assert.True(t, res.NeedsLogin)
			assert.Equal(t, api.ErrorTypeTokenExpired, res.ErrorType)
		}},
		{"forbidden", api.Forbidden{Message: "no", ErrorType: "INSUFFICIENT_PRIVILEGES", RequiredRoles: []string{"superadmin"}, UserRole: "admin"}, http.StatusForbidden, func(t *testing.T, res api.Result) {
			assert.False(t, res.NeedsLogin)
			assert.Equal(t, []string{"superadmin"}, res.RequiredRoles)
			assert.Equal(t, "admin", res.UserRole)
		}},
		{"server error", api.ServerError{Message: "boom"}, http.StatusBadGateway, func(t *testing.T, res api.Result) {
			assert.Equal(t, "boom", res.Message)
		}},
		{"unexpected", api.UnexpectedError{Message: "teapot", StatusCode: 418}, http.StatusBadGateway, nil},
		{"network", api.NetworkError{Message: "down"}, http.StatusServiceUnavailable, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h := &SessionHandler{SessionService: &fakeSessionService{whoAmIOut: tt.out}}
			h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/session/me", nil))

			assert.Equal(t, tt.expectedCode, rec.Code)
			res := decodeResult(t, rec)
			assert.Equal(t, tt.out.Result().Success, res.Success)
			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}
}

func TestSessionHandler_Logout(t *testing.T) {
	for _, warning := range []bool{false, true} {
		svc := &fakeSessionService{logoutOut: api.LogoutCompleted{Message: "bye", Warning: warning}}
		rec := httptest.NewRecorder()
		(&SessionHandler{SessionService: svc}).Logout(rec, httptest.NewRequest(http.MethodPost, "/api/session/logout", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		res := decodeResult(t, rec)
		assert.True(t, res.Success)
		assert.Equal(t, warning, res.Warning)
		assert.Equal(t, 1, svc.logoutCall)
	}
}
