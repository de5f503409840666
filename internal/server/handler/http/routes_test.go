package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/client/listquery"
	"github.com/atinyakov/opsconsole/internal/requestid"
)

func TestNewRouter(t *testing.T) {
	session := &SessionHandler{SessionService: &fakeSessionService{
		whoAmIOut: api.NeedsLogin{Message: "not logged in"},
		logoutOut: api.LogoutCompleted{Message: "bye"},
	}}
	payments := &PaymentsHandler{PaymentsService: &fakePaymentsService{page: &listquery.Page{}, out: api.Success{}}}
	router := NewRouter(session, payments, zap.NewNop())

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		want        int
	}{
		{"login", http.MethodPost, "/api/session", `{"accessToken":"t"}`, "application/json", http.StatusOK},
		{"login wrong content type", http.MethodPost, "/api/session", `{"accessToken":"t"}`, "text/plain", http.StatusUnsupportedMediaType},
		{"me", http.MethodGet, "/api/session/me", "", "", http.StatusUnauthorized},
		{"logout", http.MethodPost, "/api/session/logout", "", "", http.StatusOK},
		{"payments", http.MethodGet, "/api/payments", "", "", http.StatusOK},
		{"unknown", http.MethodGet, "/api/unknown", "", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/api/session/logout", "", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(requestid.Header))
		})
	}
}
