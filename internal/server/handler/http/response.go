package http

import (
	"encoding/json"
	"net/http"

	"github.com/atinyakov/opsconsole/internal/client/api"
)

// StatusFor maps an outcome onto the gateway's HTTP status.
func StatusFor(out api.Outcome) int {
	switch out.(type) {
	case api.Success, api.LogoutCompleted:
		return http.StatusOK
	case api.NeedsLogin:
		return http.StatusUnauthorized
	case api.Forbidden:
		return http.StatusForbidden
	case api.NetworkError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeOutcome(w http.ResponseWriter, out api.Outcome) {
	writeResult(w, StatusFor(out), out.Result())
}

func writeResult(w http.ResponseWriter, status int, res api.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeResult(w, status, api.Result{Message: message})
}
