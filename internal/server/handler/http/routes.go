// Package http provides HTTP routing and middleware configuration
// for the console gateway.
package http

import (
	"net/http"

	"github.com/atinyakov/opsconsole/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// console gateway to view code.
//
// Routes:
//
//	POST /api/session         → sessionHandler.Login
//	GET  /api/session/me      → sessionHandler.Me
//	POST /api/session/logout  → sessionHandler.Logout
//	GET  /api/payments        → paymentsHandler.List
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. WithRequestLogging(logger)
//  3. Recoverer
//  4. AllowContentType("application/json")
func NewRouter(
	sessionHandler *SessionHandler,
	paymentsHandler *PaymentsHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.AllowContentType("application/json"))

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Post("/", sessionHandler.Login)
			r.Get("/me", sessionHandler.Me)
			r.Post("/logout", sessionHandler.Logout)
		})
		r.Get("/payments", paymentsHandler.List)
	})

	return r
}
