// Package middleware provides HTTP middlewares for request correlation and logging.
package middleware

import (
	"net/http"

	"github.com/atinyakov/opsconsole/internal/requestid"
)

// RequestID is a middleware that assigns every request a correlation ID.
//
// An incoming X-Request-ID header is kept; otherwise a new UUID is
// generated. The ID is stored in the request context, so upstream API
// calls made while serving the request carry the same ID, and echoed in
// the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(requestid.Header); id != "" {
			ctx = requestid.With(ctx, id)
		}
		ctx, id := requestid.Ensure(ctx)
		w.Header().Set(requestid.Header, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
