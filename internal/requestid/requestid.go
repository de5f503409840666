// Package requestid carries a correlation ID through a context so that
// gateway requests and the upstream API calls they trigger share one ID.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying the request ID.
const Header = "X-Request-ID"

type ctxKey string

const idKey ctxKey = "request_id"

// With returns a copy of ctx carrying id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// From returns the request ID stored in ctx, or "" if none.
func From(ctx context.Context) string {
	if s, ok := ctx.Value(idKey).(string); ok {
		return s
	}
	return ""
}

// Ensure returns the ID stored in ctx, generating a new one if absent.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := From(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return With(ctx, id), id
}
