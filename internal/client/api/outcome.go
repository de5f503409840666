// Package api talks to the remote admin API: it issues authenticated
// requests and classifies every response into a closed set of outcomes
// that calling code can switch on.
package api

import (
	"encoding/json"
	"fmt"
)

// Error types reported by the remote API, or defaulted by Classify.
const (
	ErrorTypeTokenInvalid          = "TOKEN_INVALID"
	ErrorTypeTokenExpired          = "TOKEN_EXPIRED"
	ErrorTypeTokenExpiredOrRevoked = "TOKEN_EXPIRED_OR_REVOKED"
	ErrorTypeUnauthorized          = "UNAUTHORIZED"
	ErrorTypeInsufficientPrivilege = "INSUFFICIENT_PRIVILEGES"
	ErrorTypeServerError           = "SERVER_ERROR"

	// ErrorTypeTokenMissing marks a NeedsLogin produced locally because no
	// access token is stored.
	ErrorTypeTokenMissing = "TOKEN_MISSING"
)

// Outcome is the classified result of one remote call. The concrete type
// is one of Success, NeedsLogin, Forbidden, ServerError, NetworkError,
// UnexpectedError or LogoutCompleted.
type Outcome interface {
	// Result flattens the outcome into the shape views consume.
	Result() Result
	outcome()
}

// Success carries the data member of a 2xx envelope.
type Success struct {
	Message string
	Data    json.RawMessage
}

// NeedsLogin means the credential is missing, invalid or expired. Purge
// is set when the server reported the credential itself as unusable, in
// which case the persisted session must be dropped.
type NeedsLogin struct {
	Message   string
	ErrorType string
	Purge     bool
}

// Forbidden means the credential is valid but lacks privilege.
type Forbidden struct {
	Message       string
	ErrorType     string
	RequiredRoles []string
	UserRole      string
}

// ServerError is a 5xx-class failure.
type ServerError struct {
	Message   string
	ErrorType string
}

// NetworkError means no response was received.
type NetworkError struct {
	Message string
}

// UnexpectedError covers any status or body not otherwise classified.
type UnexpectedError struct {
	Message    string
	StatusCode int
}

// LogoutCompleted is the only outcome of logout. Warning is set when the
// server did not confirm the revocation.
type LogoutCompleted struct {
	Message string
	Warning bool
}

func (Success) outcome()         {}
func (NeedsLogin) outcome()      {}
func (Forbidden) outcome()       {}
func (ServerError) outcome()     {}
func (NetworkError) outcome()    {}
func (UnexpectedError) outcome() {}
func (LogoutCompleted) outcome() {}

// Result is the flattened boundary contract every data-fetching
// operation resolves to.
type Result struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	Data          json.RawMessage `json:"data,omitempty"`
	NeedsLogin    bool            `json:"needsLogin,omitempty"`
	ErrorType     string          `json:"errorType,omitempty"`
	RequiredRoles []string        `json:"requiredRoles,omitempty"`
	UserRole      string          `json:"userRole,omitempty"`
	Warning       bool            `json:"warning,omitempty"`
}

func (o Success) Result() Result {
	return Result{Success: true, Message: o.Message, Data: o.Data}
}

func (o NeedsLogin) Result() Result {
	return Result{Message: o.Message, NeedsLogin: true, ErrorType: o.ErrorType}
}

func (o Forbidden) Result() Result {
	return Result{
		Message:       o.Message,
		ErrorType:     o.ErrorType,
		RequiredRoles: o.RequiredRoles,
		UserRole:      o.UserRole,
	}
}

func (o ServerError) Result() Result {
	return Result{Message: o.Message, ErrorType: o.ErrorType}
}

func (o NetworkError) Result() Result {
	return Result{Message: o.Message}
}

func (o UnexpectedError) Result() Result {
	return Result{Message: o.Message}
}

func (o LogoutCompleted) Result() Result {
	return Result{Success: true, Message: o.Message, Warning: o.Warning}
}

// NewSuccess returns a Success whose Data is v encoded as JSON.
func NewSuccess(message string, v any) (Success, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Success{}, fmt.Errorf("encode success data: %w", err)
	}
	return Success{Message: message, Data: b}, nil
}

// Retryable reports whether the outcome is transient, so views offer a
// retry affordance.
func Retryable(o Outcome) bool {
	switch o.(type) {
	case ServerError, NetworkError:
		return true
	}
	return false
}
