package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the raw result of a remote call.
type Response struct {
	// Received is false when the transport failed before any response.
	Received bool
	// Err is the transport error when Received is false.
	Err        error
	StatusCode int
	Body       []byte
}

// envelope is the body shape of every API response.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// errorData is the data member of a failure envelope.
type errorData struct {
	ErrorType     string   `json:"errorType"`
	RequiredRoles []string `json:"requiredRoles"`
	UserRole      string   `json:"userRole"`
}

// purgeErrorTypes are the 401 error types that invalidate the stored
// credential.
var purgeErrorTypes = map[string]bool{
	ErrorTypeTokenInvalid:          true,
	ErrorTypeTokenExpired:          true,
	ErrorTypeTokenExpiredOrRevoked: true,
	ErrorTypeUnauthorized:          true,
}

// Option adjusts classification for a specific endpoint.
type Option func(*classifyPolicy)

type classifyPolicy struct {
	notFoundMeansLoggedOut bool
}

// NotFoundMeansLoggedOut treats 404 as NeedsLogin. Used for identity
// lookups, where an absent identity is the same as not being logged in.
func NotFoundMeansLoggedOut() Option {
	return func(p *classifyPolicy) { p.notFoundMeansLoggedOut = true }
}

// Classify maps a raw response onto exactly one Outcome. It is pure and
// total: every input produces an Outcome.
func Classify(resp Response, opts ...Option) Outcome {
	var policy classifyPolicy
	for _, opt := range opts {
		opt(&policy)
	}

	if !resp.Received {
		msg := "network error: unable to reach the server"
		if resp.Err != nil {
			msg = fmt.Sprintf("network error: %v", resp.Err)
		}
		return NetworkError{Message: msg}
	}

	var env envelope
	bodyErr := decodeEnvelope(resp.Body, &env)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if bodyErr != nil {
			return UnexpectedError{
				Message:    fmt.Sprintf("invalid response body: %v", bodyErr),
				StatusCode: resp.StatusCode,
			}
		}
		return Success{Message: env.Message, Data: env.Data}
	}

	var data errorData
	if len(env.Data) > 0 {
		// a non-object data member carries no error details
		_ = json.Unmarshal(env.Data, &data)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return NeedsLogin{
			Message:   orDefault(env.Message, "authentication required"),
			ErrorType: data.ErrorType,
			Purge:     purgeErrorTypes[data.ErrorType],
		}
	case resp.StatusCode == http.StatusForbidden:
		return Forbidden{
			Message:       orDefault(env.Message, "insufficient privileges"),
			ErrorType:     orDefault(data.ErrorType, ErrorTypeInsufficientPrivilege),
			RequiredRoles: data.RequiredRoles,
			UserRole:      data.UserRole,
		}
	case resp.StatusCode == http.StatusNotFound && policy.notFoundMeansLoggedOut:
		return NeedsLogin{
			Message:   orDefault(env.Message, "identity not found"),
			ErrorType: data.ErrorType,
		}
	case resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode < 600:
		return ServerError{
			Message:   orDefault(env.Message, "internal server error"),
			ErrorType: orDefault(data.ErrorType, ErrorTypeServerError),
		}
	}

	return UnexpectedError{
		Message:    orDefault(env.Message, fmt.Sprintf("unexpected response status %d", resp.StatusCode)),
		StatusCode: resp.StatusCode,
	}
}

func decodeEnvelope(body []byte, env *envelope) error {
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, env)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
