package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/opsconsole/internal/logger"
	"github.com/atinyakov/opsconsole/internal/requestid"
)

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 4 << 20

// Credentials supplies the bearer token for outgoing requests.
type Credentials interface {
	// AccessToken returns the current token, or "" when logged out.
	AccessToken(ctx context.Context) (string, error)
}

// Purger drops the persisted session when the server rejects the
// credential.
type Purger interface {
	Purge(ctx context.Context) error
}

// Request describes one call to the remote API.
type Request struct {
	Method string
	// Path is relative to the executor's base URL, e.g. "/auth/me".
	Path  string
	Query url.Values
	// Body, when non-nil, is sent as JSON.
	Body any
	// NotFoundMeansLoggedOut marks identity-lookup endpoints.
	NotFoundMeansLoggedOut bool
}

// Executor issues authorized requests and classifies their responses.
// It holds no session state of its own.
type Executor struct {
	baseURL string
	client  *http.Client
	creds   Credentials
	purger  Purger
	log     *zap.Logger
}

// NewExecutor returns an Executor for the API at baseURL.
func NewExecutor(baseURL string, client *http.Client, creds Credentials, purger Purger, log *zap.Logger) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		creds:   creds,
		purger:  purger,
		log:     logger.OrNop(log),
	}
}

// Execute performs req and returns its Outcome. Without a stored access
// token it returns NeedsLogin without touching the network. Transport
// failures become NetworkError; Execute never returns an error.
func (e *Executor) Execute(ctx context.Context, req Request) Outcome {
	token, err := e.creds.AccessToken(ctx)
	if err != nil {
		e.log.Error("read access token", zap.Error(err))
		return UnexpectedError{Message: "credential storage unavailable"}
	}
	if token == "" {
		return NeedsLogin{Message: "not logged in", ErrorType: ErrorTypeTokenMissing}
	}

	ctx, reqID := requestid.Ensure(ctx)
	httpReq, err := e.newRequest(ctx, req, token, reqID)
	if err != nil {
		e.log.Error("build request", zap.String("path", req.Path), zap.Error(err))
		return UnexpectedError{Message: "invalid request: " + err.Error()}
	}

	start := time.Now()
	resp := e.do(httpReq)

	var opts []Option
	if req.NotFoundMeansLoggedOut {
		opts = append(opts, NotFoundMeansLoggedOut())
	}
	out := Classify(resp, opts...)

	e.log.Debug("api call",
		zap.String("method", httpReq.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if nl, ok := out.(NeedsLogin); ok && nl.Purge && e.purger != nil {
		e.log.Warn("credential rejected, purging session",
			zap.String("error_type", nl.ErrorType),
			zap.String("request_id", reqID),
		)
		if err := e.purger.Purge(ctx); err != nil {
			e.log.Error("purge session", zap.Error(err))
		}
	}
	return out
}

func (e *Executor) newRequest(ctx context.Context, req Request, token, reqID string) (*http.Request, error) {
	u := e.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(requestid.Header, reqID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// do sends the request. It never returns an error: a failure before the
// full body is read is reported as not received.
func (e *Executor) do(req *http.Request) Response {
	resp, err := e.client.Do(req)
	if err != nil {
		return Response{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Response{Err: err}
	}
	return Response{Received: true, StatusCode: resp.StatusCode, Body: body}
}
