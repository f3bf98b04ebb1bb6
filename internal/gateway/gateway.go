package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/roach88/sfconnect/internal/auth"
)

// maxRefreshes caps the 401 refresh-and-replay cycle.
const maxRefreshes = 1

// SuccessHandler receives the body of a 2xx response.
type SuccessHandler func(body []byte) error

// ErrorHandler receives a failed call. Its return value becomes the call's
// result, so returning nil swallows the failure.
type ErrorHandler func(err *RequestError) error

// Gateway sends authenticated requests relative to the session's instance
// URL. It is safe for concurrent use.
type Gateway struct {
	session *auth.Session
	client  *http.Client
	ids     IDGenerator
	logger  *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithIDGenerator sets the request id generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(g *Gateway) {
		g.ids = ids
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// New creates a gateway over session.
func New(session *auth.Session, opts ...Option) *Gateway {
	g := &Gateway{
		session: session,
		client:  http.DefaultClient,
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Session returns the credential cell the gateway uses.
func (g *Gateway) Session() *auth.Session {
	return g.session
}

// Get issues a GET.
func (g *Gateway) Get(ctx context.Context, path string, onSuccess SuccessHandler, onError ErrorHandler) error {
	return g.Do(ctx, http.MethodGet, path, nil, onSuccess, onError)
}

// Post issues a POST with a JSON body.
func (g *Gateway) Post(ctx context.Context, path string, body any, onSuccess SuccessHandler, onError ErrorHandler) error {
	return g.Do(ctx, http.MethodPost, path, body, onSuccess, onError)
}

// Delete issues a DELETE.
func (g *Gateway) Delete(ctx context.Context, path string, onSuccess SuccessHandler, onError ErrorHandler) error {
	return g.Do(ctx, http.MethodDelete, path, nil, onSuccess, onError)
}

// Do sends one logical call. body, when non-nil, is JSON encoded once and
// the same bytes are replayed after a refresh. Handlers may be nil.
//
// Errors from the session (a failed refresh) are returned as-is and never
// passed to onError.
func (g *Gateway) Do(ctx context.Context, method, path string, body any, onSuccess SuccessHandler, onError ErrorHandler) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
	}

	tok, gen, err := g.session.Current(ctx)
	if err != nil {
		return err
	}

	requestID := g.ids.Generate()
	for attempt := 0; ; attempt++ {
		status, respBody, err := g.send(ctx, method, path, payload, tok, requestID)
		g.logger.Debug("request",
			"method", method,
			"path", path,
			"request_id", requestID,
			"attempt", attempt,
			"status", status)

		if err != nil {
			return g.fail(onError, &RequestError{
				Code:   ErrCodeRequestFailed,
				Method: method,
				Path:   path,
				Err:    err,
			})
		}

		if status >= 200 && status < 300 {
			if onSuccess == nil {
				return nil
			}
			return onSuccess(respBody)
		}

		if status == http.StatusUnauthorized && attempt < maxRefreshes {
			tok, gen, err = g.session.Refresh(ctx, gen)
			if err != nil {
				return err
			}
			continue
		}

		code := ErrCodeRequestFailed
		if status == http.StatusUnauthorized {
			code = ErrCodeUnauthorized
		}
		return g.fail(onError, &RequestError{
			Code:      code,
			Method:    method,
			Path:      path,
			Status:    status,
			APIErrors: parseAPIErrors(respBody),
			Body:      respBody,
		})
	}
}

func (g *Gateway) fail(onError ErrorHandler, reqErr *RequestError) error {
	g.logger.Debug("request failed", "error", reqErr)
	if onError == nil {
		return reqErr
	}
	return onError(reqErr)
}

// send performs one HTTP exchange and returns the status and full body.
// The response body is closed before returning.
func (g *Gateway) send(ctx context.Context, method, path string, payload []byte, tok auth.Token, requestID string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, resolve(tok.InstanceURL, path), reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// resolve joins an instance URL and a path relative to it. Absolute URLs
// pass through unchanged.
func resolve(instanceURL, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(instanceURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
