package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// TokenSource yields the bearer credential to attach to a request.
// An empty token means the request is sent without Authorization.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// AuthRejectedHandler is told about a 401 on a non-authentication endpoint.
// token is the credential the rejected request carried.
type AuthRejectedHandler func(ctx context.Context, token string)

type tokenOverrideKey struct{}

// ContextWithToken makes requests issued with ctx carry token instead of the
// persisted one. Login uses it to fetch the profile before persisting.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenOverrideKey{}, token)
}

// Client sends requests to the backend.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	onReject  AuthRejectedHandler
	requestID func() string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: d}
	}
}

// WithRequestIDs overrides the X-Request-ID generator (tests).
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		c.requestID = gen
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client for baseURL. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
		requestID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnAuthRejected registers the handler called for 401 responses outside
// /auth/. Set once during wiring, before requests are issued.
func (c *Client) OnAuthRejected(h AuthRejectedHandler) {
	c.onReject = h
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a request and decodes a 2xx JSON response into out (if non-nil).
// body, when non-nil, is JSON-encoded.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return &Error{Kind: KindRequestFailed, Method: method, Path: path, Err: errors.Wrap(err, "read credential")}
	}

	req, err := c.newRequest(ctx, method, path, query, body, token)
	if err != nil {
		return &Error{Kind: KindRequestFailed, Method: method, Path: path, Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			"method", method,
			"path", path,
			"request_id", req.Header.Get("X-Request-ID"),
			"error", err,
		)
		return &Error{Kind: KindRequestFailed, Method: method, Path: path, Err: errors.WithStack(err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &Error{Kind: KindRequestFailed, Status: resp.StatusCode, Method: method, Path: path, Err: errors.Wrap(err, "read response")}
	}

	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			Kind:    KindRequestFailed,
			Status:  resp.StatusCode,
			Message: serverMessage(data),
			Method:  method,
			Path:    path,
		}
		if resp.StatusCode == http.StatusUnauthorized {
			apiErr.Kind = KindAuthRejected
			if c.onReject != nil && !strings.HasPrefix(path, "/auth/") {
				c.onReject(ctx, token)
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindRequestFailed, Status: resp.StatusCode, Method: method, Path: path, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if t, ok := ctx.Value(tokenOverrideKey{}).(string); ok {
		return t, nil
	}
	if c.tokens == nil {
		return "", nil
	}
	return c.tokens.Token(ctx)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any, token string) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.requestID())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// serverMessage extracts {"message": "..."} from an error body. NestJS-style
// validation errors send message as a list of strings.
func serverMessage(data []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Message) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Message, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(payload.Message, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}
