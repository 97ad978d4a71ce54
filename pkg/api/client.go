// Package api is the HTTP client for the Area automation backend: JSON
// encoding and decoding, header injection, credentialed requests, and
// uniform error shaping.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// TokenSource yields the bearer token to attach to requests. An empty
// string means no Authorization header.
type TokenSource func() string

// Client issues requests against the backend. Exactly one network attempt
// per call; there are no implicit retries. The underlying HTTP client
// carries a cookie jar so ambient credentials ride along with any bearer
// token.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	tokenSource  TokenSource
	unauthorized func()
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit caps outbound requests per second. Zero or negative means
// unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTokenSource wires the bearer token provider. Set after construction
// because the session manager that owns the token needs the client first.
func (c *Client) SetTokenSource(src TokenSource) { c.tokenSource = src }

// SetUnauthorizedHook registers a callback invoked whenever the backend
// answers 401 or 403. The session manager uses it to drop an invalidated
// session.
func (c *Client) SetUnauthorizedHook(fn func()) { c.unauthorized = fn }

// CallOption adjusts a single request before it is sent.
type CallOption func(*http.Request)

// WithContentType overrides the Content-Type header for one call.
func WithContentType(ct string) CallOption {
	return func(r *http.Request) { r.Header.Set("Content-Type", ct) }
}

// Get issues a GET. The result is the decoded JSON value when the response
// is application/json, and the raw body string otherwise.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (any, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts)
}

// Post issues a POST with a JSON-encoded body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...CallOption) (any, error) {
	return c.do(ctx, http.MethodPost, path, body, opts)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (any, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts)
}

// GetInto issues a GET and unmarshals the JSON response into v.
func (c *Client) GetInto(ctx context.Context, path string, v any, opts ...CallOption) error {
	data, _, err := c.doRaw(ctx, http.MethodGet, path, nil, opts)
	if err != nil {
		return err
	}
	return decodeInto(data, v)
}

// PostInto issues a POST and unmarshals the JSON response into v.
func (c *Client) PostInto(ctx context.Context, path string, body, v any, opts ...CallOption) error {
	data, _, err := c.doRaw(ctx, http.MethodPost, path, body, opts)
	if err != nil {
		return err
	}
	return decodeInto(data, v)
}

func decodeInto(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts []CallOption) (any, error) {
	data, isJSON, err := c.doRaw(ctx, method, path, body, opts)
	if err != nil {
		return nil, err
	}
	if !isJSON {
		return string(data), nil
	}
	if len(data) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// doRaw performs the single network attempt and shapes failures: transport
// errors wrap ErrNetwork, non-2xx statuses become *Error. The bool reports
// whether the response declared an application/json content type.
func (c *Client) doRaw(ctx context.Context, method, path string, body any, opts []CallOption) ([]byte, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, false, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			Path:       path,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       strings.TrimSpace(string(data)),
		}
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Detail = payload.Detail
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			if c.unauthorized != nil {
				c.unauthorized()
			}
		}
		return nil, false, apiErr
	}

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")
	return data, isJSON, nil
}
