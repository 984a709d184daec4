// Package marketplace is the thin HTTP client for the remote AgriTeranga
// marketplace API. All business logic (pricing, inventory, order lifecycle,
// payment settlement, auth) lives behind this API; the client only issues
// authenticated calls and reports server errors verbatim.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError carries a server-reported failure. Message is the server's own
// message, untouched, so callers can surface it verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace: %s (status %d)", e.Message, e.StatusCode)
}

// tokenKey carries the bearer token through the request context. Token
// storage and refresh are the caller's concern; the client only attaches
// what it is given.
type tokenKey struct{}

// WithToken returns a context carrying the bearer token for outgoing calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey{}).(string); ok {
		return t
	}
	return ""
}

// Client issues requests against one marketplace base URL.
type Client struct {
	base string
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Client for the given base URL. The default transport
// is instrumented with otelhttp.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("marketplace base URL is required")
	}
	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do issues one JSON request. A non-2xx response becomes an *APIError whose
// message is taken from the response body when the body carries one.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: serverMessage(data, resp.Status)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// doRaw is do for endpoints whose response shape is not under our control:
// it returns the raw body for tolerant decoding.
func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var data json.RawMessage
	if err := c.do(ctx, method, path, body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// serverMessage extracts an error message from a JSON error body, falling
// back to the HTTP status line.
func serverMessage(data []byte, status string) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if s := strings.TrimSpace(string(data)); s != "" && len(s) <= 200 && !strings.HasPrefix(s, "{") {
		return s
	}
	return status
}
