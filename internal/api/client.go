// Package api is the HTTP client for the FastCite backend.
//
// Every view goes through Client. It attaches the bearer token, converts
// non-2xx responses into *APIError with a Kind, and on 401 clears the stored
// session and notifies the caller once, so expiry handling lives in one place.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/session"
)

// HeaderRequestID carries a per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// Client calls the FastCite API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	sessions       session.Store
	onUnauthorized func()
	log            *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client. Its transport is still
// wrapped with request logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithUnauthorizedHandler is invoked after a 401 cleared the session.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New constructs a client for baseURL using sessions for the bearer token.
func New(baseURL string, sessions session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		sessions:   sessions,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	next := c.httpClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc := *c.httpClient
	hc.Transport = &loggingTransport{next: next, log: c.log}
	c.httpClient = &hc
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Sessions returns the session store the client reads tokens from.
func (c *Client) Sessions() session.Store { return c.sessions }

func (c *Client) token() string {
	if c.sessions == nil {
		return ""
	}
	s, err := c.sessions.Load()
	if err != nil {
		return ""
	}
	return s.AccessToken
}

// requireToken fails fast for authenticated endpoints with no stored session.
func (c *Client) requireToken() error {
	if c.token() == "" {
		return errs.ErrNoSession
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set(HeaderRequestID, id.String())
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	ct := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		ct = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, ct)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr == context.Canceled {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		msg := errorMessage(raw)
		if msg == "" {
			msg = strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		apiErr := &APIError{Status: resp.StatusCode, Kind: kindForStatus(resp.StatusCode, msg), Message: msg}
		// a rejected login is bad credentials, not an ended session
		if apiErr.Kind == KindUnauthorized && !strings.Contains(req.URL.Path, "/auth/") {
			c.handleUnauthorized()
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func (c *Client) handleUnauthorized() {
	if c.sessions != nil {
		if err := c.sessions.Clear(); err != nil {
			c.log.Warn("clear session", zap.Error(err))
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
