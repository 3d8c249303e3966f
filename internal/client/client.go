// Package client talks to the learning backend's REST API on behalf of the
// signed-in student.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/session"
)

// refreshLeeway triggers a proactive refresh when the access token expires within this window.
const refreshLeeway = 30 * time.Second

// Client is the backend API client. It reads and writes tokens through a
// session.Store and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store
	log     zerolog.Logger
	now     func() time.Time
	observe Observer

	// refreshMu serializes refreshes so concurrent 401s rotate the token once.
	refreshMu sync.Mutex
}

// Observer receives one call per backend round trip. route has numeric path
// segments replaced by ":id"; status is 0 when the request never got a response.
type Observer func(method, route string, status int, latency time.Duration)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout bounds every outbound request. Zero means no client-level timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log.With().Str("component", "backend_client").Logger() }
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithObserver registers a round-trip observer, typically metrics.
func WithObserver(fn Observer) Option {
	return func(c *Client) { c.observe = fn }
}

// New creates a Client for the backend rooted at baseURL (e.g. http://localhost:8000/api).
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		store:   store,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the session store the client reads tokens from.
func (c *Client) Store() session.Store { return c.store }

// envelope is the {"data": ...} wrapper some endpoints use.
type envelope[T any] struct {
	Data T `json:"data"`
}

// ─── Transport ────────────────────────────────────────────────────

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}, token string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send performs one round trip and decodes a 2xx body into out.
func (c *Client) send(ctx context.Context, method, path string, body, out interface{}, token string) error {
	req, err := c.newRequest(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record(method, path, 0, start)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.record(method, path, resp.StatusCode, start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", c.now().Sub(start)).
		Msg("Backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) record(method, path string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(method, routeLabel(path), status, c.now().Sub(start))
	}
}

// routeLabel replaces numeric path segments so ids do not explode label cardinality.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

// do performs an authenticated call. A 401 triggers one refresh and one retry;
// a failed refresh clears the session and returns ErrUnauthorized. A 401 on
// the retry is returned as a plain *APIError and leaves the session in place.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	tokens, err := c.store.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if tokens.Access == "" {
		return ErrSessionMissing
	}

	if tokens.Refresh != "" && c.expiresSoon(tokens.Access) {
		if fresh, err := c.refreshFrom(ctx, tokens.Access); err == nil {
			tokens.Access = fresh
		} else if errors.Is(err, ErrUnauthorized) {
			return err
		}
	}

	err = c.send(ctx, method, path, body, out, tokens.Access)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	fresh, rerr := c.refreshFrom(ctx, tokens.Access)
	if rerr != nil {
		return rerr
	}
	return c.send(ctx, method, path, body, out, fresh)
}

// expiresSoon reports whether access is about to lapse.
func (c *Client) expiresSoon(access string) bool {
	exp, ok := TokenExpiry(access)
	return ok && exp.Sub(c.now()) < refreshLeeway
}

// TokenExpiry reads the exp claim of a JWT without verifying the signature;
// the backend stays the authority, this only avoids a guaranteed 401.
func TokenExpiry(access string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// refreshFrom refreshes the session unless another caller already replaced
// the stale access token, and returns the access token to use.
func (c *Client) refreshFrom(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	tokens, err := c.store.Tokens(ctx)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if tokens.Access != "" && tokens.Access != stale {
		return tokens.Access, nil
	}

	pair, err := c.refresh(ctx, tokens.Refresh)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) && !errors.Is(err, session.ErrNoRefreshToken) {
			// Transport failure: the refresh token may still be good.
			return "", err
		}
		c.log.Warn().Err(err).Msg("Token refresh failed, clearing session")
		if cerr := c.store.Clear(ctx); cerr != nil {
			c.log.Error().Err(cerr).Msg("Failed to clear session")
		}
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return pair.Access, nil
}
