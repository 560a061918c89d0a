// Package apiclient is the HTTP client for the notes API.
//
// Every call carries the session's bearer token when one is held, runs under
// a fixed timeout, and turns non-2xx responses into *errs.Error values whose
// Message is the server's own explanation. A 401 response additionally fires
// the unauthorized hook so the session can be torn down in one place.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/logutil"
	"github.com/kuitang/notes-client/internal/obs"
	"github.com/kuitang/notes-client/internal/ratelimit"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8080/api"

	// DefaultTimeout bounds every outbound call.
	DefaultTimeout = 15 * time.Second

	maxResponseBytes = 4 << 20
	maxLogBodyBytes  = 2048
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Tokens supplies the bearer token. A nil source, an error, or an empty
	// access token all mean "send no Authorization header".
	Tokens oauth2.TokenSource

	// OnUnauthorized is called with the token that was sent whenever the
	// server answers 401.
	OnUnauthorized func(sentToken string)

	Limiter   *ratelimit.RateLimiter
	Transport http.RoundTripper
}

// Client calls the notes API.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client

	mu             sync.RWMutex
	tokens         oauth2.TokenSource
	onUnauthorized func(string)
}

// New creates a Client. Zero values in cfg take their defaults.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var rt http.RoundTripper = &obs.Transport{Base: cfg.Transport, Pkg: "apiclient"}
	if cfg.Limiter != nil {
		rt = &ratelimit.Transport{Base: rt, Limiter: cfg.Limiter}
	}

	return &Client{
		baseURL:        base,
		timeout:        timeout,
		http:           &http.Client{Transport: rt},
		tokens:         cfg.Tokens,
		onUnauthorized: cfg.OnUnauthorized,
	}
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// SetTokenSource replaces the bearer token source.
func (c *Client) SetTokenSource(ts oauth2.TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// SetUnauthorizedHook replaces the 401 hook.
func (c *Client) SetUnauthorizedHook(fn func(sentToken string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errs.Wrap(errs.Internal, "", fmt.Errorf("encode %s %s: %w", method, path, err))
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errs.Wrap(errs.Internal, "", fmt.Errorf("build %s %s: %w", method, path, err))
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	sentToken := c.authorize(req)

	log := obs.From(ctx).With("pkg", "apiclient")
	log.Debug("api_request", "method", method, "path", path, "headers", logutil.Headers(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
			return errs.Transport(fmt.Errorf("timeout of %s exceeded", c.timeout))
		}
		return errs.Transport(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errs.Transport(fmt.Errorf("read %s %s: %w", method, path, err))
	}
	respType := resp.Header.Get("Content-Type")
	log.Debug("api_response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"body", logutil.Body(respType, raw, maxLogBodyBytes),
	)

	// On /auth/ a 401 means bad credentials, not a dead session.
	if resp.StatusCode == http.StatusUnauthorized && !strings.HasPrefix(path, "/auth/") {
		c.unauthorized(sentToken)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.FromResponse(resp.StatusCode, ServerMessage(respType, raw))
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Wrap(errs.Internal, "", fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

// authorize sets the bearer header and returns the token it used.
func (c *Client) authorize(req *http.Request) string {
	c.mu.RLock()
	src := c.tokens
	c.mu.RUnlock()
	if src == nil {
		return ""
	}
	tok, err := src.Token()
	if err != nil || tok == nil || tok.AccessToken == "" {
		return ""
	}
	tok.SetAuthHeader(req)
	return tok.AccessToken
}

func (c *Client) unauthorized(sentToken string) {
	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook != nil {
		hook(sentToken)
	}
}

// ServerMessage extracts the human-readable explanation from an error body:
// a JSON "message" field, else a JSON "error" field, else a JSON string, else
// the plain-text body. HTML error pages yield "".
func ServerMessage(contentType string, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '{':
		var fields map[string]any
		if err := json.Unmarshal(trimmed, &fields); err == nil {
			for _, key := range []string{"message", "error"} {
				if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
			return ""
		}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	if strings.Contains(strings.ToLower(contentType), "html") {
		return ""
	}
	return logutil.Truncate(string(trimmed), 500)
}
