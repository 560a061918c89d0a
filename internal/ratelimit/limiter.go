// Package ratelimit throttles outbound API calls so a script driving the CLI
// cannot flood the server. Auth endpoints get a separate, tighter budget.
package ratelimit

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Class groups endpoints that share a budget.
type Class string

const (
	ClassDefault Class = "default"
	ClassAuth    Class = "auth"
)

// Config defines the rate limiting configuration. A non-positive RPS disables
// limiting for that class.
type Config struct {
	RPS       float64
	Burst     int
	AuthRPS   float64
	AuthBurst int
}

// DefaultConfig provides sensible defaults for rate limiting.
var DefaultConfig = Config{
	RPS:       10,
	Burst:     20,
	AuthRPS:   1,
	AuthBurst: 5,
}

// RateLimiter holds one token bucket per (host, class).
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	config   Config
}

func NewRateLimiter(config Config) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// ClassOf returns the budget a request path is charged to.
func ClassOf(path string) Class {
	if strings.Contains(path, "/auth/") {
		return ClassAuth
	}
	return ClassDefault
}

// GetLimiter returns the limiter for host and class, creating one if
// necessary. It returns nil when the class is unlimited.
func (rl *RateLimiter) GetLimiter(host string, class Class) *rate.Limiter {
	rps, burst := rl.config.RPS, rl.config.Burst
	if class == ClassAuth {
		rps, burst = rl.config.AuthRPS, rl.config.AuthBurst
	}
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}

	key := host + "|" + string(class)

	rl.mu.RLock()
	limiter, ok := rl.limiters[key]
	rl.mu.RUnlock()
	if ok {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, ok := rl.limiters[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(rps), burst)
	rl.limiters[key] = limiter
	return limiter
}

// Len returns the number of active limiters.
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// Transport waits for a token before each request. Waiting honours the
// request context, so the per-call timeout also bounds time spent throttled.
type Transport struct {
	Base    http.RoundTripper
	Limiter *RateLimiter
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Limiter != nil {
		if l := t.Limiter.GetLimiter(req.URL.Host, ClassOf(req.URL.Path)); l != nil {
			if err := l.Wait(req.Context()); err != nil {
				return nil, err
			}
		}
	}
	return base.RoundTrip(req)
}
