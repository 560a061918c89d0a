package session

import (
	"errors"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by the token source while no session is held.
var ErrNoToken = errors.New("session: no token")

type tokenSource struct {
	m *Manager
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	ts.m.mu.Lock()
	tok := ts.m.token
	ts.m.mu.Unlock()
	if tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// tokenExpired reports whether raw is a JWT whose exp claim is before now.
// Opaque tokens are never considered expired; only the server can judge
// them. The signature is not checked: this only saves a doomed round trip.
func tokenExpired(raw string, now time.Time) bool {
	parsed, err := jwt.ParseSigned(raw)
	if err != nil {
		return false
	}
	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return false
	}
	if claims.Expiry == nil {
		return false
	}
	return claims.Expiry.Time().Before(now)
}
