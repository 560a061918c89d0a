// Package mcp serves the signed-in user's notes to MCP clients over the
// Streamable HTTP transport.
package mcp

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/obs"
	"github.com/kuitang/notes-client/internal/urlutil"
)

// Authorizer reports whether the local session may act. *session.Manager
// satisfies it.
type Authorizer interface {
	IsAuthorized(roles ...model.Role) bool
}

// RequireBearer rejects requests whose Authorization header does not carry
// token. An empty token matches nothing, so every request is rejected.
func RequireBearer(token string, next http.Handler) http.Handler {
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := bearerToken(r)
		if len(want) == 0 || !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="notes-mcp"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_token","error_description":"missing or invalid bearer token"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AllowOrigins answers CORS for the listed browser origins and refuses any
// other request that carries an Origin header, preflight included. Requests
// without Origin come from non-browser clients and pass untouched.
func AllowOrigins(allowed []string, next http.Handler) http.Handler {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if origin := urlutil.Origin(o); origin != "" {
			origins[strings.ToLower(origin)] = true
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Origin")
		if !origins[strings.ToLower(origin)] {
			obs.From(r.Context()).With("pkg", "mcp").Warn("mcp_origin_rejected", "origin", origin)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"origin_not_allowed","error_description":"cross-origin requests are not allowed from this origin"}`))
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id, Mcp-Protocol-Version, Last-Event-ID, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		next.ServeHTTP(w, r)
	})
}
