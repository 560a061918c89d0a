package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireBearer(t *testing.T) {
	t.Parallel()
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	cases := []struct {
		name   string
		token  string
		header string
		method string
		want   int
	}{
		{"unset token rejects", "", "", http.MethodPost, http.StatusUnauthorized},
		{"unset token rejects empty bearer", "", "Bearer ", http.MethodPost, http.StatusUnauthorized},
		{"missing", "s3cret", "", http.MethodPost, http.StatusUnauthorized},
		{"wrong", "s3cret", "Bearer nope", http.MethodPost, http.StatusUnauthorized},
		{"wrong scheme", "s3cret", "Basic s3cret", http.MethodPost, http.StatusUnauthorized},
		{"match", "s3cret", "Bearer s3cret", http.MethodPost, http.StatusTeapot},
		{"scheme case", "s3cret", "bearer s3cret", http.MethodPost, http.StatusTeapot},
		{"preflight", "s3cret", "", http.MethodOptions, http.StatusTeapot},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/mcp", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		RequireBearer(tc.token, ok).ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.name)
	}
}

func TestAllowOrigins(t *testing.T) {
	t.Parallel()
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := AllowOrigins([]string{"http://localhost:3000", "not a url"}, ok)

	cases := []struct {
		name     string
		origin   string
		want     int
		wantACAO string
	}{
		{"no origin", "", http.StatusTeapot, ""},
		{"listed", "http://localhost:3000", http.StatusTeapot, "http://localhost:3000"},
		{"listed other case", "HTTP://LOCALHOST:3000", http.StatusTeapot, "HTTP://LOCALHOST:3000"},
		{"other port", "http://localhost:3001", http.StatusForbidden, ""},
		{"null origin", "null", http.StatusForbidden, ""},
		{"unlisted", "https://evil.example", http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		if tc.origin != "" {
			req.Header.Set("Origin", tc.origin)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.name)
		assert.Equal(t, tc.wantACAO, rec.Header().Get("Access-Control-Allow-Origin"), tc.name)
	}
}
