// Package guard decides whether the current session may open a view.
package guard

import (
	"context"
	"net/http"
	"net/url"
	"regexp"

	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/session"
)

// Route is one view of the client. Role, when set, must be held in addition
// to being signed in.
type Route struct {
	Path   string
	Public bool
	Role   model.Role
}

// Kind is the outcome of Check.
type Kind int

const (
	Allow Kind = iota
	// Pending means the session is still being restored; show a loading
	// state and check again.
	Pending
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Pending:
		return "pending"
	default:
		return "redirect"
	}
}

// Decision is the result of a check. From is set on redirects to the login
// view so the caller can return there after signing in.
type Decision struct {
	Kind Kind
	To   string
	From string
}

// Session is the part of session.Manager the guard reads.
type Session interface {
	Snapshot() session.Snapshot
	IsAuthorized(roles ...model.Role) bool
}

// Check decides whether route may be shown. from is the path being opened.
func Check(s Session, route Route, from string) Decision {
	if route.Public {
		return Decision{Kind: Allow}
	}
	snap := s.Snapshot()
	if snap.Loading || snap.State == session.Validating {
		return Decision{Kind: Pending}
	}
	if !s.IsAuthorized() {
		return Decision{Kind: Redirect, To: session.PathLogin, From: from}
	}
	if route.Role != "" && !s.IsAuthorized(route.Role) {
		return Decision{Kind: Redirect, To: session.PathHome}
	}
	return Decision{Kind: Allow}
}

// Routes is the client's view table.
var Routes = []Route{
	{Path: "/login", Public: true},
	{Path: "/register", Public: true},
	{Path: "/share/{token}", Public: true},
	{Path: "/{$}"},
	{Path: "/new"},
	{Path: "/edit/{id}"},
	{Path: "/note/{id}"},
	{Path: "/profile"},
	{Path: "/settings"},
	{Path: "/admin", Role: model.RoleAdmin},
	{Path: "/admin/users", Role: model.RoleAdmin},
}

// Table resolves concrete paths against a set of routes using ServeMux
// pattern matching.
type Table struct {
	mux *http.ServeMux
}

type matchKey struct{}

type match struct {
	found  bool
	route  Route
	params map[string]string
}

var wildcard = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?:\.\.\.)?\}`)

// NewTable builds a table. It panics on a malformed or duplicate path, like
// http.ServeMux.Handle.
func NewTable(routes []Route) *Table {
	mux := http.NewServeMux()
	for _, rt := range routes {
		var names []string
		for _, m := range wildcard.FindAllStringSubmatch(rt.Path, -1) {
			names = append(names, m[1])
		}
		mux.HandleFunc("GET "+rt.Path, func(_ http.ResponseWriter, r *http.Request) {
			m, ok := r.Context().Value(matchKey{}).(*match)
			if !ok {
				return
			}
			m.found = true
			m.route = rt
			for _, n := range names {
				m.params[n] = r.PathValue(n)
			}
		})
	}
	return &Table{mux: mux}
}

// Resolve finds the route for path and its wildcard values.
func (t *Table) Resolve(path string) (Route, map[string]string, bool) {
	m := &match{params: map[string]string{}}
	ctx := context.WithValue(context.Background(), matchKey{}, m)
	req := (&http.Request{
		Method: http.MethodGet,
		URL:    &url.URL{Path: path},
		Header: http.Header{},
	}).WithContext(ctx)
	t.mux.ServeHTTP(discard{}, req)
	return m.route, m.params, m.found
}

// Navigate resolves path and checks it. Unknown paths redirect home.
func (t *Table) Navigate(s Session, path string) Decision {
	rt, _, ok := t.Resolve(path)
	if !ok {
		return Decision{Kind: Redirect, To: session.PathHome}
	}
	return Check(s, rt, path)
}

type discard struct{}

func (discard) Header() http.Header         { return http.Header{} }
func (discard) Write(b []byte) (int, error) { return len(b), nil }
func (discard) WriteHeader(int)             {}
