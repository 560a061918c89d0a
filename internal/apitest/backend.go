// Package apitest is an in-memory implementation of the notes API. Tests
// start it with Start; cmd/server serves it for local development.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kuitang/notes-client/internal/model"
)

// RestrictedLoginMessage is the login rejection body for restricted accounts.
const RestrictedLoginMessage = "Your account is restricted. Please contact support."

// RestrictedActionMessage is returned when a restricted account calls any
// other authenticated endpoint.
const RestrictedActionMessage = "Your account is restricted. Action not allowed."

// Interceptor may answer a request before the backend does. It returns true
// when it wrote a response.
type Interceptor func(w http.ResponseWriter, r *http.Request) bool

type account struct {
	user         model.User
	passwordHash []byte
}

type storedNote struct {
	id         int64
	owner      model.ID
	title      string
	content    string
	shareToken string
	createdAt  time.Time
	updatedAt  time.Time
}

// Backend holds the fake server state. All methods are safe for concurrent
// use.
type Backend struct {
	// URL and BaseURL are set by Start.
	URL     string
	BaseURL string

	mu           sync.Mutex
	accounts     map[model.ID]*account
	byEmail      map[string]model.ID
	tokens       map[string]model.ID
	notes        map[int64]*storedNote
	uploads      map[string][]byte
	nextNoteID   int64
	requests     []string
	interceptors []Interceptor
	now          func() time.Time

	handler http.Handler
}

// New returns an empty backend.
func New() *Backend {
	b := &Backend{
		accounts:   make(map[model.ID]*account),
		byEmail:    make(map[string]model.ID),
		tokens:     make(map[string]model.ID),
		notes:      make(map[int64]*storedNote),
		uploads:    make(map[string][]byte),
		nextNoteID: 1,
		now:        time.Now,
	}
	b.handler = b.routes()
	return b
}

// Handler returns the HTTP handler; the API is mounted under /api.
func (b *Backend) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		interceptors := append([]Interceptor(nil), b.interceptors...)
		b.mu.Unlock()

		for _, ic := range interceptors {
			if ic(w, r) {
				return
			}
		}
		b.handler.ServeHTTP(w, r)
	})
}

// Start serves a new backend on a loopback listener for the life of t.
func Start(t testing.TB) *Backend {
	t.Helper()
	b := New()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	b.URL = srv.URL
	b.BaseURL = srv.URL + "/api"
	return b
}

// Intercept installs fn ahead of the backend and returns a function that
// removes it.
func (b *Backend) Intercept(fn Interceptor) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interceptors = append(b.interceptors, fn)
	idx := len(b.interceptors) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.interceptors) {
			b.interceptors[idx] = func(http.ResponseWriter, *http.Request) bool { return false }
		}
	}
}

// FailNext answers the next request matching method and path (path relative
// to /api) with status and a plain-text body.
func (b *Backend) FailNext(method, path string, status int, body string) {
	var once sync.Once
	b.Intercept(func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != method || r.URL.Path != "/api"+path {
			return false
		}
		fired := false
		once.Do(func() { fired = true })
		if !fired {
			return false
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
		return true
	})
}

// Requests returns "METHOD /path" for every request received so far.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// RequestCount returns the number of requests received so far.
func (b *Backend) RequestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// AddUser creates an account directly and returns its profile.
func (b *Backend) AddUser(name, email, password string, roles ...model.Role) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(roles) == 0 {
		roles = []model.Role{model.RoleUser}
	}
	return b.addUserLocked(name, email, password, model.Roles(roles))
}

func (b *Backend) addUserLocked(name, email, password string, roles model.Roles) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	now := b.now().UTC()
	u := model.User{
		ID:        model.ID(uuid.NewString()),
		Name:      name,
		Email:     email,
		Roles:     roles,
		Provider:  "LOCAL",
		CreatedAt: model.Time{Time: now},
		UpdatedAt: model.Time{Time: now},
	}
	b.accounts[u.ID] = &account{user: u, passwordHash: hash}
	b.byEmail[strings.ToLower(email)] = u.ID
	return u
}

// IssueToken mints a bearer token for an existing user.
func (b *Backend) IssueToken(id model.ID) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueTokenLocked(id)
}

func (b *Backend) issueTokenLocked(id model.ID) string {
	tok := "tok-" + uuid.NewString()
	b.tokens[tok] = id
	return tok
}

// RevokeToken makes token unknown to the server.
func (b *Backend) RevokeToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
}

// SetRestricted flips the restricted flag of a user.
func (b *Backend) SetRestricted(id model.ID, restricted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acct, ok := b.accounts[id]; ok {
		acct.user.Restricted = restricted
	}
}

// User returns the stored profile of id.
func (b *Backend) User(id model.ID) (model.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acct, ok := b.accounts[id]
	if !ok {
		return model.User{}, false
	}
	return acct.user, true
}

// AddNote stores a note for owner and returns it as the API would.
func (b *Backend) AddNote(owner model.ID, title, content, shareToken string) model.Note {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addNoteLocked(owner, title, content, shareToken).toModel()
}

func (b *Backend) addNoteLocked(owner model.ID, title, content, shareToken string) *storedNote {
	now := b.now().UTC()
	n := &storedNote{
		id:         b.nextNoteID,
		owner:      owner,
		title:      title,
		content:    content,
		shareToken: shareToken,
		createdAt:  now,
		updatedAt:  now,
	}
	b.nextNoteID++
	b.notes[n.id] = n
	return n
}

// Notes returns owner's notes newest first.
func (b *Backend) Notes(owner model.ID) []model.Note {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := b.notesOfLocked(owner)
	out := make([]model.Note, len(stored))
	for i, n := range stored {
		out[i] = n.toModel()
	}
	return out
}

func (b *Backend) notesOfLocked(owner model.ID) []*storedNote {
	var out []*storedNote
	for _, n := range b.notes {
		if n.owner == owner {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.After(out[j].createdAt)
		}
		return out[i].id > out[j].id
	})
	return out
}

func (n *storedNote) toModel() model.Note {
	return model.Note{
		ID:         model.ID(formatNoteID(n.id)),
		Title:      n.title,
		Content:    n.content,
		ShareToken: n.shareToken,
		CreatedAt:  model.Time{Time: n.createdAt},
		UpdatedAt:  model.Time{Time: n.updatedAt},
	}
}
