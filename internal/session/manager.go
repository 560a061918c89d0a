package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/kv"
	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/obs"
)

// Manager is the session of one client process. Create it with New, call
// Init once at startup, and share the pointer with everything that needs to
// know who is logged in.
type Manager struct {
	api   API
	store kv.Store
	now   func() time.Time
	log   *slog.Logger

	mu        sync.Mutex
	state     State
	token     string
	user      *model.User
	loading   bool
	validated string // token value whose validation already started

	listenersMu sync.Mutex
	listeners   []registeredListener
	nextID      int
	onClear     []func()
}

type registeredListener struct {
	id int
	fn Listener
}

// Option configures a Manager.
type Option func(*Manager)

// WithListener registers l at construction time.
func WithListener(l Listener) Option {
	return func(m *Manager) { m.AddListener(l) }
}

// WithClock overrides the clock used for the JWT expiry check.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New returns a Manager in the Unauthenticated state with loading=true until
// Init runs.
func New(api API, store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		api:     api,
		store:   store,
		now:     time.Now,
		log:     obs.Pkg("session"),
		loading: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddListener registers l and returns a function that removes it.
func (m *Manager) AddListener(l Listener) func() {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, registeredListener{id: id, fn: l})
	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		for i, rl := range m.listeners {
			if rl.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// OnClear registers fn to run every time the session is cleared (logout,
// rejected token, restricted account). The notes store hooks its reset here.
func (m *Manager) OnClear(fn func()) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.onClear = append(m.onClear, fn)
}

// TokenSource feeds the API client's bearer header from this session.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return tokenSource{m: m}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:   m.state,
		Token:   m.token,
		User:    copyUser(m.user),
		Loading: m.loading,
	}
}

// IsAuthorized is false unless the session is Authenticated; each role given
// must also be held by the user.
func (m *Manager) IsAuthorized(roles ...model.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated || m.token == "" || m.user == nil {
		return false
	}
	for _, r := range roles {
		if !m.user.Roles.Has(r) {
			return false
		}
	}
	return true
}

// Init restores the persisted token and validates it with the server. A
// token is validated at most once; calling Init again for the same token is
// a no-op.
func (m *Manager) Init(ctx context.Context) {
	token := m.persistedToken(ctx)

	m.mu.Lock()
	if token == "" {
		m.clearLocked(ctx)
		m.mu.Unlock()
		return
	}
	if token == m.validated {
		m.mu.Unlock()
		return
	}
	m.validated = token

	if tokenExpired(token, m.now()) {
		m.log.Info("session_token_expired")
		m.clearLocked(ctx)
		m.mu.Unlock()
		m.after(true, Event{Kind: EventNavigate, Path: PathLogin})
		return
	}

	m.token = token
	m.loading = true
	m.setStateLocked(Validating)
	m.mu.Unlock()

	profile, err := m.api.GetProfile(ctx)
	m.applyProfile(ctx, token, profile, err)
}

// RefreshProfile re-fetches the profile of the current session. A restricted
// profile ends the session.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()
	if token == "" {
		return errs.New(errs.Unauthenticated, "Not logged in")
	}
	profile, err := m.api.GetProfile(ctx)
	if err != nil {
		return err
	}
	m.applyProfile(ctx, token, profile, nil)
	return nil
}

// applyProfile settles a profile fetch issued for token. Results for a token
// that has since been replaced are dropped.
func (m *Manager) applyProfile(ctx context.Context, token string, profile model.User, err error) {
	m.mu.Lock()
	if m.token != token {
		m.mu.Unlock()
		return
	}
	m.loading = false

	switch {
	case err != nil:
		obs.From(ctx).With("pkg", "session").Warn("session_validation_failed", "error", err)
		m.clearLocked(ctx)
		m.mu.Unlock()
		m.after(true, Event{Kind: EventNavigate, Path: PathLogin})

	case profile.Restricted:
		m.setStateLocked(Restricted)
		m.clearLocked(ctx)
		m.mu.Unlock()
		m.after(true,
			Event{Kind: EventNotice, Level: LevelError, Message: RestrictedMessage},
			Event{Kind: EventNavigate, Path: PathLogin},
		)

	default:
		m.user = copyUser(&profile)
		m.setStateLocked(Authenticated)
		m.persistUserLocked(ctx)
		m.mu.Unlock()
	}
}

// Register creates an account and logs into it.
func (m *Manager) Register(ctx context.Context, name, email, password string) Result {
	if err := ValidateRegistration(name, email, password); err != nil {
		return m.failure(ReasonInvalidInput, errs.UserMessage(err))
	}

	m.setLoading(true)
	resp, err := m.api.Register(ctx, name, email, password)
	if err != nil {
		m.setLoading(false)
		obs.From(ctx).With("pkg", "session").Info("session_register_failed", "error", err)
		return m.failure(ReasonFailed, errs.UserMessage(err))
	}

	user := m.establish(ctx, resp)
	m.after(false,
		Event{Kind: EventNotice, Level: LevelSuccess, Message: "Welcome, " + displayName(user) + "!"},
		Event{Kind: EventNavigate, Path: PathHome},
	)
	return Result{OK: true, User: user}
}

// Login authenticates with email and password. A restricted account is
// reported with ReasonRestricted.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	if err := ValidateLogin(email, password); err != nil {
		return m.failure(ReasonInvalidInput, errs.UserMessage(err))
	}

	m.setLoading(true)
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.setLoading(false)
		obs.From(ctx).With("pkg", "session").Info("session_login_failed", "error", err)
		if errs.Is(err, errs.Restricted) {
			return m.failure(ReasonRestricted, RestrictedMessage)
		}
		return m.failure(ReasonFailed, errs.UserMessage(err))
	}

	user := m.establish(ctx, resp)
	m.after(false,
		Event{Kind: EventNotice, Level: LevelSuccess, Message: "Welcome back, " + displayName(user) + "!"},
		Event{Kind: EventNavigate, Path: PathHome},
	)
	return Result{OK: true, User: user}
}

// Logout clears the session and its persisted copies. It cannot fail and may
// be called any number of times.
func (m *Manager) Logout() {
	ctx := context.Background()
	m.mu.Lock()
	m.clearLocked(ctx)
	m.mu.Unlock()
	m.after(true,
		Event{Kind: EventNotice, Level: LevelSuccess, Message: "Logged out successfully."},
		Event{Kind: EventNavigate, Path: PathLogin},
	)
}

// HandleUnauthorized is the API client's 401 hook. It clears the session
// only when the rejected request carried the token still held, so a stale
// response cannot log out a newer session.
func (m *Manager) HandleUnauthorized(sentToken string) {
	m.mu.Lock()
	if m.token == "" || sentToken != m.token {
		m.mu.Unlock()
		return
	}
	m.log.Info("session_token_rejected")
	m.clearLocked(context.Background())
	m.mu.Unlock()
	m.after(true, Event{Kind: EventNavigate, Path: PathLogin})
}

// SetUser replaces the cached profile of the current session. It is ignored
// when no session is held.
func (m *Manager) SetUser(user model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return
	}
	m.user = copyUser(&user)
	m.persistUserLocked(context.Background())
}

func (m *Manager) establish(ctx context.Context, resp model.AuthResponse) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = resp.Token
	m.user = copyUser(resp.User)
	m.validated = resp.Token
	m.loading = false
	m.setStateLocked(Authenticated)

	m.persistSessionLocked(ctx)
	return copyUser(m.user)
}

// persistSessionLocked writes token and user in one transaction. The write
// outlives ctx so a canceled caller cannot leave half a session on disk. If
// it fails the persisted copy is cleared and memory stays authoritative for
// this process.
func (m *Manager) persistSessionLocked(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	values := map[string]string{kv.KeyToken: m.token}
	var err error
	if m.user != nil {
		var raw []byte
		if raw, err = json.Marshal(m.user); err == nil {
			values[kv.KeyUser] = string(raw)
		}
	}
	if err == nil {
		err = m.store.SetMany(ctx, values)
	}
	if err == nil && m.user == nil {
		err = m.store.Delete(ctx, kv.KeyUser)
	}
	if err != nil {
		m.log.Error("session_persist_failed", "key", kv.KeyToken, "error", err)
		if err := m.store.Delete(ctx, kv.KeyToken, kv.KeyUser); err != nil {
			m.log.Error("session_persist_failed", "key", kv.KeyUser, "error", err)
		}
	}
}

func (m *Manager) failure(reason Reason, msg string) Result {
	m.after(false, Event{Kind: EventNotice, Level: LevelError, Message: msg})
	return Result{Reason: reason, Message: msg}
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

func (m *Manager) setStateLocked(s State) {
	if m.state != s {
		m.log.Debug("session_state", "from", m.state.String(), "to", s.String())
	}
	m.state = s
}

// clearLocked drops token and user together, in memory and on disk.
func (m *Manager) clearLocked(ctx context.Context) {
	m.token = ""
	m.user = nil
	m.validated = ""
	m.loading = false
	m.setStateLocked(Unauthenticated)
	if err := m.store.Delete(context.WithoutCancel(ctx), kv.KeyToken, kv.KeyUser); err != nil {
		m.log.Error("session_persist_failed", "key", kv.KeyToken, "error", err)
	}
}

func (m *Manager) persistUserLocked(ctx context.Context) {
	if m.user == nil {
		return
	}
	raw, err := json.Marshal(m.user)
	if err != nil {
		m.log.Error("session_persist_failed", "key", kv.KeyUser, "error", err)
		return
	}
	if err := m.store.Set(context.WithoutCancel(ctx), kv.KeyUser, string(raw)); err != nil {
		m.log.Error("session_persist_failed", "key", kv.KeyUser, "error", err)
	}
}

func (m *Manager) persistedToken(ctx context.Context) string {
	tok, ok, err := m.store.Get(ctx, kv.KeyToken)
	if err != nil {
		m.log.Error("session_restore_failed", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return tok
}

// after runs clear hooks (when cleared) and then delivers events, outside
// the state lock.
func (m *Manager) after(cleared bool, events ...Event) {
	m.listenersMu.Lock()
	listeners := make([]Listener, len(m.listeners))
	for i, rl := range m.listeners {
		listeners[i] = rl.fn
	}
	hooks := append([]func(){}, m.onClear...)
	m.listenersMu.Unlock()

	if cleared {
		for _, fn := range hooks {
			fn()
		}
	}
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append(model.Roles(nil), u.Roles...)
	return &c
}

func displayName(u *model.User) string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
