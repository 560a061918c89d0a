package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/kuitang/notes-client/internal/apiclient"
	"github.com/kuitang/notes-client/internal/config"
	"github.com/kuitang/notes-client/internal/crypto"
	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/guard"
	"github.com/kuitang/notes-client/internal/kv"
	"github.com/kuitang/notes-client/internal/notes"
	"github.com/kuitang/notes-client/internal/obs"
	"github.com/kuitang/notes-client/internal/prefs"
	"github.com/kuitang/notes-client/internal/ratelimit"
	"github.com/kuitang/notes-client/internal/session"
)

const stateKeyVersion = 1

// app is one wired client: config, local state, API client, session, notes
// store and route table.
type app struct {
	cfg    *config.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	state   *kv.SQLStore
	client  *apiclient.Client
	session *session.Manager
	notes   *notes.Store
	prefs   *prefs.Prefs
	routes  *guard.Table
}

func loadConfig(e *env) (*config.Config, error) {
	return config.LoadConfig(e.opts.configPath, e.opts.overrides)
}

func openApp(ctx context.Context, e *env) (*app, error) {
	cfg, err := loadConfig(e)
	if err != nil {
		return nil, err
	}

	master, err := masterKey(cfg)
	if err != nil {
		return nil, err
	}
	key := crypto.DeriveStateKey(master, cfg.APIURL, stateKeyVersion)
	state, err := kv.Open(stateDirFor(cfg), key)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}

	a := &app{
		cfg:    cfg,
		in:     e.in,
		out:    e.out,
		errOut: e.errOut,
		state:  state,
		prefs:  prefs.New(state),
		routes: guard.NewTable(guard.Routes),
	}
	a.client = apiclient.New(apiclient.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
		Limiter: ratelimit.NewRateLimiter(cfg.RateLimitConfig),
	})
	a.session = session.New(a.client, state, session.WithListener(a.onEvent))
	a.client.SetTokenSource(a.session.TokenSource())
	a.client.SetUnauthorizedHook(a.session.HandleUnauthorized)
	a.notes = notes.NewStore(a.client)
	a.session.OnClear(a.notes.ResetState)

	a.session.Init(ctx)
	return a, nil
}

func masterKey(cfg *config.Config) ([]byte, error) {
	if cfg.StateKey != "" {
		return crypto.ParseMasterKey(cfg.StateKey)
	}
	return crypto.LoadOrCreateMasterKey(cfg.StateKeyFile())
}

// stateDirFor keeps one database per API host so sessions against different
// servers never mix.
func stateDirFor(cfg *config.Config) string {
	host := "default"
	if u, err := url.Parse(cfg.APIURL); err == nil && u.Host != "" {
		host = u.Host
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, host)
	return filepath.Join(cfg.StateDir, safe)
}

func (a *app) Close() error {
	return a.state.Close()
}

func (a *app) onEvent(ev session.Event) {
	switch ev.Kind {
	case session.EventNotice:
		if ev.Level == session.LevelError {
			fmt.Fprintf(a.errOut, "! %s\n", ev.Message)
			return
		}
		fmt.Fprintln(a.errOut, ev.Message)
	case session.EventNavigate:
		obs.Pkg("cli").Debug("session_navigate", "path", ev.Path)
	}
}

// enter asks the route guard whether path may be shown and turns a redirect
// into an error the user can act on.
func (a *app) enter(path string) error {
	d := a.routes.Navigate(a.session, path)
	switch d.Kind {
	case guard.Allow:
		return nil
	case guard.Pending:
		return errs.New(errs.Unavailable, "session is still being validated, try again")
	}
	if d.To == session.PathLogin {
		return errs.New(errs.Unauthenticated, fmt.Sprintf("not logged in: run `notes login` to open %s", d.From))
	}
	return errs.New(errs.PermissionDenied, fmt.Sprintf("%s requires admin access", path))
}

func (a *app) shareOrigin() string {
	return a.cfg.ShareBaseURL
}
