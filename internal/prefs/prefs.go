// Package prefs holds the user's local UI preferences.
package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/kv"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", errs.New(errs.InvalidArgument, fmt.Sprintf("Unknown theme %q (want light or dark)", s))
}

// Prefs reads and writes preferences in the persisted client state. They are
// kept across logouts.
type Prefs struct {
	store kv.Store
}

func New(store kv.Store) *Prefs {
	return &Prefs{store: store}
}

// Theme returns the stored theme, light when unset or unrecognized.
func (p *Prefs) Theme(ctx context.Context) (Theme, error) {
	v, ok, err := p.store.Get(ctx, kv.KeyTheme)
	if err != nil {
		return ThemeLight, err
	}
	if !ok {
		return ThemeLight, nil
	}
	t, err := ParseTheme(v)
	if err != nil {
		return ThemeLight, nil
	}
	return t, nil
}

func (p *Prefs) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return p.store.Set(ctx, kv.KeyTheme, string(t))
}

// ToggleTheme flips between light and dark and returns the new theme.
func (p *Prefs) ToggleTheme(ctx context.Context) (Theme, error) {
	cur, err := p.Theme(ctx)
	if err != nil {
		return cur, err
	}
	next := ThemeDark
	if cur == ThemeDark {
		next = ThemeLight
	}
	if err := p.SetTheme(ctx, next); err != nil {
		return cur, err
	}
	return next, nil
}

// DefaultShare reports whether new notes start out shared. Only the stored
// value "true" enables it.
func (p *Prefs) DefaultShare(ctx context.Context) (bool, error) {
	v, ok, err := p.store.Get(ctx, kv.KeyDefaultShare)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

func (p *Prefs) SetDefaultShare(ctx context.Context, share bool) error {
	return p.store.Set(ctx, kv.KeyDefaultShare, strconv.FormatBool(share))
}
