package admin

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
)

// SortKey is a column of the user table.
type SortKey string

const (
	SortName       SortKey = "name"
	SortEmail      SortKey = "email"
	SortRestricted SortKey = "restricted"
	SortCreatedAt  SortKey = "createdAt"
	SortNotesCount SortKey = "notesCount"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortName, SortEmail, SortRestricted, SortCreatedAt, SortNotesCount:
		return k, nil
	}
	return "", errs.New(errs.InvalidArgument, fmt.Sprintf("Unknown sort column %q", s))
}

// Table is the view state of the user table. The zero value sorts by name
// ascending with no search.
type Table struct {
	Search string
	Key    SortKey
	Desc   bool
}

// ToggleSort selects key. Selecting the current column again flips the
// direction; a new column starts ascending.
func (t *Table) ToggleSort(key SortKey) {
	if t.key() == key {
		t.Desc = !t.Desc
		return
	}
	t.Key = key
	t.Desc = false
}

func (t Table) key() SortKey {
	if t.Key == "" {
		return SortName
	}
	return t.Key
}

// Apply returns the rows to show: users matching Search, sorted.
func (t Table) Apply(users []model.AdminUser) []model.AdminUser {
	out := Filter(users, t.Search)
	Sort(out, t.key(), t.Desc)
	return out
}

// Filter keeps users whose name or email contains term, ignoring case.
func Filter(users []model.AdminUser, term string) []model.AdminUser {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]model.AdminUser, 0, len(users))
	for _, u := range users {
		if term == "" ||
			strings.Contains(strings.ToLower(u.Name), term) ||
			strings.Contains(strings.ToLower(u.Email), term) {
			out = append(out, u)
		}
	}
	return out
}

// Sort orders users in place by key. Strings compare without case; ties keep
// their input order.
func Sort(users []model.AdminUser, key SortKey, desc bool) {
	slices.SortStableFunc(users, func(a, b model.AdminUser) int {
		c := compare(a, b, key)
		if desc {
			return -c
		}
		return c
	})
}

func compare(a, b model.AdminUser, key SortKey) int {
	switch key {
	case SortEmail:
		return cmp.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
	case SortRestricted:
		return cmp.Compare(boolRank(a.Restricted), boolRank(b.Restricted))
	case SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt.Time)
	case SortNotesCount:
		return cmp.Compare(a.NotesCount, b.NotesCount)
	default:
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}

func boolRank(v bool) int {
	if v {
		return 1
	}
	return 0
}
