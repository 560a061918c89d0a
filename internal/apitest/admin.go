package apitest

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/kuitang/notes-client/internal/model"
)

func (b *Backend) adminUsersLocked() []wireAdminUser {
	counts := make(map[model.ID]int)
	for _, n := range b.notes {
		counts[n.owner]++
	}
	out := make([]wireAdminUser, 0, len(b.accounts))
	for _, acct := range b.accounts {
		out = append(out, wireAdminUser{wireUser: wireUserOf(acct.user), NotesCount: counts[acct.user.ID]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (b *Backend) handleStats(w http.ResponseWriter, _ *http.Request, _ *account) {
	b.mu.Lock()
	defer b.mu.Unlock()

	users := b.adminUsersLocked()
	admins, restricted := 0, 0
	for _, acct := range b.accounts {
		if acct.user.Roles.Has(model.RoleAdmin) {
			admins++
		}
		if acct.user.Restricted {
			restricted++
		}
	}
	recent := users
	if len(recent) > 5 {
		recent = recent[:5]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalUsers":      len(b.accounts),
		"totalAdmins":     admins,
		"totalNotes":      len(b.notes),
		"restrictedUsers": restricted,
		"recentUsers":     recent,
	})
}

func (b *Backend) handleListUsers(w http.ResponseWriter, _ *http.Request, _ *account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.adminUsersLocked())
}

func (b *Backend) targetLocked(w http.ResponseWriter, r *http.Request) *account {
	acct, ok := b.accounts[model.ParseID(r.PathValue("id"))]
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return nil
	}
	return acct
}

func (b *Backend) handleRestrict(w http.ResponseWriter, r *http.Request, _ *account) {
	restrict, err := strconv.ParseBool(r.URL.Query().Get("restrict"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "restrict must be true or false")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	target := b.targetLocked(w, r)
	if target == nil {
		return
	}
	if restrict && target.user.Roles.Has(model.RoleAdmin) {
		writeMessage(w, http.StatusBadRequest, "Cannot restrict admin user")
		return
	}
	target.user.Restricted = restrict
	w.WriteHeader(http.StatusOK)
}

func (b *Backend) handleDeleteUser(w http.ResponseWriter, r *http.Request, _ *account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	target := b.targetLocked(w, r)
	if target == nil {
		return
	}
	id := target.user.ID
	for nid, n := range b.notes {
		if n.owner == id {
			delete(b.notes, nid)
		}
	}
	for tok, owner := range b.tokens {
		if owner == id {
			delete(b.tokens, tok)
		}
	}
	for email, owner := range b.byEmail {
		if owner == id {
			delete(b.byEmail, email)
		}
	}
	delete(b.accounts, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleRole(w http.ResponseWriter, r *http.Request, _ *account) {
	role := model.Role(r.URL.Query().Get("role"))
	add, err := strconv.ParseBool(r.URL.Query().Get("add"))
	if err != nil || !role.Known() {
		writeMessage(w, http.StatusBadRequest, "Invalid role change")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	target := b.targetLocked(w, r)
	if target == nil {
		return
	}
	if add {
		target.user.Roles = target.user.Roles.With(role)
	} else {
		target.user.Roles = target.user.Roles.Without(role)
	}
	roles := make([]string, 0, len(target.user.Roles))
	for _, rr := range target.user.Roles {
		roles = append(roles, string(rr))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "roles": roles})
}
