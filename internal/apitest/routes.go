package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kuitang/notes-client/internal/model"
)

func (b *Backend) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", b.handleRegister)
	mux.HandleFunc("POST /api/auth/login", b.handleLogin)

	mux.HandleFunc("GET /api/user/profile", b.authed(true, b.handleGetProfile))
	mux.HandleFunc("PUT /api/user/profile", b.authed(false, b.handleUpdateProfile))
	mux.HandleFunc("POST /api/user/upload-profile-pic", b.authed(false, b.handleUpload))

	mux.HandleFunc("GET /api/notes/user", b.authed(false, b.handleListNotes))
	mux.HandleFunc("GET /api/notes/share/{token}", b.handleSharedNote)
	mux.HandleFunc("GET /api/notes/{id}", b.authed(false, b.handleGetNote))
	mux.HandleFunc("POST /api/notes", b.authed(false, b.handleCreateNote))
	mux.HandleFunc("PUT /api/notes/{id}", b.authed(false, b.handleUpdateNote))
	mux.HandleFunc("DELETE /api/notes/{id}", b.authed(false, b.handleDeleteNote))
	mux.HandleFunc("POST /api/notes/{id}/share", b.authed(false, b.handleShareNote))

	mux.HandleFunc("GET /api/admin/stats", b.admin(b.handleStats))
	mux.HandleFunc("GET /api/admin/users", b.admin(b.handleListUsers))
	mux.HandleFunc("POST /api/admin/restrict/{id}", b.admin(b.handleRestrict))
	mux.HandleFunc("DELETE /api/admin/users/{id}", b.admin(b.handleDeleteUser))
	mux.HandleFunc("PUT /api/admin/users/{id}/role", b.admin(b.handleRole))

	return mux
}

type authedHandler func(w http.ResponseWriter, r *http.Request, me *account)

// authed resolves the bearer token. Restricted accounts may still read their
// own profile (that is how clients find out) but nothing else.
func (b *Backend) authed(allowRestricted bool, next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		b.mu.Lock()
		id, ok := b.tokens[token]
		acct := b.accounts[id]
		restricted := acct != nil && acct.user.Restricted
		b.mu.Unlock()
		if !ok || acct == nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if restricted && !allowRestricted {
			writeText(w, http.StatusForbidden, RestrictedActionMessage)
			return
		}
		next(w, r, acct)
	}
}

func (b *Backend) admin(next authedHandler) http.HandlerFunc {
	return b.authed(false, func(w http.ResponseWriter, r *http.Request, me *account) {
		if !me.user.Roles.Has(model.RoleAdmin) {
			writeMessage(w, http.StatusForbidden, "Access denied")
			return
		}
		next(w, r, me)
	})
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeText(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}

	b.mu.Lock()
	if _, taken := b.byEmail[strings.ToLower(req.Email)]; taken {
		b.mu.Unlock()
		writeText(w, http.StatusBadRequest, "Email already in use")
		return
	}
	u := b.addUserLocked(req.Name, req.Email, req.Password, model.Roles{model.RoleUser})
	tok := b.issueTokenLocked(u.ID)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"token": tok, "user": wireUserOf(u)})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	acct := b.accounts[b.byEmail[strings.ToLower(req.Email)]]
	var hash []byte
	var u model.User
	if acct != nil {
		hash, u = acct.passwordHash, acct.user
	}
	b.mu.Unlock()
	if acct == nil || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writeText(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if u.Restricted {
		writeText(w, http.StatusForbidden, RestrictedLoginMessage)
		return
	}

	b.mu.Lock()
	tok := b.issueTokenLocked(u.ID)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "user": wireUserOf(u)})
}

func (b *Backend) handleGetProfile(w http.ResponseWriter, _ *http.Request, me *account) {
	b.mu.Lock()
	u := me.user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, wireUserOf(u))
}

func (b *Backend) handleUpdateProfile(w http.ResponseWriter, r *http.Request, me *account) {
	var req model.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	if strings.TrimSpace(req.Name) != "" {
		me.user.Name = req.Name
	}
	me.user.Bio = req.Bio
	if req.ProfilePicture != "" {
		me.user.ProfilePicture = req.ProfilePicture
	}
	me.user.UpdatedAt = model.Time{Time: b.now().UTC()}
	u := me.user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, wireUserOf(u))
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request, me *account) {
	if err := r.ParseMultipartForm(5 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Could not read file")
		return
	}

	name := "/uploads/" + uuid.NewString() + "_" + header.Filename
	b.mu.Lock()
	b.uploads[name] = data
	me.user.ProfilePicture = name
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"profilePictureUrl": name})
}

// Upload returns the bytes stored under a profile picture URL.
func (b *Backend) Upload(url string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.uploads[url]
	return data, ok
}

func (b *Backend) handleListNotes(w http.ResponseWriter, _ *http.Request, me *account) {
	b.mu.Lock()
	stored := b.notesOfLocked(me.user.ID)
	out := make([]wireNote, len(stored))
	for i, n := range stored {
		out[i] = n.wire()
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleSharedNote(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.notes {
		if n.shareToken != "" && n.shareToken == token {
			writeJSON(w, http.StatusOK, n.wire())
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "Not found or not shared")
}

// ownedNoteLocked resolves {id} for me; it writes the 404 itself.
func (b *Backend) ownedNoteLocked(w http.ResponseWriter, r *http.Request, me *account) *storedNote {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err == nil {
		if n, ok := b.notes[id]; ok && n.owner == me.user.ID {
			return n
		}
	}
	writeMessage(w, http.StatusNotFound, "Note not found")
	return nil
}

func (b *Backend) handleGetNote(w http.ResponseWriter, r *http.Request, me *account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := b.ownedNoteLocked(w, r, me); n != nil {
		writeJSON(w, http.StatusOK, n.wire())
	}
}

type noteRequest struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	ShareToken *string `json:"shareToken"`
}

func decodeNote(w http.ResponseWriter, r *http.Request) (noteRequest, bool) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.Title) == "" {
		writeMessage(w, http.StatusBadRequest, "Title is required")
		return req, false
	}
	return req, true
}

func (b *Backend) handleCreateNote(w http.ResponseWriter, r *http.Request, me *account) {
	req, ok := decodeNote(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	n := b.addNoteLocked(me.user.ID, req.Title, req.Content, deref(req.ShareToken))
	out := n.wire()
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (b *Backend) handleUpdateNote(w http.ResponseWriter, r *http.Request, me *account) {
	req, ok := decodeNote(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.ownedNoteLocked(w, r, me)
	if n == nil {
		return
	}
	n.title = req.Title
	n.content = req.Content
	n.shareToken = deref(req.ShareToken)
	n.updatedAt = b.now().UTC()
	writeJSON(w, http.StatusOK, n.wire())
}

func (b *Backend) handleDeleteNote(w http.ResponseWriter, r *http.Request, me *account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.ownedNoteLocked(w, r, me)
	if n == nil {
		return
	}
	delete(b.notes, n.id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleShareNote(w http.ResponseWriter, r *http.Request, me *account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.ownedNoteLocked(w, r, me)
	if n == nil {
		return
	}
	n.shareToken = uuid.NewString()
	n.updatedAt = b.now().UTC()
	writeJSON(w, http.StatusOK, n.wire())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
