package apitest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kuitang/notes-client/internal/model"
)

// localDateTime mimics the server's zone-less timestamp format.
const localDateTime = "2006-01-02T15:04:05.999999"

func formatNoteID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// wireNote is the server's JSON shape: numeric id, zone-less timestamps.
type wireNote struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	ShareToken *string `json:"shareToken"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

func (n *storedNote) wire() wireNote {
	w := wireNote{
		ID:        n.id,
		Title:     n.title,
		Content:   n.content,
		CreatedAt: n.createdAt.Format(localDateTime),
		UpdatedAt: n.updatedAt.Format(localDateTime),
	}
	if n.shareToken != "" {
		tok := n.shareToken
		w.ShareToken = &tok
	}
	return w
}

type wireUser struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Bio            string   `json:"bio"`
	Roles          []string `json:"roles"`
	Restricted     bool     `json:"restricted"`
	ProfilePicture string   `json:"profilePicture"`
	Provider       string   `json:"provider"`
	CreatedAt      string   `json:"createdAt"`
}

func wireUserOf(u model.User) wireUser {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return wireUser{
		ID:             u.ID.String(),
		Name:           u.Name,
		Email:          u.Email,
		Bio:            u.Bio,
		Roles:          roles,
		Restricted:     u.Restricted,
		ProfilePicture: u.ProfilePicture,
		Provider:       u.Provider,
		CreatedAt:      u.CreatedAt.Format(localDateTime),
	}
}

type wireAdminUser struct {
	wireUser
	NotesCount int `json:"notesCount"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeText answers with a bare string body, the way the server reports
// auth failures.
func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// writeMessage answers with {"message": msg, "status": status, "timestamp": ...}.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"message":   msg,
		"status":    status,
		"timestamp": time.Now().UTC().Format(localDateTime),
	})
}
