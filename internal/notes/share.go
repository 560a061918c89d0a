package notes

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/urlutil"
)

// NewShareToken mints a random share token for a note about to be shared.
func NewShareToken() string {
	return uuid.NewString()
}

// ShareURL is the public link for token under origin.
func ShareURL(origin, token string) string {
	return urlutil.BuildAbsolute(origin, "/share/"+url.PathEscape(token))
}

// Filter returns the notes whose title or content contains query, ignoring
// case, in their original order. An empty query matches everything.
func Filter(notes []model.Note, query string) []model.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Note, 0, len(notes))
	for _, n := range notes {
		if q == "" ||
			strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Content), q) {
			out = append(out, n)
		}
	}
	return out
}
