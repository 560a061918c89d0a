package apiclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/kuitang/notes-client/internal/apitest"
	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
)

func newTestClient(t *testing.T, b *apitest.Backend, token string) *Client {
	t.Helper()
	cfg := Config{BaseURL: b.BaseURL, Timeout: 2 * time.Second}
	if token != "" {
		cfg.Tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}
	return New(cfg)
}

func TestClient_BearerHeaderOnlyWhenTokenHeld(t *testing.T) {
	b := apitest.Start(t)
	var mu sync.Mutex
	var seen []string
	b.Intercept(func(w http.ResponseWriter, r *http.Request) bool {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		return false
	})

	anon := newTestClient(t, b, "")
	_, err := anon.GetSharedNote(context.Background(), "nope")
	require.Error(t, err)

	u := b.AddUser("Ada", "ada@example.com", "secret1")
	tok := b.IssueToken(u.ID)
	authed := newTestClient(t, b, tok)
	_, err = authed.ListNotes(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"", "Bearer " + tok}, seen)
}

func TestClient_UnauthorizedHookGetsSentToken(t *testing.T) {
	b := apitest.Start(t)
	u := b.AddUser("Ada", "ada@example.com", "secret1")
	tok := b.IssueToken(u.ID)
	b.RevokeToken(tok)

	c := newTestClient(t, b, tok)
	var got []string
	c.SetUnauthorizedHook(func(sent string) { got = append(got, sent) })

	_, err := c.GetProfile(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.Unauthenticated, errs.CodeOf(err))
	assert.Equal(t, []string{tok}, got)
}

func TestClient_NoteIDsIngestedFromNumbers(t *testing.T) {
	b := apitest.Start(t)
	u := b.AddUser("Ada", "ada@example.com", "secret1")
	c := newTestClient(t, b, b.IssueToken(u.ID))
	ctx := context.Background()

	created, err := c.CreateNote(ctx, model.NoteInput{Title: "first", Content: "x"})
	require.NoError(t, err)
	require.Equal(t, model.ID("1"), created.ID)
	require.False(t, created.CreatedAt.IsZero())

	fetched, err := c.GetNote(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, fetched.ID)

	shared, err := c.ShareNote(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, shared.IsShared())

	public, err := newTestClient(t, b, "").GetSharedNote(ctx, shared.ShareToken)
	require.NoError(t, err)
	require.Equal(t, "first", public.Title)

	require.NoError(t, c.DeleteNote(ctx, created.ID))
	_, err = c.GetNote(ctx, created.ID)
	require.True(t, errs.Is(err, errs.NotFound))
	require.Equal(t, "Note not found", errs.UserMessage(err))
}

func TestClient_RestrictedLoginIsDistinguished(t *testing.T) {
	b := apitest.Start(t)
	u := b.AddUser("Ada", "ada@example.com", "secret1")
	b.SetRestricted(u.ID, true)

	_, err := newTestClient(t, b, "").Login(context.Background(), "ada@example.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, errs.Restricted, errs.CodeOf(err))
	assert.Equal(t, http.StatusForbidden, errs.StatusOf(err))
	assert.Equal(t, apitest.RestrictedLoginMessage, errs.UserMessage(err))
}

func TestClient_TimeoutMessage(t *testing.T) {
	b := apitest.Start(t)
	release := make(chan struct{})
	defer close(release)
	b.Intercept(func(w http.ResponseWriter, r *http.Request) bool {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		return true
	})

	c := New(Config{BaseURL: b.BaseURL, Timeout: 50 * time.Millisecond})
	_, err := c.ListNotes(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.Unavailable, errs.CodeOf(err))
	assert.Equal(t, "timeout of 50ms exceeded", errs.UserMessage(err))
}

func TestClient_UploadProfilePicture(t *testing.T) {
	b := apitest.Start(t)
	u := b.AddUser("Ada", "ada@example.com", "secret1")
	c := newTestClient(t, b, b.IssueToken(u.ID))

	url, err := c.UploadProfilePicture(context.Background(), "me.png", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/uploads/"))

	data, ok := b.Upload(url)
	require.True(t, ok)
	require.Equal(t, "PNGDATA", string(data))
}

func TestClient_AdminRoundTrip(t *testing.T) {
	b := apitest.Start(t)
	admin := b.AddUser("Root", "root@example.com", "secret1", model.RoleUser, model.RoleAdmin)
	user := b.AddUser("Ada", "ada@example.com", "secret1")
	b.AddNote(user.ID, "n", "", "")
	c := newTestClient(t, b, b.IssueToken(admin.ID))
	ctx := context.Background()

	stats, err := c.AdminStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalUsers)
	require.Equal(t, 1, stats.TotalAdmins)
	require.Equal(t, 1, stats.TotalNotes)

	change, err := c.SetRole(ctx, user.ID, model.RoleAdmin, true)
	require.NoError(t, err)
	require.True(t, change.Success)
	require.True(t, change.Roles.Has(model.RoleAdmin))

	require.NoError(t, c.RestrictUser(ctx, admin.ID, false))
	require.NoError(t, c.DeleteUser(ctx, user.ID))

	users, err := c.AdminUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, admin.ID, users[0].ID)
}

func TestServerMessage(t *testing.T) {
	cases := []struct {
		name, contentType, body, want string
	}{
		{"message field", "application/json", `{"message":"Title is required","error":"Bad Request"}`, "Title is required"},
		{"error field", "application/json", `{"error":"Forbidden"}`, "Forbidden"},
		{"object without text", "application/json", `{"status":500}`, ""},
		{"json string", "application/json", `"Account restricted"`, "Account restricted"},
		{"plain text", "text/plain", "Account restricted\n", "Account restricted"},
		{"html page", "text/html", "<html><body>502</body></html>", ""},
		{"empty", "", "  ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ServerMessage(tc.contentType, []byte(tc.body)))
		})
	}
}
