package profile

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-client/internal/apiclient"
	"github.com/kuitang/notes-client/internal/apitest"
	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/kv"
	"github.com/kuitang/notes-client/internal/session"
)

type harness struct {
	backend *apitest.Backend
	mgr     *session.Manager
	svc     *Service
}

func signedIn(t *testing.T) *harness {
	t.Helper()
	b := apitest.Start(t)
	client := apiclient.New(apiclient.Config{BaseURL: b.BaseURL, Timeout: 2 * time.Second})
	mgr := session.New(client, kv.NewMemory())
	client.SetTokenSource(mgr.TokenSource())
	client.SetUnauthorizedHook(mgr.HandleUnauthorized)

	b.AddUser("Ada", "ada@example.com", "secret1")
	res := mgr.Login(context.Background(), "ada@example.com", "secret1")
	require.True(t, res.OK, res.Message)
	return &harness{backend: b, mgr: mgr, svc: NewService(client, mgr)}
}

func TestSave_UploadsThenUpdatesThenRefreshes(t *testing.T) {
	h := signedIn(t)
	before := len(h.backend.Requests())

	got, err := h.svc.Save(context.Background(), Update{
		Name:    "  Ada L.  ",
		Bio:     "Counts things",
		Picture: &Picture{Filename: "me.png", Data: strings.NewReader("png-bytes")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"POST /api/user/upload-profile-pic",
		"PUT /api/user/profile",
		"GET /api/user/profile",
	}, h.backend.Requests()[before:])

	assert.Equal(t, "Ada L.", got.Name)
	assert.Equal(t, "Counts things", got.Bio)
	data, ok := h.backend.Upload(got.ProfilePicture)
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))

	snap := h.mgr.Snapshot()
	assert.Equal(t, "Ada L.", snap.User.Name)
	assert.Equal(t, got.ProfilePicture, snap.User.ProfilePicture)
}

func TestSave_KeepsPictureWithoutUpload(t *testing.T) {
	h := signedIn(t)
	_, err := h.svc.Save(context.Background(), Update{
		Name:    "Ada",
		Picture: &Picture{Filename: "a.png", Data: strings.NewReader("a")},
	})
	require.NoError(t, err)
	pic := h.mgr.Snapshot().User.ProfilePicture

	got, err := h.svc.Save(context.Background(), Update{Name: "Ada", Bio: "new bio"})
	require.NoError(t, err)
	assert.Equal(t, pic, got.ProfilePicture)
	assert.Equal(t, "new bio", got.Bio)
}

func TestSave_UploadFailureSkipsUpdate(t *testing.T) {
	h := signedIn(t)
	h.backend.FailNext(http.MethodPost, "/user/upload-profile-pic", http.StatusRequestEntityTooLarge, "File too large")
	before := len(h.backend.Requests())

	_, err := h.svc.Save(context.Background(), Update{
		Name:    "Ada",
		Picture: &Picture{Filename: "big.png", Data: strings.NewReader("x")},
	})
	require.Error(t, err)
	assert.Equal(t, "File too large", errs.UserMessage(err))
	assert.Len(t, h.backend.Requests()[before:], 1)
}

func TestSave_RefreshFailureFallsBackToPutResponse(t *testing.T) {
	h := signedIn(t)
	h.backend.FailNext(http.MethodGet, "/user/profile", http.StatusServiceUnavailable, "")

	got, err := h.svc.Save(context.Background(), Update{Name: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "Renamed", h.mgr.Snapshot().User.Name)
}

func TestSave_Validation(t *testing.T) {
	h := signedIn(t)
	before := len(h.backend.Requests())
	_, err := h.svc.Save(context.Background(), Update{Name: "   "})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	assert.Len(t, h.backend.Requests(), before)

	h.mgr.Logout()
	_, err = h.svc.Save(context.Background(), Update{Name: "Ada"})
	assert.True(t, errs.Is(err, errs.Unauthenticated))
}

func TestAvatarURL(t *testing.T) {
	t.Parallel()
	origin := "http://localhost:8080"
	cases := map[string]string{
		"":                          DefaultAvatar,
		"data:image/png;base64,AAA": "data:image/png;base64,AAA",
		"blob:abc":                  "blob:abc",
		"https://cdn.example/a.png": "https://cdn.example/a.png",
		"/uploads/a.png":            "http://localhost:8080/uploads/a.png",
		"uploads/a.png":             "http://localhost:8080/uploads/a.png",
	}
	for ref, want := range cases {
		assert.Equal(t, want, AvatarURL(origin, ref), ref)
	}
	assert.Equal(t, "/uploads/a.png", AvatarURL("", "uploads/a.png"))
}

func TestDaysActive(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysActive(time.Time{}, now))
	assert.Equal(t, 1, DaysActive(now.Add(-time.Hour), now))
	assert.Equal(t, 9, DaysActive(now.AddDate(0, 0, -9), now))
}

var _ Session = (*session.Manager)(nil)
