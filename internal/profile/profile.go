// Package profile edits the signed-in user's profile.
package profile

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/obs"
	"github.com/kuitang/notes-client/internal/session"
)

// DefaultAvatar is shown when a user has no picture.
const DefaultAvatar = "/default-avatar.png"

type API interface {
	UpdateProfile(ctx context.Context, in model.ProfileUpdate) (model.User, error)
	UploadProfilePicture(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Session is the part of session.Manager the service needs.
type Session interface {
	Snapshot() session.Snapshot
	SetUser(user model.User)
	RefreshProfile(ctx context.Context) error
}

// Picture is a new profile picture to upload.
type Picture struct {
	Filename string
	Data     io.Reader
}

// Update is an edit of the profile form. A nil Picture keeps the current one.
type Update struct {
	Name    string
	Bio     string
	Picture *Picture
}

type Service struct {
	api  API
	sess Session
}

func NewService(api API, sess Session) *Service {
	return &Service{api: api, sess: sess}
}

// Save uploads the picture if one was chosen, then writes the profile, then
// refreshes the session's copy from the server. A failed refresh falls back
// to the PUT response.
func (s *Service) Save(ctx context.Context, u Update) (model.User, error) {
	ctx = obs.WithOp(ctx, "profile.save")
	log := obs.From(ctx).With("pkg", "profile")

	snap := s.sess.Snapshot()
	if !snap.IsAuthenticated() {
		return model.User{}, errs.New(errs.Unauthenticated, "Not logged in")
	}
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return model.User{}, errs.New(errs.InvalidArgument, "Name is required")
	}

	picture := snap.User.ProfilePicture
	if u.Picture != nil {
		ref, err := s.api.UploadProfilePicture(ctx, u.Picture.Filename, u.Picture.Data)
		if err != nil {
			log.Info("profile_upload_failed", "error", err)
			return model.User{}, err
		}
		picture = ref
	}

	updated, err := s.api.UpdateProfile(ctx, model.ProfileUpdate{
		Name:           name,
		Bio:            u.Bio,
		ProfilePicture: picture,
	})
	if err != nil {
		log.Info("profile_update_failed", "error", err)
		return model.User{}, err
	}

	if err := s.sess.RefreshProfile(ctx); err != nil {
		log.Warn("profile_refresh_failed", "error", err)
		s.sess.SetUser(updated)
		return updated, nil
	}
	if fresh := s.sess.Snapshot().User; fresh != nil {
		return *fresh, nil
	}
	return updated, nil
}

// AvatarURL resolves a stored picture reference for display. Absolute, blob
// and data URLs pass through; anything else is joined to origin.
func AvatarURL(origin, ref string) string {
	if ref == "" {
		return DefaultAvatar
	}
	for _, prefix := range []string{"blob:", "data:", "http://", "https://"} {
		if strings.HasPrefix(ref, prefix) {
			return ref
		}
	}
	base, err := url.Parse(strings.TrimRight(origin, "/") + "/")
	if err != nil || origin == "" {
		return "/" + strings.TrimLeft(ref, "/")
	}
	return base.JoinPath(strings.TrimLeft(ref, "/")).String()
}

// DaysActive is the whole number of days since the account was created, at
// least 1.
func DaysActive(createdAt, now time.Time) int {
	if createdAt.IsZero() {
		return 1
	}
	return max(1, int(now.Sub(createdAt)/(24*time.Hour)))
}
