// Package admin wraps the admin endpoints behind a client-side role check
// and provides the user table's search and sort.
package admin

import (
	"context"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/obs"
)

type API interface {
	AdminStats(ctx context.Context) (model.AdminStats, error)
	AdminUsers(ctx context.Context) ([]model.AdminUser, error)
	RestrictUser(ctx context.Context, id model.ID, restrict bool) error
	DeleteUser(ctx context.Context, id model.ID) error
	SetRole(ctx context.Context, id model.ID, role model.Role, add bool) (model.RoleChange, error)
}

// Authorizer is satisfied by *session.Manager.
type Authorizer interface {
	IsAuthorized(roles ...model.Role) bool
}

var (
	ErrNotAdmin      = errs.New(errs.PermissionDenied, "Admin access required")
	ErrRestrictAdmin = errs.New(errs.InvalidArgument, "Cannot restrict admin user.")
)

type Service struct {
	api  API
	auth Authorizer
}

func NewService(api API, auth Authorizer) *Service {
	return &Service{api: api, auth: auth}
}

func (s *Service) check(ctx context.Context, op string) (context.Context, error) {
	ctx = obs.WithOp(ctx, op)
	if !s.auth.IsAuthorized(model.RoleAdmin) {
		obs.From(ctx).With("pkg", "admin").Info("admin_denied")
		return ctx, ErrNotAdmin
	}
	return ctx, nil
}

func (s *Service) Stats(ctx context.Context) (model.AdminStats, error) {
	ctx, err := s.check(ctx, "admin.stats")
	if err != nil {
		return model.AdminStats{}, err
	}
	return s.api.AdminStats(ctx)
}

func (s *Service) Users(ctx context.Context) ([]model.AdminUser, error) {
	ctx, err := s.check(ctx, "admin.users")
	if err != nil {
		return nil, err
	}
	return s.api.AdminUsers(ctx)
}

// Restrict sets the restricted flag of target. Restricting an admin is
// refused without a request.
func (s *Service) Restrict(ctx context.Context, target model.User, restrict bool) error {
	ctx, err := s.check(ctx, "admin.restrict")
	if err != nil {
		return err
	}
	if restrict && target.IsAdmin() {
		return ErrRestrictAdmin
	}
	return s.api.RestrictUser(ctx, target.ID, restrict)
}

// Delete removes a user and all their notes.
func (s *Service) Delete(ctx context.Context, id model.ID) error {
	ctx, err := s.check(ctx, "admin.delete")
	if err != nil {
		return err
	}
	return s.api.DeleteUser(ctx, id)
}

// Promote grants the admin role.
func (s *Service) Promote(ctx context.Context, id model.ID) (model.Roles, error) {
	return s.setAdmin(ctx, id, true)
}

// Demote revokes the admin role.
func (s *Service) Demote(ctx context.Context, id model.ID) (model.Roles, error) {
	return s.setAdmin(ctx, id, false)
}

func (s *Service) setAdmin(ctx context.Context, id model.ID, add bool) (model.Roles, error) {
	ctx, err := s.check(ctx, "admin.role")
	if err != nil {
		return nil, err
	}
	res, err := s.api.SetRole(ctx, id, model.RoleAdmin, add)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errs.New(errs.Internal, "Role update failed")
	}
	return res.Roles, nil
}
