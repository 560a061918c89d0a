package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kuitang/notes-client/internal/model"
)

func (c *Client) AdminStats(ctx context.Context) (model.AdminStats, error) {
	var out model.AdminStats
	err := c.doJSON(ctx, http.MethodGet, "/admin/stats", nil, &out)
	return out, err
}

func (c *Client) AdminUsers(ctx context.Context) ([]model.AdminUser, error) {
	var out []model.AdminUser
	if err := c.doJSON(ctx, http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RestrictUser sets or clears the restricted flag of a user.
func (c *Client) RestrictUser(ctx context.Context, id model.ID, restrict bool) error {
	q := url.Values{"restrict": {strconv.FormatBool(restrict)}}
	return c.doJSON(ctx, http.MethodPost, "/admin/restrict/"+url.PathEscape(id.String())+"?"+q.Encode(), nil, nil)
}

// DeleteUser removes a user and all of their notes.
func (c *Client) DeleteUser(ctx context.Context, id model.ID) error {
	return c.doJSON(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id.String()), nil, nil)
}

// SetRole adds (add=true) or removes a role.
func (c *Client) SetRole(ctx context.Context, id model.ID, role model.Role, add bool) (model.RoleChange, error) {
	q := url.Values{"role": {string(role)}, "add": {strconv.FormatBool(add)}}
	var out model.RoleChange
	err := c.doJSON(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id.String())+"/role?"+q.Encode(), nil, &out)
	return out, err
}
