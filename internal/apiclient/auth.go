package apiclient

import (
	"context"
	"net/http"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. The response must carry both a token and a
// user; anything less is reported as an error.
func (c *Client) Register(ctx context.Context, name, email, password string) (model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", registerRequest{Name: name, Email: email, Password: password}, &out); err != nil {
		return model.AuthResponse{}, err
	}
	return out, checkAuthResponse(out)
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return model.AuthResponse{}, err
	}
	return out, checkAuthResponse(out)
}

func checkAuthResponse(out model.AuthResponse) error {
	if out.Token == "" || out.User == nil {
		return errs.New(errs.Internal, "Invalid response from server")
	}
	return nil
}
