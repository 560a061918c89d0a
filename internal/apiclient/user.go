package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
)

// GetProfile fetches the profile of the token holder.
func (c *Client) GetProfile(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.doJSON(ctx, http.MethodGet, "/user/profile", nil, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, in model.ProfileUpdate) (model.User, error) {
	var out model.User
	err := c.doJSON(ctx, http.MethodPut, "/user/profile", in, &out)
	return out, err
}

type uploadResponse struct {
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// UploadProfilePicture sends r as the multipart field "file" and returns the
// stored picture URL.
func (c *Client) UploadProfilePicture(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "", fmt.Errorf("create form file: %w", err))
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", errs.Wrap(errs.InvalidArgument, "", fmt.Errorf("read %s: %w", filename, err))
	}
	if err := w.Close(); err != nil {
		return "", errs.Wrap(errs.Internal, "", fmt.Errorf("close multipart body: %w", err))
	}

	var out uploadResponse
	if err := c.do(ctx, http.MethodPost, "/user/upload-profile-pic", &buf, w.FormDataContentType(), &out); err != nil {
		return "", err
	}
	if out.ProfilePictureURL == "" {
		return "", errs.New(errs.Internal, "Upload failed")
	}
	return out.ProfilePictureURL, nil
}
