package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kuitang/notes-client/internal/model"
)

func notePath(id model.ID) string {
	return "/notes/" + url.PathEscape(id.String())
}

// ListNotes returns the current user's notes.
func (c *Client) ListNotes(ctx context.Context) ([]model.Note, error) {
	var out []model.Note
	if err := c.doJSON(ctx, http.MethodGet, "/notes/user", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Note{}
	}
	return out, nil
}

func (c *Client) GetNote(ctx context.Context, id model.ID) (model.Note, error) {
	var out model.Note
	err := c.doJSON(ctx, http.MethodGet, notePath(id), nil, &out)
	return out, err
}

// GetSharedNote looks a note up by its public share token.
func (c *Client) GetSharedNote(ctx context.Context, token string) (model.Note, error) {
	var out model.Note
	err := c.doJSON(ctx, http.MethodGet, "/notes/share/"+url.PathEscape(token), nil, &out)
	return out, err
}

func (c *Client) CreateNote(ctx context.Context, in model.NoteInput) (model.Note, error) {
	var out model.Note
	err := c.doJSON(ctx, http.MethodPost, "/notes", in, &out)
	return out, err
}

func (c *Client) UpdateNote(ctx context.Context, id model.ID, in model.NoteInput) (model.Note, error) {
	var out model.Note
	err := c.doJSON(ctx, http.MethodPut, notePath(id), in, &out)
	return out, err
}

func (c *Client) DeleteNote(ctx context.Context, id model.ID) error {
	return c.doJSON(ctx, http.MethodDelete, notePath(id), nil, nil)
}

// ShareNote asks the server to mint or rotate the note's share token.
func (c *Client) ShareNote(ctx context.Context, id model.ID) (model.Note, error) {
	var out model.Note
	err := c.doJSON(ctx, http.MethodPost, notePath(id)+"/share", nil, &out)
	return out, err
}
