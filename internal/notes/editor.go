package notes

import (
	"context"

	"github.com/kuitang/notes-client/internal/model"
)

// Editor is the form state behind creating or editing a note.
//
// Checking Shared keeps the note's existing token or mints one the first time
// Input is called; unchecking it sends a null token, which unshares the note.
type Editor struct {
	Title   string
	Content string
	Shared  bool

	id    model.ID
	token string
}

// NewEditor starts a blank note; defaultShare seeds the share checkbox.
func NewEditor(defaultShare bool) *Editor {
	return &Editor{Shared: defaultShare}
}

// EditNote starts an editor on an existing note.
func EditNote(n model.Note) *Editor {
	return &Editor{
		Title:   n.Title,
		Content: n.Content,
		Shared:  n.IsShared(),
		id:      n.ID,
		token:   n.ShareToken,
	}
}

// IsNew reports whether saving will create a note.
func (e *Editor) IsNew() bool {
	return e.id.IsZero()
}

// Input builds the request body for the current form state.
func (e *Editor) Input() model.NoteInput {
	in := model.NoteInput{Title: e.Title, Content: e.Content}
	if e.Shared {
		if e.token == "" {
			e.token = NewShareToken()
		}
		in.ShareToken = model.ShareToken(e.token)
	}
	return in
}

// Save creates or updates the note through s. On failure the form state is
// kept so the caller can retry.
func (e *Editor) Save(ctx context.Context, s *Store) (model.Note, error) {
	in := e.Input()
	var (
		note model.Note
		err  error
	)
	if e.IsNew() {
		note, err = s.CreateNote(ctx, in)
	} else {
		note, err = s.UpdateNote(ctx, e.id, in)
	}
	if err != nil {
		return model.Note{}, err
	}
	e.id = note.ID
	e.token = note.ShareToken
	return note, nil
}
