package notes

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
)

// fakeAPI is an in-memory notes server. Setting fail makes the next call
// return that error.
type fakeAPI struct {
	mu    sync.Mutex
	notes []model.Note
	next  int
	calls int
	fail  error

	// hook, when set, runs inside every call before it answers.
	hook func(op string, id model.ID)
}

func (f *fakeAPI) enter(op string, id model.ID) error {
	f.mu.Lock()
	f.calls++
	err := f.fail
	f.fail = nil
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(op, id)
	}
	return err
}

func (f *fakeAPI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAPI) FailNext(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeAPI) ListNotes(context.Context) ([]model.Note, error) {
	if err := f.enter("list", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Note{}, f.notes...), nil
}

func (f *fakeAPI) find(id model.ID) int {
	for i, n := range f.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) GetNote(_ context.Context, id model.ID) (model.Note, error) {
	if err := f.enter("get", id); err != nil {
		return model.Note{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.find(id); i >= 0 {
		return f.notes[i], nil
	}
	return model.Note{}, errs.FromResponse(http.StatusNotFound, "Note not found")
}

func (f *fakeAPI) GetSharedNote(_ context.Context, token string) (model.Note, error) {
	if err := f.enter("shared", ""); err != nil {
		return model.Note{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notes {
		if n.ShareToken != "" && n.ShareToken == token {
			return n, nil
		}
	}
	return model.Note{}, errs.FromResponse(http.StatusNotFound, "Not found or not shared")
}

func (f *fakeAPI) CreateNote(_ context.Context, in model.NoteInput) (model.Note, error) {
	if err := f.enter("create", ""); err != nil {
		return model.Note{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	n := model.Note{ID: model.ID(strconv.Itoa(f.next)), Title: in.Title, Content: in.Content}
	if in.ShareToken != nil {
		n.ShareToken = *in.ShareToken
	}
	f.notes = append([]model.Note{n}, f.notes...)
	return n, nil
}

func (f *fakeAPI) UpdateNote(_ context.Context, id model.ID, in model.NoteInput) (model.Note, error) {
	if err := f.enter("update", id); err != nil {
		return model.Note{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return model.Note{}, errs.FromResponse(http.StatusNotFound, "Note not found")
	}
	f.notes[i].Title = in.Title
	f.notes[i].Content = in.Content
	f.notes[i].ShareToken = ""
	if in.ShareToken != nil {
		f.notes[i].ShareToken = *in.ShareToken
	}
	return f.notes[i], nil
}

func (f *fakeAPI) DeleteNote(_ context.Context, id model.ID) error {
	if err := f.enter("delete", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return errs.FromResponse(http.StatusNotFound, "Note not found")
	}
	f.notes = append(f.notes[:i], f.notes[i+1:]...)
	return nil
}

func (f *fakeAPI) ShareNote(_ context.Context, id model.ID) (model.Note, error) {
	if err := f.enter("share", id); err != nil {
		return model.Note{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(id)
	if i < 0 {
		return model.Note{}, errs.FromResponse(http.StatusNotFound, "Note not found")
	}
	f.notes[i].ShareToken = NewShareToken()
	return f.notes[i], nil
}

// heldAPI lets the server side of each call run at once but holds the answer
// until the test closes the gate published on held, so responses can be made
// to land in any order while the server saw requests in issue order.
type heldAPI struct {
	*fakeAPI
	held chan chan struct{}
}

func newHeldAPI() *heldAPI {
	return &heldAPI{fakeAPI: &fakeAPI{}, held: make(chan chan struct{}, 16)}
}

func (h *heldAPI) hold() {
	gate := make(chan struct{})
	h.held <- gate
	<-gate
}

func (h *heldAPI) ListNotes(ctx context.Context) ([]model.Note, error) {
	list, err := h.fakeAPI.ListNotes(ctx)
	h.hold()
	return list, err
}

func (h *heldAPI) GetNote(ctx context.Context, id model.ID) (model.Note, error) {
	n, err := h.fakeAPI.GetNote(ctx, id)
	h.hold()
	return n, err
}

func (h *heldAPI) UpdateNote(ctx context.Context, id model.ID, in model.NoteInput) (model.Note, error) {
	n, err := h.fakeAPI.UpdateNote(ctx, id, in)
	h.hold()
	return n, err
}

func (h *heldAPI) DeleteNote(ctx context.Context, id model.ID) error {
	err := h.fakeAPI.DeleteNote(ctx, id)
	h.hold()
	return err
}

func (h *heldAPI) ShareNote(ctx context.Context, id model.ID) (model.Note, error) {
	n, err := h.fakeAPI.ShareNote(ctx, id)
	h.hold()
	return n, err
}

func (s *Store) pendingLanes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}
