// Package notes keeps a local cache of the user's notes consistent with the
// server.
//
// All changes go through Reduce. Store runs the API call for an operation and
// then dispatches the follow-up action built from the server's response, so
// the cache only ever holds what the server returned.
package notes

import (
	"context"
	"strings"
	"sync"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/obs"
)

// API is the part of the API client the store needs.
type API interface {
	ListNotes(ctx context.Context) ([]model.Note, error)
	GetNote(ctx context.Context, id model.ID) (model.Note, error)
	GetSharedNote(ctx context.Context, token string) (model.Note, error)
	CreateNote(ctx context.Context, in model.NoteInput) (model.Note, error)
	UpdateNote(ctx context.Context, id model.ID, in model.NoteInput) (model.Note, error)
	DeleteNote(ctx context.Context, id model.ID) error
	ShareNote(ctx context.Context, id model.ID) (model.Note, error)
}

// ErrTitleRequired is returned by CreateNote for a blank title.
var ErrTitleRequired = errs.New(errs.InvalidArgument, "Title is required")

// Store is the effect executor around Reduce. It is safe for concurrent use.
//
// Loading is true while any operation is in flight. Responses are ordered by
// lane. Mutations of one note share a lane: a response is applied only when
// it answers a request issued after the last one applied, so a late answer to
// an older request never overwrites a newer one, while a newer request that
// fails does not hide an older success. LoadNotes and GetNoteByID each have a
// lane of their own, and a read issued before a mutation response was applied
// does not overwrite that mutation. ResetState starts a new epoch; responses
// to requests issued before it are discarded.
type Store struct {
	api API

	mu       sync.Mutex
	state    State
	inflight int
	epoch    uint64
	notes    map[model.ID]*lane
	lists    lane
	selects  lane
	writes   uint64

	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     []subscriber
	nextSub  int
}

type subscriber struct {
	id int
	fn func(State)
}

// lane orders the responses to requests that touch the same part of the
// state. Per-note lanes are dropped once nothing is pending on them.
type lane struct {
	issued  uint64
	applied uint64
	writes  uint64
	pending int
}

type opKind int

const (
	opOther opKind = iota
	opCreate
	opMutate
	opList
	opGet
)

// ticket identifies one in-flight operation.
type ticket struct {
	epoch  uint64
	kind   opKind
	id     model.ID
	seq    uint64
	writes uint64
}

func NewStore(api API) *Store {
	return &Store{
		api:   api,
		notes: make(map[model.ID]*lane),
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe calls fn with the new state after every change. Deliveries are
// serialized. fn may call cancel or Subscribe, but no Store operation other
// than State.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// LoadNotes replaces the cache with the server's list. On failure the cache
// is kept, Error is set and an empty slice is returned. When a mutation
// response was applied while the list was in flight, the list is returned but
// the cache is left alone, since the list may predate that mutation.
func (s *Store) LoadNotes(ctx context.Context) []model.Note {
	ctx = obs.WithOp(ctx, "notes.load")
	t := s.begin(opList, "")
	list, err := s.api.ListNotes(ctx)
	if err != nil {
		s.fail(ctx, t, err)
		return []model.Note{}
	}
	s.finish(t, SetNotes{Notes: list})
	return append([]model.Note{}, list...)
}

// CreateNote validates in, creates the note and prepends it.
func (s *Store) CreateNote(ctx context.Context, in model.NoteInput) (model.Note, error) {
	ctx = obs.WithOp(ctx, "notes.create")
	if strings.TrimSpace(in.Title) == "" {
		s.dispatch(SetError{Message: errs.UserMessage(ErrTitleRequired)})
		return model.Note{}, ErrTitleRequired
	}
	t := s.begin(opCreate, "")
	note, err := s.api.CreateNote(ctx, in)
	if err != nil {
		s.fail(ctx, t, err)
		return model.Note{}, err
	}
	s.finish(t, AddNote{Note: note})
	return note, nil
}

// UpdateNote replaces the note in place with the server's version.
func (s *Store) UpdateNote(ctx context.Context, id model.ID, in model.NoteInput) (model.Note, error) {
	ctx = obs.WithOp(ctx, "notes.update")
	if strings.TrimSpace(in.Title) == "" {
		s.dispatch(SetError{Message: errs.UserMessage(ErrTitleRequired)})
		return model.Note{}, ErrTitleRequired
	}
	t := s.begin(opMutate, id)
	note, err := s.api.UpdateNote(ctx, id, in)
	if err != nil {
		s.fail(ctx, t, err)
		return model.Note{}, err
	}
	s.finish(t, UpdateNote{Note: note})
	return note, nil
}

// ShareNote has the server mint a new share token for the note.
func (s *Store) ShareNote(ctx context.Context, id model.ID) (model.Note, error) {
	ctx = obs.WithOp(ctx, "notes.share")
	t := s.begin(opMutate, id)
	note, err := s.api.ShareNote(ctx, id)
	if err != nil {
		s.fail(ctx, t, err)
		return model.Note{}, err
	}
	s.finish(t, UpdateNote{Note: note})
	return note, nil
}

// DeleteNote removes the note once the server confirms.
func (s *Store) DeleteNote(ctx context.Context, id model.ID) error {
	ctx = obs.WithOp(ctx, "notes.delete")
	t := s.begin(opMutate, id)
	if err := s.api.DeleteNote(ctx, id); err != nil {
		s.fail(ctx, t, err)
		return err
	}
	s.finish(t, DeleteNote{ID: id})
	return nil
}

// GetNoteByID fetches one note and makes it the selected note. When a
// mutation of the note was applied while the fetch was in flight, the cached
// copy is selected instead of the response.
func (s *Store) GetNoteByID(ctx context.Context, id model.ID) (model.Note, error) {
	ctx = obs.WithOp(ctx, "notes.get")
	t := s.begin(opGet, id)
	note, err := s.api.GetNote(ctx, id)
	if err != nil {
		s.fail(ctx, t, err)
		return model.Note{}, err
	}
	s.finish(t, SetSelected{Note: &note})
	return note, nil
}

// GetSharedNote looks a note up by share token. The viewer may not own it, so
// neither Notes nor Selected is touched.
func (s *Store) GetSharedNote(ctx context.Context, token string) (model.Note, error) {
	ctx = obs.WithOp(ctx, "notes.shared")
	t := s.begin(opOther, "")
	note, err := s.api.GetSharedNote(ctx, token)
	if err != nil {
		s.fail(ctx, t, err)
		return model.Note{}, err
	}
	s.finish(t)
	return note, nil
}

func (s *Store) ClearError() {
	s.dispatch(ClearError{})
}

// ResetState empties the cache. Responses still in flight are dropped.
func (s *Store) ResetState() {
	s.mu.Lock()
	s.epoch++
	s.inflight = 0
	s.notes = make(map[model.ID]*lane)
	s.lists = lane{}
	s.selects = lane{}
	s.writes = 0
	s.state = Reduce(s.state, Reset{})
	s.mu.Unlock()
	s.notify()
}

func (s *Store) begin(kind opKind, id model.ID) ticket {
	s.mu.Lock()
	t := ticket{epoch: s.epoch, kind: kind, id: id}
	switch kind {
	case opMutate:
		l := s.noteLane(id)
		l.issued++
		l.pending++
		t.seq = l.issued
	case opGet:
		l := s.noteLane(id)
		l.pending++
		t.writes = l.writes
		s.selects.issued++
		t.seq = s.selects.issued
	case opList:
		s.lists.issued++
		t.seq = s.lists.issued
		t.writes = s.writes
	}
	s.inflight++
	s.state = Reduce(s.state, SetLoading{Loading: true})
	s.mu.Unlock()
	s.notify()
	return t
}

func (s *Store) noteLane(id model.ID) *lane {
	l, ok := s.notes[id]
	if !ok {
		l = &lane{}
		s.notes[id] = l
	}
	return l
}

func (s *Store) finish(t ticket, actions ...Action) {
	s.settle(t, true, actions)
}

func (s *Store) fail(ctx context.Context, t ticket, err error) {
	obs.From(ctx).With("pkg", "notes").Info("notes_op_failed", "code", string(errs.CodeOf(err)), "error", err)
	s.settle(t, false, []Action{SetError{Message: errs.UserMessage(err)}})
}

// settle applies actions for t unless its lane has moved past it, releases
// the lane and recomputes Loading.
func (s *Store) settle(t ticket, ok bool, actions []Action) {
	s.mu.Lock()
	if t.epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.inflight--
	if actions, apply := s.resolve(t, ok, actions); apply {
		for _, a := range actions {
			s.state = Reduce(s.state, a)
		}
	} else {
		obs.Pkg("notes").Debug("notes_stale_response_dropped", "id", t.id.String(), "seq", t.seq)
	}
	if t.kind == opMutate || t.kind == opGet {
		if l := s.notes[t.id]; l != nil {
			l.pending--
			if l.pending == 0 {
				delete(s.notes, t.id)
			}
		}
	}
	s.state = Reduce(s.state, SetLoading{Loading: s.inflight > 0})
	s.mu.Unlock()
	s.notify()
}

// resolve decides what a response may change. Failures never advance a lane,
// so they cannot hide an older success that lands after them. Called with
// s.mu held.
func (s *Store) resolve(t ticket, ok bool, actions []Action) ([]Action, bool) {
	switch t.kind {
	case opCreate:
		if ok {
			s.writes++
		}
	case opMutate:
		l := s.notes[t.id]
		if t.seq <= l.applied {
			return nil, false
		}
		if ok {
			l.applied = t.seq
			l.writes++
			s.writes++
		}
	case opList:
		if t.seq <= s.lists.applied {
			return nil, false
		}
		if ok {
			if s.writes != t.writes {
				return nil, false
			}
			s.lists.applied = t.seq
		}
	case opGet:
		if t.seq <= s.selects.applied {
			return nil, false
		}
		if ok {
			s.selects.applied = t.seq
			if s.notes[t.id].writes != t.writes {
				cached, found := s.cached(t.id)
				if !found {
					return nil, false
				}
				return []Action{SetSelected{Note: &cached}}, true
			}
		}
	}
	return actions, true
}

func (s *Store) cached(id model.ID) (model.Note, bool) {
	for _, n := range s.state.Notes {
		if n.ID == id {
			return n, true
		}
	}
	return model.Note{}, false
}

func (s *Store) dispatch(a Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	s.mu.Unlock()
	s.notify()
}

// notify delivers the latest state. Deliveries are serialized, and each one
// reads the state afresh, so the last delivery always carries the final
// state. The subscriber list is copied first so fn may cancel itself.
func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.subsMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subsMu.Unlock()
	if len(subs) == 0 {
		return
	}
	snap := s.State()
	for _, sub := range subs {
		sub.fn(snap.Clone())
	}
}
