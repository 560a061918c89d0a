package notes

import "github.com/kuitang/notes-client/internal/model"

// State is the cached view of the user's notes. Notes is newest-created
// first; Selected is the note last fetched by id.
type State struct {
	Notes    []model.Note
	Loading  bool
	Error    string
	Selected *model.Note
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	out := s
	if s.Notes != nil {
		out.Notes = append([]model.Note(nil), s.Notes...)
	}
	if s.Selected != nil {
		sel := *s.Selected
		out.Selected = &sel
	}
	return out
}

// Action is a state transition understood by Reduce.
type Action interface {
	action()
}

type (
	SetLoading  struct{ Loading bool }
	SetError    struct{ Message string }
	SetNotes    struct{ Notes []model.Note }
	AddNote     struct{ Note model.Note }
	UpdateNote  struct{ Note model.Note }
	DeleteNote  struct{ ID model.ID }
	SetSelected struct{ Note *model.Note }
	ClearError  struct{}
	Reset       struct{}
)

func (SetLoading) action()  {}
func (SetError) action()    {}
func (SetNotes) action()    {}
func (AddNote) action()     {}
func (UpdateNote) action()  {}
func (DeleteNote) action()  {}
func (SetSelected) action() {}
func (ClearError) action()  {}
func (Reset) action()       {}

// Reduce returns the state after a. It never modifies s; slices in the result
// are fresh whenever their contents change.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetLoading:
		s.Loading = a.Loading
	case SetError:
		s.Error = a.Message
	case SetNotes:
		s.Notes = append([]model.Note{}, a.Notes...)
		s.Error = ""
	case AddNote:
		next := make([]model.Note, 0, len(s.Notes)+1)
		next = append(next, a.Note)
		for _, n := range s.Notes {
			if n.ID != a.Note.ID {
				next = append(next, n)
			}
		}
		s.Notes = next
		s.Error = ""
	case UpdateNote:
		next := append([]model.Note(nil), s.Notes...)
		for i := range next {
			if next[i].ID == a.Note.ID {
				next[i] = a.Note
			}
		}
		s.Notes = next
		if s.Selected != nil && s.Selected.ID == a.Note.ID {
			sel := a.Note
			s.Selected = &sel
		}
		s.Error = ""
	case DeleteNote:
		next := make([]model.Note, 0, len(s.Notes))
		for _, n := range s.Notes {
			if n.ID != a.ID {
				next = append(next, n)
			}
		}
		s.Notes = next
		if s.Selected != nil && s.Selected.ID == a.ID {
			s.Selected = nil
		}
		s.Error = ""
	case SetSelected:
		if a.Note == nil {
			s.Selected = nil
		} else {
			sel := *a.Note
			s.Selected = &sel
		}
	case ClearError:
		s.Error = ""
	case Reset:
		return State{}
	}
	return s
}
