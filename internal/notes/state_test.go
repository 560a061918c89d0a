package notes

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/kuitang/notes-client/internal/model"
)

func noteGen() *rapid.Generator[model.Note] {
	return rapid.Custom(func(t *rapid.T) model.Note {
		return model.Note{
			ID:    model.ID(strconv.Itoa(rapid.IntRange(1, 20).Draw(t, "id"))),
			Title: rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "title"),
		}
	})
}

func uniqueNotes(t *rapid.T) []model.Note {
	drawn := rapid.SliceOfNDistinct(noteGen(), 0, 10, func(n model.Note) model.ID { return n.ID }).Draw(t, "notes")
	return drawn
}

func actionGen(t *rapid.T) Action {
	switch rapid.IntRange(0, 8).Draw(t, "kind") {
	case 0:
		return SetLoading{Loading: rapid.Bool().Draw(t, "loading")}
	case 1:
		return SetError{Message: rapid.StringMatching(`[a-z ]{0,10}`).Draw(t, "msg")}
	case 2:
		return SetNotes{Notes: uniqueNotes(t)}
	case 3:
		return AddNote{Note: noteGen().Draw(t, "add")}
	case 4:
		return UpdateNote{Note: noteGen().Draw(t, "update")}
	case 5:
		return DeleteNote{ID: noteGen().Draw(t, "delete").ID}
	case 6:
		n := noteGen().Draw(t, "select")
		return SetSelected{Note: &n}
	case 7:
		return ClearError{}
	default:
		return Reset{}
	}
}

func testReduce_IDsStayUnique(t *rapid.T) {
	var s State
	for i, steps := 0, rapid.IntRange(1, 40).Draw(t, "steps"); i < steps; i++ {
		s = Reduce(s, actionGen(t))
		seen := map[model.ID]bool{}
		for _, n := range s.Notes {
			if seen[n.ID] {
				t.Fatalf("duplicate id %s in %v", n.ID, s.Notes)
			}
			seen[n.ID] = true
		}
	}
}

func TestReduce_IDsStayUnique(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testReduce_IDsStayUnique)
}

func testReduce_DoesNotMutateInput(t *rapid.T) {
	s := State{Notes: uniqueNotes(t)}
	before := s.Clone()
	_ = Reduce(s, actionGen(t))
	if len(before.Notes) != len(s.Notes) {
		t.Fatal("input length changed")
	}
	for i := range before.Notes {
		if before.Notes[i] != s.Notes[i] {
			t.Fatalf("input note %d changed", i)
		}
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testReduce_DoesNotMutateInput)
}

func TestReduce_AddNoteReplacesExistingID(t *testing.T) {
	s := State{Notes: []model.Note{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}}}
	s = Reduce(s, AddNote{Note: model.Note{ID: "2", Title: "b2"}})
	assert.Equal(t, []model.Note{{ID: "2", Title: "b2"}, {ID: "1", Title: "a"}}, s.Notes)
}

func TestReduce_UpdateRefreshesSelected(t *testing.T) {
	sel := model.Note{ID: "1", Title: "old"}
	s := State{Notes: []model.Note{sel}, Selected: &sel, Error: "stale"}
	s = Reduce(s, UpdateNote{Note: model.Note{ID: "1", Title: "new"}})
	assert.Equal(t, "new", s.Notes[0].Title)
	assert.Equal(t, "new", s.Selected.Title)
	assert.Empty(t, s.Error)
}

func TestReduce_UnknownIDIsNoop(t *testing.T) {
	s := State{Notes: []model.Note{{ID: "1"}}}
	assert.Equal(t, s.Notes, Reduce(s, UpdateNote{Note: model.Note{ID: "9"}}).Notes)
	assert.Equal(t, s.Notes, Reduce(s, DeleteNote{ID: "9"}).Notes)
}

func TestReduce_ErrorAndLoadingAreIndependent(t *testing.T) {
	s := Reduce(State{}, SetLoading{Loading: true})
	s = Reduce(s, SetError{Message: "boom"})
	assert.True(t, s.Loading)
	assert.Equal(t, "boom", s.Error)
	s = Reduce(s, ClearError{})
	assert.True(t, s.Loading)
	assert.Empty(t, s.Error)
	assert.Equal(t, State{}, Reduce(s, Reset{}))
}
