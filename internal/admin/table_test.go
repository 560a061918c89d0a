package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/kuitang/notes-client/internal/model"
)

func row(name, email string, notes int, created time.Time, restricted bool) model.AdminUser {
	return model.AdminUser{
		User: model.User{
			ID:         model.ID(email),
			Name:       name,
			Email:      email,
			Restricted: restricted,
			CreatedAt:  model.Time{Time: created},
		},
		NotesCount: notes,
	}
}

func emails(users []model.AdminUser) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Email
	}
	return out
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var sample = []model.AdminUser{
	row("carol", "c@x.io", 3, t0.Add(2*time.Hour), false),
	row("Alice", "a@x.io", 10, t0, true),
	row("bob", "B@y.io", 0, t0.Add(time.Hour), false),
}

func TestTable_ToggleSort(t *testing.T) {
	t.Parallel()
	var tbl Table
	assert.Equal(t, []string{"a@x.io", "B@y.io", "c@x.io"}, emails(tbl.Apply(sample)))

	tbl.ToggleSort(SortName)
	assert.True(t, tbl.Desc)
	assert.Equal(t, []string{"c@x.io", "B@y.io", "a@x.io"}, emails(tbl.Apply(sample)))

	tbl.ToggleSort(SortNotesCount)
	assert.False(t, tbl.Desc)
	assert.Equal(t, []string{"B@y.io", "c@x.io", "a@x.io"}, emails(tbl.Apply(sample)))

	tbl.ToggleSort(SortCreatedAt)
	assert.Equal(t, []string{"a@x.io", "B@y.io", "c@x.io"}, emails(tbl.Apply(sample)))

	tbl.ToggleSort(SortRestricted)
	tbl.ToggleSort(SortRestricted)
	assert.Equal(t, "a@x.io", tbl.Apply(sample)[0].Email)
}

func TestTable_SearchMatchesNameOrEmail(t *testing.T) {
	t.Parallel()
	tbl := Table{Search: "  Y.IO"}
	assert.Equal(t, []string{"B@y.io"}, emails(tbl.Apply(sample)))
	tbl.Search = "AL"
	assert.Equal(t, []string{"a@x.io"}, emails(tbl.Apply(sample)))
	assert.Len(t, sample, 3)
}

func testSort_DescIsReverseOfAscForDistinctKeys(t *rapid.T) {
	counts := rapid.SliceOfNDistinct(rapid.IntRange(0, 1000), 0, 20, rapid.ID[int]).Draw(t, "counts")
	users := make([]model.AdminUser, len(counts))
	for i, c := range counts {
		users[i] = row("u", string(rune('a'+i)), c, t0, false)
	}
	asc := append([]model.AdminUser(nil), users...)
	desc := append([]model.AdminUser(nil), users...)
	Sort(asc, SortNotesCount, false)
	Sort(desc, SortNotesCount, true)
	for i := range asc {
		if asc[i].NotesCount != desc[len(desc)-1-i].NotesCount {
			t.Fatalf("desc is not asc reversed at %d", i)
		}
		if i > 0 && asc[i-1].NotesCount > asc[i].NotesCount {
			t.Fatalf("asc out of order at %d", i)
		}
	}
}

func TestSort_DescIsReverseOfAscForDistinctKeys(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testSort_DescIsReverseOfAscForDistinctKeys)
}

func TestParseSortKey(t *testing.T) {
	t.Parallel()
	k, err := ParseSortKey("notesCount")
	assert.NoError(t, err)
	assert.Equal(t, SortNotesCount, k)
	_, err = ParseSortKey("age")
	assert.Error(t, err)
}
