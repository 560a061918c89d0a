package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/s3client"
)

var fixed = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func sampleNotes() []model.Note {
	return []model.Note{
		{ID: "2", Title: "Shared", Content: "**hello**", ShareToken: "tok-2"},
		{ID: "1", Title: "Private", Content: "<script>x</script>plain"},
	}
}

func TestExport_ToS3(t *testing.T) {
	c := s3client.TestClient(t, "exports")
	ctx := context.Background()

	res, err := Export(ctx, c, sampleNotes(), Options{
		Prefix:      "ada/",
		ShareOrigin: "https://notes.example.com",
		Now:         func() time.Time { return fixed },
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Written)
	assert.Equal(t, 2, res.Index.Count)

	raw, err := c.Get(ctx, IndexKey("ada/"))
	require.NoError(t, err)
	var idx Index
	require.NoError(t, json.Unmarshal(raw, &idx))
	assert.Equal(t, fixed, idx.ExportedAt)
	require.Len(t, idx.Notes, 2)
	assert.Equal(t, "https://notes.example.com/share/tok-2", idx.Notes[0].ShareURL)
	assert.Empty(t, idx.Notes[1].ShareURL)

	page, err := c.Get(ctx, "ada/notes/2.html")
	require.NoError(t, err)
	assert.Contains(t, string(page), "<strong>hello</strong>")

	page, err = c.Get(ctx, "ada/notes/1.html")
	require.NoError(t, err)
	assert.NotContains(t, string(page), "<script>x")

	src, err := c.Get(ctx, "ada/notes/1.md")
	require.NoError(t, err)
	assert.Equal(t, "# Private\n\n<script>x</script>plain\n", string(src))
}

func TestExport_PruneRemovesDeletedNotes(t *testing.T) {
	d := &Dir{Root: t.TempDir()}
	ctx := context.Background()

	_, err := Export(ctx, d, sampleNotes(), Options{})
	require.NoError(t, err)

	res, err := Export(ctx, d, sampleNotes()[:1], Options{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pruned)

	keys, err := d.List(ctx, "")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"index.json", "notes/2.html", "notes/2.md"}, keys)
}

func TestDir_RejectsEscapingKeys(t *testing.T) {
	d := &Dir{Root: t.TempDir()}
	err := d.Put(context.Background(), "../outside.html", []byte("x"), "text/html")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(d.Root), "outside.html"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDir_ListMissingRootIsEmpty(t *testing.T) {
	d := &Dir{Root: filepath.Join(t.TempDir(), "missing")}
	keys, err := d.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testExport_OneEntryPerNote(t *rapid.T) {
	ids := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z0-9./-]{1,12}`), 0, 8, rapid.ID[string]).Draw(t, "ids")
	list := make([]model.Note, len(ids))
	for i, id := range ids {
		list[i] = model.Note{ID: model.ID(id), Title: "t" + id}
	}
	mem := &memSink{files: map[string][]byte{}}
	res, err := Export(context.Background(), mem, list, Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Index.Count != len(list) {
		t.Fatalf("count %d, want %d", res.Index.Count, len(list))
	}
	for i, e := range res.Index.Notes {
		if e.ID != list[i].ID {
			t.Fatalf("entry %d out of order", i)
		}
		if filepath.Base(e.Page) == ".." || !filepath.IsLocal(filepath.FromSlash(e.Page)) {
			t.Fatalf("unsafe page key %q", e.Page)
		}
	}
}

func TestExport_OneEntryPerNote(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testExport_OneEntryPerNote)
}

type memSink struct {
	files map[string][]byte
}

func (m *memSink) Put(_ context.Context, key string, content []byte, _ string) error {
	m.files[key] = content
	return nil
}

func (m *memSink) List(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for k := range m.files {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memSink) Delete(_ context.Context, key string) error {
	delete(m.files, key)
	return nil
}

var (
	_ Sink = (*s3client.Client)(nil)
	_ Sink = (*Dir)(nil)
)
