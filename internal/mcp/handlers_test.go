package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func call[T any](t *testing.T, h *Handler, name string, args map[string]any) T {
	t.Helper()
	res := h.HandleToolCall(context.Background(), name, args)
	body := resultText(t, res)
	require.False(t, res.IsError, body)
	var out T
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func callErr(t *testing.T, h *Handler, name string, args map[string]any) toolErrorPayload {
	t.Helper()
	res := h.HandleToolCall(context.Background(), name, args)
	body := resultText(t, res)
	require.True(t, res.IsError, body)
	var out toolErrorPayload
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestHandleToolCall_NoteLifecycle(t *testing.T) {
	t.Parallel()
	br := newBridge(t, true)
	h := br.server.handler

	created := call[writeResult](t, h, toolNoteCreate, map[string]any{"title": "Plan", "content": "one\ntwo\nthree"})
	assert.Equal(t, 3, created.Lines)
	assert.Empty(t, created.ShareURL)

	view := call[viewResult](t, h, toolNoteView, map[string]any{"id": created.ID, "line_range": []any{2, -1}})
	assert.Equal(t, "2\ttwo\n3\tthree", view.Content)
	assert.Equal(t, []int{2, 3}, view.LineRange)

	updated := call[writeResult](t, h, toolNoteUpdate, map[string]any{"id": created.ID, "shared": true})
	require.NotEmpty(t, updated.ShareURL)
	assert.True(t, strings.HasPrefix(updated.ShareURL, "https://notes.example.com/share/"))
	assert.Equal(t, "Plan", updated.Title, "omitted title is kept")

	stored := br.backend.Notes(br.owner.ID)
	require.Len(t, stored, 1)
	assert.Equal(t, "one\ntwo\nthree", stored[0].Content, "omitted content is kept")

	token := strings.TrimPrefix(updated.ShareURL, "https://notes.example.com/share/")
	shared := call[viewResult](t, h, toolSharedView, map[string]any{"token": token})
	assert.Equal(t, "Plan", shared.Title)

	reshared := call[writeResult](t, h, toolNoteShare, map[string]any{"id": created.ID})
	assert.NotEqual(t, updated.ShareURL, reshared.ShareURL)

	unshared := call[writeResult](t, h, toolNoteUpdate, map[string]any{"id": created.ID, "shared": false})
	assert.Empty(t, unshared.ShareURL)

	call[map[string]any](t, h, toolNoteDelete, map[string]any{"id": created.ID})
	assert.Empty(t, br.backend.Notes(br.owner.ID))
	assert.Empty(t, br.store.State().Notes)
}

func TestHandleToolCall_ListFiltersAndPages(t *testing.T) {
	t.Parallel()
	br := newBridge(t, true)
	for _, title := range []string{"alpha", "beta", "alphabet", "gamma"} {
		br.backend.AddNote(br.owner.ID, title, "", "")
	}

	all := call[listResult](t, br.server.handler, toolNoteList, map[string]any{})
	assert.Equal(t, 4, all.Total)
	assert.Len(t, all.Notes, 4)

	page := call[listResult](t, br.server.handler, toolNoteList, map[string]any{"query": "ALPHA", "limit": 1, "offset": 1})
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Notes, 1)
	assert.Contains(t, page.Notes[0].Title, "alpha")

	past := call[listResult](t, br.server.handler, toolNoteList, map[string]any{"offset": 10})
	assert.Empty(t, past.Notes)
	assert.Equal(t, 4, past.Total)
}

func TestHandleToolCall_Errors(t *testing.T) {
	t.Parallel()
	br := newBridge(t, true)
	h := br.server.handler

	got := callErr(t, h, toolNoteCreate, map[string]any{"title": "   "})
	assert.Equal(t, "invalid_argument", got.Code)
	assert.Equal(t, "Title is required", got.Message)

	got = callErr(t, h, toolNoteView, map[string]any{"id": "1", "colour": "red"})
	assert.Equal(t, "invalid_argument", got.Code)
	assert.Contains(t, got.Message, "colour")

	got = callErr(t, h, toolNoteView, map[string]any{"id": "999"})
	assert.Equal(t, "not_found", got.Code)
	assert.Equal(t, "Note not found", got.Message)

	got = callErr(t, h, toolNoteList, map[string]any{"limit": 0})
	assert.Equal(t, "invalid_argument", got.Code)

	got = callErr(t, h, "note_explode", nil)
	assert.Equal(t, "invalid_argument", got.Code)

	before := len(br.backend.Requests())
	got = callErr(t, h, toolNoteDelete, map[string]any{"id": "  "})
	assert.Equal(t, "id is required", got.Message)
	assert.Len(t, br.backend.Requests(), before, "blank id never reaches the API")
}

func TestHandleToolCall_ListSurfacesServerFailure(t *testing.T) {
	t.Parallel()
	br := newBridge(t, true)
	br.backend.FailNext(http.MethodGet, "/notes", http.StatusInternalServerError, "database down")

	got := callErr(t, br.server.handler, toolNoteList, nil)
	assert.Equal(t, "database down", got.Message)

	// The store error does not leak into the next call.
	ok := call[listResult](t, br.server.handler, toolNoteList, nil)
	assert.Zero(t, ok.Total)
}

func TestHandleToolCall_RequiresSession(t *testing.T) {
	t.Parallel()
	br := newBridge(t, false)
	n := br.backend.AddNote(br.owner.ID, "public", "hello", "tok-1")

	got := callErr(t, br.server.handler, toolNoteList, nil)
	assert.Equal(t, "unauthenticated", got.Code)
	assert.Empty(t, br.backend.Requests())

	shared := call[viewResult](t, br.server.handler, toolSharedView, map[string]any{"token": "tok-1"})
	assert.Equal(t, n.Title, shared.Title)
	assert.Equal(t, "1\thello", shared.Content)
}

func testNumberLines_RangeSelectsLines(t *rapid.T) {
	lines := rapid.SliceOfN(rapid.StringMatching(`[a-z ]{0,12}`), 1, 30).Draw(t, "lines")
	start := rapid.IntRange(1, len(lines)).Draw(t, "start")
	end := rapid.IntRange(start, len(lines)).Draw(t, "end")

	got, applied, err := numberLines(strings.Join(lines, "\n"), []int{start, end})
	if err != nil {
		t.Fatalf("numberLines: %v", err)
	}
	if applied[0] != start || applied[1] != end {
		t.Fatalf("applied = %v, want [%d %d]", applied, start, end)
	}
	out := strings.Split(got, "\n")
	if len(out) != end-start+1 {
		t.Fatalf("got %d lines, want %d", len(out), end-start+1)
	}
	for i, line := range out {
		num, text, ok := strings.Cut(line, "\t")
		if !ok || num != strconv.Itoa(start+i) || text != lines[start+i-1] {
			t.Fatalf("line %d = %q", i, line)
		}
	}
}

func TestNumberLines_RangeSelectsLines(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testNumberLines_RangeSelectsLines)
}

func TestNumberLines_OutOfBounds(t *testing.T) {
	t.Parallel()
	for _, r := range [][]int{{0, 1}, {2, 1}, {1, 4}, {4, -1}} {
		_, _, err := numberLines("a\nb\nc", r)
		assert.Error(t, err, "range %v", r)
	}
	_, _, err := numberLines("", []int{1, -1})
	assert.Error(t, err)
}

func TestDecodeToolArgs_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	var a idArgs
	require.NoError(t, decodeToolArgs(nil, &a))
	require.Error(t, decodeToolArgs(map[string]any{"id": "1", "extra": true}, &a))
	require.Error(t, decodeToolArgs(map[string]any{"id": 7}, &a))
}
