package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kuitang/notes-client/internal/errs"
	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/notes"
	"github.com/kuitang/notes-client/internal/obs"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	previewRunes     = 120
)

var errNotLoggedIn = errs.New(errs.Unauthenticated, "Not logged in. Run `notes login` first.")

// Handler runs tool calls against the notes store.
type Handler struct {
	store       *notes.Store
	auth        Authorizer
	shareOrigin string
}

// NewHandler creates a tool handler. auth may be nil, in which case every
// call is allowed.
func NewHandler(store *notes.Store, auth Authorizer, shareOrigin string) *Handler {
	return &Handler{store: store, auth: auth, shareOrigin: shareOrigin}
}

type toolErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type noteSummary struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Preview   string     `json:"preview"`
	Lines     int        `json:"total_lines"`
	Shared    bool       `json:"shared"`
	UpdatedAt model.Time `json:"updated_at"`
}

type listResult struct {
	Notes  []noteSummary `json:"notes"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type viewResult struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Lines     int        `json:"total_lines"`
	LineRange []int      `json:"line_range,omitempty"`
	ShareURL  string     `json:"share_url,omitempty"`
	UpdatedAt model.Time `json:"updated_at"`
}

type writeResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Lines    int    `json:"total_lines"`
	ShareURL string `json:"share_url,omitempty"`
}

type listArgs struct {
	Query  string `json:"query"`
	Limit  *int   `json:"limit"`
	Offset int    `json:"offset"`
}

type viewArgs struct {
	ID        string `json:"id"`
	LineRange []int  `json:"line_range"`
}

type createArgs struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Shared  bool   `json:"shared"`
}

type updateArgs struct {
	ID      string  `json:"id"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Shared  *bool   `json:"shared"`
}

type idArgs struct {
	ID string `json:"id"`
}

type tokenArgs struct {
	Token string `json:"token"`
}

func (h *Handler) createToolHandler(name string) func(context.Context, *mcp.CallToolRequest, map[string]any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		return h.HandleToolCall(ctx, name, args), nil, nil
	}
}

// HandleToolCall runs one tool and always returns a result; failures are
// reported in-band with IsError set.
func (h *Handler) HandleToolCall(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	ctx, _ = obs.EnsureRequestID(obs.WithOp(ctx, "mcp."+name))
	started := time.Now()

	payload, err := h.dispatch(ctx, name, args)
	logger := obs.From(ctx).With("pkg", "mcp", "tool", name, "duration_ms", time.Since(started).Milliseconds())
	if err != nil {
		logger.Info("mcp_tool_failed", "code", string(errs.CodeOf(err)), "error", err)
		return errorResult(err)
	}
	logger.Debug("mcp_tool_ok")
	return jsonResult(payload)
}

func (h *Handler) dispatch(ctx context.Context, name string, args map[string]any) (any, error) {
	if name != toolSharedView && h.auth != nil && !h.auth.IsAuthorized() {
		return nil, errNotLoggedIn
	}
	switch name {
	case toolNoteList:
		var a listArgs
		if err := decodeToolArgs(args, &a); err != nil {
			return nil, err
		}
		return h.list(ctx, a)
	case toolNoteView:
		var a viewArgs
		if err := decodeToolArgs(args, &a); err != nil {
			return nil, err
		}
		return h.view(ctx, a)
	case toolNoteCreate:
		var a createArgs
		if err := decodeToolArgs(args, &a); err != nil {
			return nil, err
		}
		return h.create(ctx, a)
	case toolNoteUpdate:
		var a updateArgs
		if err := decodeToolArgs(args, &a); err != nil {
			return nil, err
		}
		return h.update(ctx, a)
	case toolNoteDelete:
		var a idArgs
		if err := decodeToolArgs(args, &a); err != nil {
			return nil, err
		}
		id, err := requireID(a.ID)
		if err != nil {
			return nil, err
		}
		if err := h.store.DeleteNote(ctx, id); err != nil {
			return nil, err
		}
		return map[string]any{"id": id.String(), "deleted": true}, nil
	case toolNoteShare:
		var a idArgs
		if err := decodeToolArgs(args, &a); err != nil {
			return nil, err
		}
		id, err := requireID(a.ID)
		if err != nil {
			return nil, err
		}
		note, err := h.store.ShareNote(ctx, id)
		if err != nil {
			return nil, err
		}
		return h.written(note), nil
	case toolSharedView:
		var a tokenArgs
		if err := decodeToolArgs(args, &a); err != nil {
			return nil, err
		}
		token := strings.TrimSpace(a.Token)
		if token == "" {
			return nil, errs.New(errs.InvalidArgument, "token is required")
		}
		note, err := h.store.GetSharedNote(ctx, token)
		if err != nil {
			return nil, err
		}
		return h.viewOf(note, nil)
	default:
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown tool: %s", name))
	}
}

func (h *Handler) list(ctx context.Context, a listArgs) (listResult, error) {
	limit := defaultListLimit
	if a.Limit != nil {
		limit = *a.Limit
	}
	if limit <= 0 || limit > maxListLimit {
		return listResult{}, errs.New(errs.InvalidArgument, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
	}
	if a.Offset < 0 {
		return listResult{}, errs.New(errs.InvalidArgument, "offset must not be negative")
	}

	h.store.ClearError()
	all := h.store.LoadNotes(ctx)
	if msg := h.store.State().Error; msg != "" {
		return listResult{}, errs.New(errs.Unavailable, msg)
	}
	matched := notes.Filter(all, a.Query)

	out := listResult{Notes: []noteSummary{}, Total: len(matched), Limit: limit, Offset: a.Offset}
	if a.Offset < len(matched) {
		end := min(a.Offset+limit, len(matched))
		for _, n := range matched[a.Offset:end] {
			out.Notes = append(out.Notes, noteSummary{
				ID:        n.ID.String(),
				Title:     n.Title,
				Preview:   notes.Preview(n.Content, previewRunes),
				Lines:     notes.CountLines(n.Content),
				Shared:    n.IsShared(),
				UpdatedAt: n.UpdatedAt,
			})
		}
	}
	return out, nil
}

func (h *Handler) view(ctx context.Context, a viewArgs) (viewResult, error) {
	id, err := requireID(a.ID)
	if err != nil {
		return viewResult{}, err
	}
	if a.LineRange != nil && len(a.LineRange) != 2 {
		return viewResult{}, errs.New(errs.InvalidArgument, "line_range must be [start, end]")
	}
	note, err := h.store.GetNoteByID(ctx, id)
	if err != nil {
		return viewResult{}, err
	}
	return h.viewOf(note, a.LineRange)
}

func (h *Handler) viewOf(note model.Note, lineRange []int) (viewResult, error) {
	content, applied, err := numberLines(note.Content, lineRange)
	if err != nil {
		return viewResult{}, err
	}
	out := viewResult{
		ID:        note.ID.String(),
		Title:     note.Title,
		Content:   content,
		Lines:     notes.CountLines(note.Content),
		LineRange: applied,
		UpdatedAt: note.UpdatedAt,
	}
	if note.IsShared() {
		out.ShareURL = notes.ShareURL(h.shareOrigin, note.ShareToken)
	}
	return out, nil
}

func (h *Handler) create(ctx context.Context, a createArgs) (writeResult, error) {
	in := model.NoteInput{Title: a.Title, Content: a.Content}
	if a.Shared {
		in.ShareToken = model.ShareToken(notes.NewShareToken())
	}
	note, err := h.store.CreateNote(ctx, in)
	if err != nil {
		return writeResult{}, err
	}
	return h.written(note), nil
}

// update merges the supplied fields over the server's current copy.
func (h *Handler) update(ctx context.Context, a updateArgs) (writeResult, error) {
	id, err := requireID(a.ID)
	if err != nil {
		return writeResult{}, err
	}
	current, err := h.store.GetNoteByID(ctx, id)
	if err != nil {
		return writeResult{}, err
	}

	in := model.NoteInput{
		Title:      current.Title,
		Content:    current.Content,
		ShareToken: model.ShareToken(current.ShareToken),
	}
	if a.Title != nil {
		in.Title = *a.Title
	}
	if a.Content != nil {
		in.Content = *a.Content
	}
	if a.Shared != nil {
		switch {
		case !*a.Shared:
			in.ShareToken = nil
		case in.ShareToken == nil:
			in.ShareToken = model.ShareToken(notes.NewShareToken())
		}
	}

	note, err := h.store.UpdateNote(ctx, id, in)
	if err != nil {
		return writeResult{}, err
	}
	return h.written(note), nil
}

func (h *Handler) written(note model.Note) writeResult {
	out := writeResult{
		ID:    note.ID.String(),
		Title: note.Title,
		Lines: notes.CountLines(note.Content),
	}
	if note.IsShared() {
		out.ShareURL = notes.ShareURL(h.shareOrigin, note.ShareToken)
	}
	return out
}

func requireID(raw string) (model.ID, error) {
	id := model.ParseID(raw)
	if id == "" {
		return "", errs.New(errs.InvalidArgument, "id is required")
	}
	return id, nil
}

// numberLines prefixes each line with its 1-based number and a tab. With a
// range, only lines start..end are kept; end -1 means the last line.
func numberLines(content string, lineRange []int) (string, []int, error) {
	if content == "" {
		if lineRange != nil {
			return "", nil, errs.New(errs.InvalidArgument, "line_range is out of bounds: note is empty")
		}
		return "", nil, nil
	}
	lines := strings.Split(content, "\n")
	start, end := 1, len(lines)
	if lineRange != nil {
		start, end = lineRange[0], lineRange[1]
		if end == -1 {
			end = len(lines)
		}
		if start < 1 || end < start || end > len(lines) {
			return "", nil, errs.New(errs.InvalidArgument,
				fmt.Sprintf("line_range [%d, %d] is out of bounds for %d lines", lineRange[0], lineRange[1], len(lines)))
		}
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		b.WriteString(strconv.Itoa(i))
		b.WriteByte('\t')
		b.WriteString(lines[i-1])
		if i < end {
			b.WriteByte('\n')
		}
	}
	if lineRange == nil {
		return b.String(), nil, nil
	}
	return b.String(), []int{start, end}, nil
}

// decodeToolArgs re-decodes the raw argument map into dst, rejecting fields
// the tool does not declare.
func decodeToolArgs(args map[string]any, dst any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, "invalid arguments", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Wrap(errs.InvalidArgument, "invalid arguments: "+err.Error(), err)
	}
	return nil
}

func jsonResult(payload any) *mcp.CallToolResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return errorResult(errs.Wrap(errs.Internal, "failed to encode result", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	body, _ := json.Marshal(toolErrorPayload{
		Code:    string(errs.CodeOf(err)),
		Message: errs.UserMessage(err),
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
		IsError: true,
	}
}
