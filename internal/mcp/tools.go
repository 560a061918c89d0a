package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

// Tool names.
const (
	toolNoteList   = "note_list"
	toolNoteView   = "note_view"
	toolNoteCreate = "note_create"
	toolNoteUpdate = "note_update"
	toolNoteDelete = "note_delete"
	toolNoteShare  = "note_share"
	toolSharedView = "shared_note_view"
)

// ToolDefinitions returns the notes tools served by the bridge.
func ToolDefinitions() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        toolNoteList,
			Description: "List the signed-in user's notes, newest first, with a one-line preview and line count. Optional query filters by title or content (case-insensitive). Accepts limit (default 50, max 500) and offset for pagination. Use note_view to read a complete note.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Optional case-insensitive filter on title and content",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of notes to return (default: 50, max: 500)",
					},
					"offset": map[string]any{
						"type":        "integer",
						"description": "Number of notes to skip (default: 0)",
					},
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        toolNoteView,
			Description: "Read one note with line numbers (tab-separated, 1-indexed). Optionally pass line_range as [start, end] (inclusive; end=-1 means end of note). Also returns the share link when the note is shared.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "The note id",
					},
					"line_range": map[string]any{
						"type":        "array",
						"description": "Optional [start, end] line range (1-indexed, inclusive). end=-1 means end of note.",
						"items":       map[string]any{"type": "integer"},
						"minItems":    2,
						"maxItems":    2,
					},
				},
				"required":             []string{"id"},
				"additionalProperties": false,
			},
		},
		{
			Name:        toolNoteCreate,
			Description: "Create a note. title is required and must not be blank. Set shared to true to publish it with a share link. Returns the new note's id, title, line count and share link.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "The note title (required)",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Markdown body (optional)",
					},
					"shared": map[string]any{
						"type":        "boolean",
						"description": "Publish the note with a share link (default false)",
					},
				},
				"required":             []string{"title"},
				"additionalProperties": false,
			},
		},
		{
			Name:        toolNoteUpdate,
			Description: "Update a note. Omitted fields keep their current value. Setting shared to false unpublishes the note; setting it to true keeps the existing link or creates one.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "The note id",
					},
					"title": map[string]any{
						"type":        "string",
						"description": "New title (optional, must not be blank)",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "New Markdown body (optional)",
					},
					"shared": map[string]any{
						"type":        "boolean",
						"description": "Whether the note is published (optional)",
					},
				},
				"required":             []string{"id"},
				"additionalProperties": false,
			},
		},
		{
			Name:        toolNoteDelete,
			Description: "Permanently delete a note by id.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "The note id",
					},
				},
				"required":             []string{"id"},
				"additionalProperties": false,
			},
		},
		{
			Name:        toolNoteShare,
			Description: "Have the server mint a fresh share link for a note. Any previous link stops working.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "The note id",
					},
				},
				"required":             []string{"id"},
				"additionalProperties": false,
			},
		},
		{
			Name:        toolSharedView,
			Description: "Read a note someone shared, by its share token (the last path segment of a share link).",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"token": map[string]any{
						"type":        "string",
						"description": "The share token",
					},
				},
				"required":             []string{"token"},
				"additionalProperties": false,
			},
		},
	}
}
