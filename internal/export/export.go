// Package export writes a user's notes out as a static site: one rendered
// HTML page and one Markdown source per note, plus index.json.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kuitang/notes-client/internal/model"
	"github.com/kuitang/notes-client/internal/notes"
	"github.com/kuitang/notes-client/internal/obs"
)

// Sink is where exported files go. *s3client.Client and *Dir implement it.
type Sink interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// Options control an export.
type Options struct {
	// Prefix is prepended to every key, e.g. "alice/".
	Prefix string
	// ShareOrigin is used to build share links for shared notes.
	ShareOrigin string
	Theme       string
	// Prune deletes note files under Prefix that this export did not write.
	Prune bool
	Now   func() time.Time
}

// Entry describes one exported note in index.json.
type Entry struct {
	ID        model.ID   `json:"id"`
	Title     string     `json:"title"`
	Preview   string     `json:"preview"`
	Page      string     `json:"page"`
	Source    string     `json:"source"`
	ShareURL  string     `json:"shareUrl,omitempty"`
	UpdatedAt model.Time `json:"updatedAt"`
}

// Index is the content of index.json.
type Index struct {
	ExportedAt time.Time `json:"exportedAt"`
	Count      int       `json:"count"`
	Notes      []Entry   `json:"notes"`
}

// Result summarizes a finished export.
type Result struct {
	Index   Index
	Written int
	Pruned  int
}

const previewRunes = 140

// IndexKey is the key of index.json under prefix.
func IndexKey(prefix string) string {
	return prefix + "index.json"
}

// Export writes list to sink. The index is written last, so a reader that
// finds it can rely on every page it names.
func Export(ctx context.Context, sink Sink, list []model.Note, opts Options) (Result, error) {
	ctx = obs.WithOp(ctx, "export")
	log := obs.From(ctx).With("pkg", "export")
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	theme := opts.Theme
	if theme == "" {
		theme = "light"
	}

	res := Result{Index: Index{ExportedAt: now().UTC(), Notes: make([]Entry, 0, len(list))}}
	written := make(map[string]bool, 2*len(list)+1)

	for _, n := range list {
		base := opts.Prefix + "notes/" + safeName(n.ID)
		entry := Entry{
			ID:        n.ID,
			Title:     n.Title,
			Preview:   notes.Preview(n.Content, previewRunes),
			Page:      base + ".html",
			Source:    base + ".md",
			UpdatedAt: n.UpdatedAt,
		}
		if n.IsShared() && opts.ShareOrigin != "" {
			entry.ShareURL = notes.ShareURL(opts.ShareOrigin, n.ShareToken)
		}

		page, err := notes.RenderPage(n, entry.ShareURL, theme)
		if err != nil {
			return res, fmt.Errorf("render note %s: %w", n.ID, err)
		}
		if err := sink.Put(ctx, entry.Page, page, "text/html; charset=utf-8"); err != nil {
			return res, err
		}
		if err := sink.Put(ctx, entry.Source, []byte(markdownSource(n)), "text/markdown; charset=utf-8"); err != nil {
			return res, err
		}
		written[entry.Page] = true
		written[entry.Source] = true
		res.Written += 2
		res.Index.Notes = append(res.Index.Notes, entry)
	}
	res.Index.Count = len(res.Index.Notes)

	index, err := json.MarshalIndent(res.Index, "", "  ")
	if err != nil {
		return res, fmt.Errorf("encode index: %w", err)
	}
	if err := sink.Put(ctx, IndexKey(opts.Prefix), index, "application/json"); err != nil {
		return res, err
	}
	res.Written++

	if opts.Prune {
		keys, err := sink.List(ctx, opts.Prefix+"notes/")
		if err != nil {
			return res, err
		}
		for _, k := range keys {
			if written[k] {
				continue
			}
			if err := sink.Delete(ctx, k); err != nil {
				return res, err
			}
			res.Pruned++
		}
	}

	log.Info("export_done", "notes", res.Index.Count, "written", res.Written, "pruned", res.Pruned)
	return res, nil
}

func markdownSource(n model.Note) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(n.Title)
	b.WriteString("\n\n")
	b.WriteString(n.Content)
	if !strings.HasSuffix(n.Content, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// safeName keeps ids usable as a single path element.
func safeName(id model.ID) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id.String())
	if s == "" {
		return "_"
	}
	return s
}
