package notes

import (
	"bytes"
	"html/template"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/notes-client/internal/model"
)

var sanitizer = bluemonday.UGCPolicy()

// RenderMarkdown converts note content to sanitized HTML. Raw HTML in the
// note survives only as far as the UGC policy allows.
func RenderMarkdown(content string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(content))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	return sanitizer.SanitizeBytes(markdown.Render(doc, renderer))
}

var pageTemplate = template.Must(template.New("note").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    {{- if .ShareURL}}
    <link rel="canonical" href="{{.ShareURL}}">
    <meta property="og:title" content="{{.Title}}">
    <meta property="og:url" content="{{.ShareURL}}">
    {{- end}}
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; max-width: 800px; margin: 0 auto; padding: 2rem 1rem; }
        body.dark { background: #1a1a1a; color: #e0e0e0; }
        .meta { color: #888; font-size: 0.875rem; }
        pre, code { background: rgba(127,127,127,0.12); border-radius: 3px; }
        pre { padding: 1rem; overflow-x: auto; }
        img { max-width: 100%; }
    </style>
</head>
<body class="{{.Theme}}">
    <article>
        <h1>{{.Title}}</h1>
        <p class="meta">Updated {{.Updated}}</p>
        {{.Body}}
    </article>
</body>
</html>
`))

type pageData struct {
	Title    string
	ShareURL string
	Theme    string
	Updated  string
	Body     template.HTML
}

// RenderPage renders note as a standalone HTML document. shareURL may be
// empty for private notes; theme is "light" or "dark".
func RenderPage(note model.Note, shareURL, theme string) ([]byte, error) {
	updated := note.UpdatedAt.Time
	if updated.IsZero() {
		updated = note.CreatedAt.Time
	}
	data := pageData{
		Title:    note.Title,
		ShareURL: shareURL,
		Theme:    theme,
		Updated:  updated.Format(time.DateTime),
		Body:     template.HTML(RenderMarkdown(note.Content)),
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
