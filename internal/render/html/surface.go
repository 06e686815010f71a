// Package html renders the gallery with html/template for the web page and its
// datastar patches.
package html

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"net/url"
	"time"

	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/render"
	"github.com/and161185/goph-gallery/internal/sanitize"
)

//go:embed templates/*.html
var templatesFS embed.FS

var _ render.Surface = (*Surface)(nil)

// Surface implements render.Surface with HTML fragments.
type Surface struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Surface, error) {
	tmpl, err := template.New("gallery").Funcs(template.FuncMap{
		// Head and title are stored sanitized; they are sanitized again on output.
		"rich":      func(s string) template.HTML { return template.HTML(sanitize.Text(s)) },
		"preview":   func(s string) string { return sanitize.Truncate(sanitize.Plain(s), sanitize.CaptionPreview) },
		"plain":     sanitize.Plain,
		"query":     Query,
		"list":      func(s ...string) []string { return s },
		"fileLabel": sanitize.FileLabel,
		"since":     func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"isVideo":   func(t model.MediaType) bool { return t == model.MediaVideo },
		"maxHead":   func() int { return sanitize.MaxHead },
		"maxTitle":  func() int { return sanitize.MaxTitle },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Surface{tmpl: tmpl}, nil
}

// Query encodes a tag selection as "?tag=a&tag=b", or "" when empty.
func Query(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "?" + url.Values{"tag": tags}.Encode()
}

// Tile renders a gallery tile.
func (s *Surface) Tile(w io.Writer, item model.MediaItem) error {
	return s.tmpl.ExecuteTemplate(w, "tile", item)
}

// Placeholder renders an "Uploading..." tile.
func (s *Surface) Placeholder(w io.Writer, p gallery.Placeholder) error {
	return s.tmpl.ExecuteTemplate(w, "placeholder", p)
}

// Chips renders the tag filter bar.
func (s *Surface) Chips(w io.Writer, chips []render.Chip) error {
	return s.tmpl.ExecuteTemplate(w, "chips", chips)
}

// Detail renders the modal view of one item.
func (s *Surface) Detail(w io.Writer, item model.MediaItem) error {
	return s.tmpl.ExecuteTemplate(w, "detail", item)
}

// Empty renders an empty-state notice.
func (s *Surface) Empty(w io.Writer, state render.EmptyState) error {
	return s.tmpl.ExecuteTemplate(w, "empty", state.Message())
}

// GridFragment renders the #gallery element for v.
func (s *Surface) GridFragment(v render.View) (string, error) {
	var inner bytes.Buffer
	if err := render.Grid(s, &inner, v); err != nil {
		return "", err
	}
	return s.wrap("gallery", inner.String())
}

// TagsFragment renders the #tags element for v.
func (s *Surface) TagsFragment(v render.View) (string, error) {
	var inner bytes.Buffer
	if err := render.TagBar(s, &inner, v); err != nil {
		return "", err
	}
	return s.wrap("tags", inner.String())
}

// ModalFragment renders the #modal element holding item's detail view.
func (s *Surface) ModalFragment(item model.MediaItem) (string, error) {
	var inner bytes.Buffer
	if err := s.Detail(&inner, item); err != nil {
		return "", err
	}
	return s.wrap("modal", inner.String())
}

// Notice renders the #notice element with a status or error message.
func (s *Surface) Notice(kind, message string) (string, error) {
	var b bytes.Buffer
	err := s.tmpl.ExecuteTemplate(&b, "notice", map[string]string{"Kind": kind, "Message": message})
	return b.String(), err
}

func (s *Surface) wrap(id, inner string) (string, error) {
	var b bytes.Buffer
	err := s.tmpl.ExecuteTemplate(&b, "section", map[string]any{"ID": id, "Inner": template.HTML(inner)})
	return b.String(), err
}

// Page is the data of the full HTML page.
type Page struct {
	Title    string
	Selected []string
	Grid     template.HTML
	Tags     template.HTML
}

// Page renders the full page for v.
func (s *Surface) Page(w io.Writer, title string, v render.View) error {
	grid, err := s.GridFragment(v)
	if err != nil {
		return err
	}
	tags, err := s.TagsFragment(v)
	if err != nil {
		return err
	}
	return s.tmpl.ExecuteTemplate(w, "page", Page{
		Title:    title,
		Selected: v.Selected,
		Grid:     template.HTML(grid),
		Tags:     template.HTML(tags),
	})
}
