// Package render defines the rendering surface the gallery draws through and
// the composition shared by every implementation.
package render

import (
	"io"

	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/tagindex"
)

// EmptyState is an explicit "nothing to show" condition.
type EmptyState int

// Empty states.
const (
	NoItems EmptyState = iota
	NoMatches
	NoTags
)

// Message is the user-facing text of the state.
func (e EmptyState) Message() string {
	switch e {
	case NoMatches:
		return "No images match all selected tags... yet"
	case NoTags:
		return "No tags"
	default:
		return "No images found."
	}
}

// Chip is one tag filter toggle.
type Chip struct {
	Tag      string
	Selected bool
	// Toggled is the selection after clicking this chip.
	Toggled []string
}

// Surface draws gallery parts. Implementations write markup or text to w.
type Surface interface {
	Tile(w io.Writer, item model.MediaItem) error
	Placeholder(w io.Writer, p gallery.Placeholder) error
	Chips(w io.Writer, chips []Chip) error
	Detail(w io.Writer, item model.MediaItem) error
	Empty(w io.Writer, state EmptyState) error
}

// View is a snapshot of what one session sees.
type View struct {
	Total        int // items before filtering
	Items        []model.MediaItem
	Placeholders []gallery.Placeholder
	Vocabulary   []string
	Selected     []string
}

// Snapshot reads a view from vm, filtered by selected.
func Snapshot(vm *gallery.ViewModel, selected []string) View {
	all := vm.Items()
	sel := tagindex.NormalizeSet(selected)
	return View{
		Total:        len(all),
		Items:        gallery.Filter(all, sel),
		Placeholders: vm.Placeholders(),
		Vocabulary:   tagindex.DistinctTags(all),
		Selected:     sel,
	}
}

// Chips builds one chip per vocabulary tag.
func Chips(vocabulary, selected []string) []Chip {
	sel := tagindex.NormalizeSet(selected)
	out := make([]Chip, 0, len(vocabulary))
	for _, tag := range vocabulary {
		c := Chip{Tag: tag}
		for _, s := range sel {
			if s == tag {
				c.Selected = true
			}
		}
		c.Toggled = Toggle(sel, tag)
		out = append(out, c)
	}
	return out
}

// Toggle adds tag to selected or removes it when present. The input is not modified.
func Toggle(selected []string, tag string) []string {
	tag = tagindex.Normalize(tag)
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == tag {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found && tag != "" {
		out = append(out, tag)
	}
	return out
}

// EmptyFor picks the empty state for a view with no visible items.
func EmptyFor(v View) EmptyState {
	if v.Total > 0 && len(v.Selected) > 0 {
		return NoMatches
	}
	return NoItems
}

// Grid draws placeholders first, then the visible tiles, or the empty state
// when there is nothing at all.
func Grid(s Surface, w io.Writer, v View) error {
	for _, p := range v.Placeholders {
		if err := s.Placeholder(w, p); err != nil {
			return err
		}
	}
	if len(v.Items) == 0 {
		if len(v.Placeholders) > 0 {
			return nil
		}
		return s.Empty(w, EmptyFor(v))
	}
	for _, it := range v.Items {
		if err := s.Tile(w, it); err != nil {
			return err
		}
	}
	return nil
}

// TagBar draws the filter chips, or the "no tags" state for an empty vocabulary.
func TagBar(s Surface, w io.Writer, v View) error {
	if len(v.Vocabulary) == 0 {
		return s.Empty(w, NoTags)
	}
	return s.Chips(w, Chips(v.Vocabulary, v.Selected))
}
