// Package term renders the gallery as styled terminal text for the CLI.
package term

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/render"
	"github.com/and161185/goph-gallery/internal/sanitize"
)

var _ render.Surface = (*Surface)(nil)

var (
	tileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5f9fb0")).
			Padding(0, 1)
	pendingStyle = tileStyle.BorderForeground(lipgloss.Color("#6c757d")).Faint(true)
	headStyle    = lipgloss.NewStyle().Bold(true)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c757d"))
	chipStyle    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#5f9fb0"))
	chipOnStyle  = chipStyle.Foreground(lipgloss.Color("255")).Background(lipgloss.Color("236")).Bold(true)
	emptyStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#f39c12"))
)

// Surface implements render.Surface for terminals.
type Surface struct {
	Width int // tile width in cells; zero means 60
}

func (s Surface) width() int {
	if s.Width <= 0 {
		return 60
	}
	return s.Width
}

// Tile prints a compact box: head, caption preview, tags, type and URL.
func (s Surface) Tile(w io.Writer, item model.MediaItem) error {
	lines := []string{
		headStyle.Render(orDash(sanitize.Plain(item.Head))),
		sanitize.Truncate(sanitize.Plain(item.Title), sanitize.CaptionPreview),
		metaStyle.Render(fmt.Sprintf("%s  #%s", item.MediaType, strings.Join(item.Tags, " #"))),
		metaStyle.Render(item.ID.String() + "  " + item.MediaURL),
	}
	_, err := fmt.Fprintln(w, tileStyle.Width(s.width()).Render(strings.Join(lines, "\n")))
	return err
}

// Placeholder prints an upload in flight.
func (s Surface) Placeholder(w io.Writer, p gallery.Placeholder) error {
	_, err := fmt.Fprintln(w, pendingStyle.Width(s.width()).Render("Uploading... "+p.Token))
	return err
}

// Chips prints the tag bar; selected tags are highlighted.
func (s Surface) Chips(w io.Writer, chips []render.Chip) error {
	parts := make([]string, 0, len(chips))
	for _, c := range chips {
		st := chipStyle
		if c.Selected {
			st = chipOnStyle
		}
		parts = append(parts, st.Render(c.Tag))
	}
	_, err := fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	return err
}

// Detail prints the full item.
func (s Surface) Detail(w io.Writer, item model.MediaItem) error {
	body := lipgloss.JoinVertical(lipgloss.Left,
		headStyle.Render(orDash(sanitize.Plain(item.Head))),
		"",
		sanitize.Plain(item.Title),
		"",
		metaStyle.Render("id:      "+item.ID.String()),
		metaStyle.Render("type:    "+string(item.MediaType)),
		metaStyle.Render("url:     "+item.MediaURL),
		metaStyle.Render("tags:    "+strings.Join(item.Tags, ", ")),
		metaStyle.Render("created: "+item.CreatedAt.Local().Format("2006-01-02 15:04:05")),
	)
	_, err := fmt.Fprintln(w, tileStyle.Width(s.width()).Render(body))
	return err
}

// Empty prints an empty-state notice.
func (s Surface) Empty(w io.Writer, state render.EmptyState) error {
	_, err := fmt.Fprintln(w, emptyStyle.Render(state.Message()))
	return err
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
