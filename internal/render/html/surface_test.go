package html

import (
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/render"
)

func newSurface(t *testing.T) *Surface {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	return s
}

func item() model.MediaItem {
	return model.MediaItem{
		ID:        uuid.Must(uuid.FromString("0b3f8a1e-5c2d-4c3e-9a7b-1d2e3f4a5b6c")),
		Head:      "<b>Cat</b><script>alert(1)</script>",
		Title:     strings.Repeat("long caption ", 10),
		MediaURL:  "https://cdn/x.png",
		MediaType: model.MediaImage,
		Tags:      []string{"cats", "pets"},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTile_SanitizesAndTruncates(t *testing.T) {
	var b strings.Builder
	require.NoError(t, newSurface(t).Tile(&b, item()))
	out := b.String()

	require.Contains(t, out, "<b>Cat</b>")
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, `src="https://cdn/x.png"`)
	require.Contains(t, out, "...")
	require.NotContains(t, out, strings.Repeat("long caption ", 10))
}

func TestTile_Video(t *testing.T) {
	it := item()
	it.MediaType = model.MediaVideo
	var b strings.Builder
	require.NoError(t, newSurface(t).Tile(&b, it))
	require.Contains(t, b.String(), "<video")
}

func TestDetail_FullCaption(t *testing.T) {
	var b strings.Builder
	require.NoError(t, newSurface(t).Detail(&b, item()))
	out := b.String()
	require.Contains(t, out, strings.TrimSpace(strings.Repeat("long caption ", 10)))
	require.Contains(t, out, `href="/?tag=cats"`)
	require.Contains(t, out, "2024-01-01T00:00:00Z")
}

func TestFragments(t *testing.T) {
	s := newSurface(t)

	grid, err := s.GridFragment(render.View{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(grid, `<section id="gallery">`))
	require.Contains(t, grid, "No images found.")

	tags, err := s.TagsFragment(render.View{Vocabulary: []string{"a", "b"}, Selected: []string{"a"}})
	require.NoError(t, err)
	require.Contains(t, tags, `class="chip selected" href="/"`)
	require.Contains(t, tags, `href="/?tag=a&amp;tag=b"`)

	grid, err = s.GridFragment(render.View{Placeholders: []gallery.Placeholder{{Token: "tok"}}})
	require.NoError(t, err)
	require.Contains(t, grid, "Uploading...")
	require.NotContains(t, grid, "No images")

	modal, err := s.ModalFragment(item())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(modal, `<section id="modal">`))

	notice, err := s.Notice("error", "validation: please <enter> a tag")
	require.NoError(t, err)
	require.Contains(t, notice, "&lt;enter&gt;")
}

func TestPage(t *testing.T) {
	var b strings.Builder
	v := render.View{Total: 1, Items: []model.MediaItem{item()}, Vocabulary: []string{"cats"}, Selected: []string{"cats"}}
	require.NoError(t, newSurface(t).Page(&b, "Gallery", v))
	out := b.String()
	require.Contains(t, out, "<title>Gallery</title>")
	require.Contains(t, out, `id="gallery"`)
	require.Contains(t, out, `id="tags"`)
	require.Contains(t, out, `maxlength="64"`)
}

func TestQuery(t *testing.T) {
	require.Equal(t, "", Query(nil))
	require.Equal(t, "?tag=a+b&tag=c", Query([]string{"a b", "c"}))
}
