package term

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

func TestSurface(t *testing.T) {
	s := Surface{Width: 80}
	it := model.MediaItem{
		ID:        uuid.Must(uuid.NewV4()),
		Head:      "<b>Cat</b>",
		Title:     "a &amp; b",
		MediaURL:  "https://cdn/x.png",
		MediaType: model.MediaImage,
		Tags:      []string{"cats", "pets"},
		CreatedAt: time.Now(),
	}

	var b strings.Builder
	require.NoError(t, s.Tile(&b, it))
	require.Contains(t, b.String(), "Cat")
	require.NotContains(t, b.String(), "<b>")
	require.Contains(t, b.String(), "a & b")
	require.Contains(t, b.String(), "#cats #pets")

	b.Reset()
	require.NoError(t, s.Detail(&b, it))
	require.Contains(t, b.String(), it.ID.String())

	b.Reset()
	require.NoError(t, s.Placeholder(&b, gallery.Placeholder{Token: "tok"}))
	require.Contains(t, b.String(), "Uploading... tok")

	b.Reset()
	require.NoError(t, render.TagBar(s, &b, render.View{Vocabulary: []string{"cats", "pets"}, Selected: []string{"pets"}}))
	require.Contains(t, b.String(), "cats")
	require.Contains(t, b.String(), "pets")

	b.Reset()
	require.NoError(t, render.Grid(s, &b, render.View{Total: 1, Selected: []string{"x"}}))
	require.Contains(t, b.String(), "No images match all selected tags... yet")
}
