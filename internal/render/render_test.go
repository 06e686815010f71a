package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/model"
)

// recorder is a Surface that writes one line per call.
type recorder struct{}

func (recorder) Tile(w io.Writer, it model.MediaItem) error {
	_, err := fmt.Fprintf(w, "tile:%s\n", it.MediaURL)
	return err
}
func (recorder) Placeholder(w io.Writer, p gallery.Placeholder) error {
	_, err := fmt.Fprintf(w, "placeholder:%s\n", p.Token)
	return err
}
func (recorder) Chips(w io.Writer, chips []Chip) error {
	for _, c := range chips {
		if _, err := fmt.Fprintf(w, "chip:%s:%v:%s\n", c.Tag, c.Selected, strings.Join(c.Toggled, "+")); err != nil {
			return err
		}
	}
	return nil
}
func (recorder) Detail(w io.Writer, it model.MediaItem) error {
	_, err := fmt.Fprintf(w, "detail:%s\n", it.MediaURL)
	return err
}
func (recorder) Empty(w io.Writer, s EmptyState) error {
	_, err := fmt.Fprintf(w, "empty:%s\n", s.Message())
	return err
}

func mk(url string, at int64, tags ...string) model.MediaItem {
	return model.MediaItem{ID: uuid.Must(uuid.NewV4()), MediaURL: url, MediaType: model.MediaImage, CreatedAt: time.Unix(at, 0), Tags: tags}
}

func TestGrid_EmptyStates(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Grid(recorder{}, &b, View{}))
	require.Equal(t, "empty:No images found.\n", b.String())

	b.Reset()
	require.NoError(t, Grid(recorder{}, &b, View{Total: 3, Selected: []string{"x"}}))
	require.Equal(t, "empty:No images match all selected tags... yet\n", b.String())

	b.Reset()
	require.NoError(t, TagBar(recorder{}, &b, View{}))
	require.Equal(t, "empty:No tags\n", b.String())
}

func TestGrid_PlaceholdersFirst(t *testing.T) {
	var b strings.Builder
	v := View{
		Total:        1,
		Items:        []model.MediaItem{mk("u/1", 1)},
		Placeholders: []gallery.Placeholder{{Token: "t"}},
	}
	require.NoError(t, Grid(recorder{}, &b, v))
	require.Equal(t, "placeholder:t\ntile:u/1\n", b.String())

	b.Reset()
	require.NoError(t, Grid(recorder{}, &b, View{Placeholders: []gallery.Placeholder{{Token: "t"}}}))
	require.Equal(t, "placeholder:t\n", b.String())
}

func TestChipsAndToggle(t *testing.T) {
	var b strings.Builder
	require.NoError(t, TagBar(recorder{}, &b, View{Vocabulary: []string{"a", "b"}, Selected: []string{"b"}}))
	require.Equal(t, "chip:a:false:b+a\nchip:b:true:\n", b.String())

	sel := []string{"a"}
	require.Equal(t, []string{"a", "b"}, Toggle(sel, "B"))
	require.Equal(t, []string{}, Toggle(sel, "a"))
	require.Equal(t, []string{"a"}, sel)
	require.Equal(t, []string{"a"}, Toggle(Toggle(sel, "c"), "c"))
}

type staticLoader []model.MediaItem

func (l staticLoader) List(context.Context) ([]model.MediaItem, error) { return l, nil }

func TestSnapshot(t *testing.T) {
	vm := gallery.New(staticLoader{mk("u/1", 1, "a", "b"), mk("u/2", 2, "b")})
	defer vm.Close()
	_, err := vm.Load(context.Background())
	require.NoError(t, err)

	v := Snapshot(vm, []string{" A "})
	require.Equal(t, 2, v.Total)
	require.Equal(t, []string{"a"}, v.Selected)
	require.Len(t, v.Items, 1)
	require.Equal(t, "u/1", v.Items[0].MediaURL)
	require.Equal(t, []string{"a", "b"}, v.Vocabulary)
}
