package tagindex

import (
	"math/rand"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-gallery/internal/model"
)

func item(tags ...string) model.MediaItem {
	return model.MediaItem{ID: uuid.Must(uuid.NewV4()), Tags: tags}
}

func TestDistinctTags_SortedNormalizedUnique(t *testing.T) {
	t.Parallel()

	items := []model.MediaItem{
		item("Zebra", "cat"),
		item("cat", "apple"),
		item(" CAT "),
	}
	want := []string{"apple", "cat", "zebra"}
	require.Equal(t, want, DistinctTags(items))

	for i := 0; i < 20; i++ {
		shuffled := append([]model.MediaItem(nil), items...)
		rand.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, want, DistinctTags(shuffled))
	}
}

func TestDistinctTags_Empty(t *testing.T) {
	t.Parallel()

	got := DistinctTags(nil)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestMatchCount(t *testing.T) {
	t.Parallel()

	a := item("a", "b")
	b := item("a")
	c := item("c")
	counts := MatchCount([]model.MediaItem{a, b, c}, []string{"a", "B", "a"})

	require.Equal(t, []int{2, 1, 0}, counts)
}

func TestMatchCount_ItemsWithoutID(t *testing.T) {
	t.Parallel()

	a := model.MediaItem{MediaURL: "u1", Tags: []string{"a", "b"}}
	b := model.MediaItem{MediaURL: "u2", Tags: []string{"a"}}

	require.Equal(t, []int{2, 1}, MatchCount([]model.MediaItem{a, b}, []string{"a", "b"}))
}

func TestMatches(t *testing.T) {
	t.Parallel()

	it := item("a", "b")
	require.True(t, Matches(it, nil))
	require.True(t, Matches(it, []string{"A"}))
	require.True(t, Matches(it, []string{"a", "b"}))
	require.False(t, Matches(it, []string{"a", "c"}))
}

func TestCountAssociations_AndFullMatches(t *testing.T) {
	t.Parallel()

	one := uuid.Must(uuid.NewV4())
	two := uuid.Must(uuid.NewV4())
	rows := []model.TagAssociation{
		{MediaID: one, Tag: "a"},
		{MediaID: one, Tag: "b"},
		{MediaID: one, Tag: "b"}, // duplicate delivery
		{MediaID: two, Tag: "a"},
		{MediaID: two, Tag: "z"},
	}
	counts := CountAssociations(rows, []string{"a", "b"})
	require.Equal(t, 2, counts[one])
	require.Equal(t, 1, counts[two])

	require.Equal(t, []uuid.UUID{one}, FullMatches(counts, []string{"a", "b"}))
	require.Empty(t, FullMatches(map[uuid.UUID]int{}, []string{"a"}))
}
