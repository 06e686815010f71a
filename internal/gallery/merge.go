package gallery

import (
	"sort"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/tagindex"
)

// Sort orders items newest first (CreatedAt desc, ID desc) in place.
func Sort(items []model.MediaItem) {
	sort.SliceStable(items, func(i, j int) bool { return model.Newer(items[i], items[j]) })
}

// indexOf returns the position of the entry sharing item's media URL or ID, or -1.
func indexOf(items []model.MediaItem, item model.MediaItem) int {
	for i, it := range items {
		if it.MediaURL == item.MediaURL || (item.ID != uuid.Nil && it.ID == item.ID) {
			return i
		}
	}
	return -1
}

// Contains reports whether items already holds an entry for item's media URL or ID.
func Contains(items []model.MediaItem, item model.MediaItem) bool {
	return indexOf(items, item) >= 0
}

// Merge inserts item into the ordered sequence unless an entry with the same media
// URL or ID is present. Merging the same item any number of times, in any order
// relative to other items, yields the same sequence.
func Merge(items []model.MediaItem, item model.MediaItem) ([]model.MediaItem, bool) {
	if Contains(items, item) {
		return items, false
	}
	i := sort.Search(len(items), func(i int) bool { return !model.Newer(items[i], item) })
	out := make([]model.MediaItem, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, item)
	out = append(out, items[i:]...)
	return out, true
}

// Dedup keeps the first entry per media URL and per ID, preserving order.
func Dedup(items []model.MediaItem) []model.MediaItem {
	out := make([]model.MediaItem, 0, len(items))
	for _, it := range items {
		if !Contains(out, it) {
			out = append(out, it)
		}
	}
	return out
}

// Filter returns, in input order, the items carrying every selected tag.
// An empty selection returns all items.
func Filter(items []model.MediaItem, selected []string) []model.MediaItem {
	sel := tagindex.NormalizeSet(selected)
	out := make([]model.MediaItem, 0, len(items))
	if len(sel) == 0 {
		return append(out, items...)
	}
	counts := tagindex.MatchCount(items, sel)
	for i, it := range items {
		if counts[i] == len(sel) {
			out = append(out, it)
		}
	}
	return out
}

// unionTags adds tags missing from item; it reports whether anything changed.
func unionTags(item *model.MediaItem, tags []string) bool {
	changed := false
	for _, t := range tagindex.NormalizeSet(tags) {
		if !item.HasTag(t) {
			item.Tags = append(item.Tags, t)
			changed = true
		}
	}
	return changed
}
