// Package tagindex derives the tag vocabulary of a gallery and evaluates
// conjunctive (AND) tag selections against it.
//
// Matching counts per-tag hits over the full item set, so a filter change costs
// O(tags × items). That is fine for a small gallery and is the known ceiling of
// this design.
package tagindex

import (
	"sort"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/goph-gallery/internal/model"
)

// Normalize returns the canonical (trimmed, lowercase) form of a tag.
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeSet canonicalizes tags, dropping blanks and duplicates while keeping
// first-seen order.
func NormalizeSet(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := Normalize(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Distinct returns the sorted, deduplicated, case-normalized union of tags.
// An empty input yields an empty, non-nil slice.
func Distinct(tags []string) []string {
	out := NormalizeSet(tags)
	sort.Strings(out)
	return out
}

// DistinctTags returns the vocabulary of all tags carried by items.
func DistinctTags(items []model.MediaItem) []string {
	var all []string
	for _, it := range items {
		all = append(all, it.Tags...)
	}
	return Distinct(all)
}

// MatchCount reports how many of the selected tags each item carries, indexed
// like items. Items without a stored ID are counted like any other.
func MatchCount(items []model.MediaItem, selected []string) []int {
	sel := NormalizeSet(selected)
	out := make([]int, len(items))
	for i, it := range items {
		n := 0
		for _, s := range sel {
			if carries(it.Tags, s) {
				n++
			}
		}
		out[i] = n
	}
	return out
}

// CountAssociations counts, per media id, the association rows whose tag is selected.
// Rows are expected to be unique per (media, tag).
func CountAssociations(rows []model.TagAssociation, selected []string) map[uuid.UUID]int {
	sel := make(map[string]struct{}, len(selected))
	for _, s := range NormalizeSet(selected) {
		sel[s] = struct{}{}
	}
	out := make(map[uuid.UUID]int)
	seen := make(map[model.TagAssociation]struct{}, len(rows))
	for _, r := range rows {
		r.Tag = Normalize(r.Tag)
		if _, ok := sel[r.Tag]; !ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out[r.MediaID]++
	}
	return out
}

// FullMatches returns the ids whose count equals the number of distinct selected tags.
func FullMatches(counts map[uuid.UUID]int, selected []string) []uuid.UUID {
	want := len(NormalizeSet(selected))
	ids := make([]uuid.UUID, 0, len(counts))
	for id, n := range counts {
		if n == want {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Matches reports whether item carries every selected tag. An empty selection matches.
func Matches(item model.MediaItem, selected []string) bool {
	for _, s := range NormalizeSet(selected) {
		if !carries(item.Tags, s) {
			return false
		}
	}
	return true
}

func carries(tags []string, tag string) bool {
	for _, t := range tags {
		if Normalize(t) == tag {
			return true
		}
	}
	return false
}
