// Package gallery holds the client-side projection of the media store: the ordered
// set of rendered items, the active tag selection and the upload placeholders, merged
// with the realtime insert stream so that every media URL is rendered at most once.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/realtime"
	"github.com/and161185/goph-gallery/internal/tagindex"
)

// Loader fetches the full gallery, newest first.
type Loader interface {
	List(ctx context.Context) ([]model.MediaItem, error)
}

// ChangeKind names a view-state transition.
type ChangeKind string

// View-state transitions published to watchers.
const (
	ChangeReloaded  ChangeKind = "reloaded"
	ChangeInserted  ChangeKind = "inserted"
	ChangeTagged    ChangeKind = "tagged"
	ChangePending   ChangeKind = "pending"
	ChangeConfirmed ChangeKind = "confirmed"
	ChangeReleased  ChangeKind = "released"
)

// Change is one view-state transition. Item is set for inserted, tagged and
// confirmed changes; Token for placeholder changes.
type Change struct {
	Kind  ChangeKind
	Item  model.MediaItem
	Token string
}

// Result is the outcome of applying a realtime event.
type Result string

// Realtime merge outcomes.
const (
	Applied   Result = "applied"
	Duplicate Result = "duplicate"
	Claimed   Result = "claimed"
	Ignored   Result = "ignored"
)

// Placeholder is a locally rendered stand-in for an upload in flight.
type Placeholder struct {
	Token    string
	MediaURL string // empty until the upload's public URL is known
	Since    time.Time
}

// ViewModel is the gallery state of one page session.
//
// Realtime events and upload completions arrive from different goroutines;
// every method serializes on mu.
type ViewModel struct {
	mu       sync.Mutex
	loader   Loader
	log      *zap.Logger
	now      func() time.Time
	observe  func(model.EventKind, Result)
	items    []model.MediaItem
	pending  []Placeholder
	claims   map[string]string   // media URL -> placeholder token
	loading  int                 // fetches in flight
	late     map[string]struct{} // URLs merged while a fetch was in flight
	selected []string
	changes  *realtime.Broker[Change]
	closed   bool
}

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithLogger sets the logger (no-op by default).
func WithLogger(l *zap.Logger) Option { return func(v *ViewModel) { v.log = l } }

// WithClock overrides time.Now for placeholder timestamps.
func WithClock(now func() time.Time) Option { return func(v *ViewModel) { v.now = now } }

// WithObserver registers a callback invoked for every applied realtime event.
func WithObserver(fn func(model.EventKind, Result)) Option {
	return func(v *ViewModel) { v.observe = fn }
}

// New constructs an empty view model backed by loader.
func New(loader Loader, opts ...Option) *ViewModel {
	v := &ViewModel{
		loader:  loader,
		log:     zap.NewNop(),
		now:     time.Now,
		observe: func(model.EventKind, Result) {},
		claims:  make(map[string]string),
		late:    make(map[string]struct{}),
		changes: realtime.NewBroker[Change](realtime.DefaultBuffer),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Load replaces the rendered sequence with a fresh copy from the store.
// On failure the previous state is kept and an error wrapping errs.ErrFetch is returned.
// Items confirmed or applied while the fetch runs survive the swap.
func (v *ViewModel) Load(ctx context.Context) ([]model.MediaItem, error) {
	v.mu.Lock()
	v.loading++
	v.mu.Unlock()

	items, err := v.loader.List(ctx)
	if err != nil {
		v.mu.Lock()
		v.endLoadLocked()
		v.mu.Unlock()
		if !errors.Is(err, errs.ErrFetch) {
			err = fmt.Errorf("%w: %v", errs.ErrFetch, err)
		}
		return nil, err
	}

	fresh := make([]model.MediaItem, 0, len(items))
	for _, it := range items {
		it.Tags = tagindex.NormalizeSet(it.Tags)
		fresh = append(fresh, it)
	}
	Sort(fresh)
	fresh = Dedup(fresh)

	v.mu.Lock()
	kept := fresh[:0]
	for _, it := range fresh {
		// An in-flight upload owns its URL until it confirms.
		if _, claimed := v.claims[it.MediaURL]; claimed {
			continue
		}
		kept = append(kept, it)
	}
	for _, it := range v.items {
		if _, ok := v.late[it.MediaURL]; !ok {
			continue
		}
		if i := indexOf(kept, it); i >= 0 {
			unionTags(&kept[i], it.Tags)
			continue
		}
		kept, _ = Merge(kept, it)
	}
	v.endLoadLocked()
	v.items = kept
	out := cloneAll(v.items)
	v.mu.Unlock()

	v.changes.Publish(Change{Kind: ChangeReloaded})
	return out, nil
}

// ApplyRealtimeInsert merges a realtime insert. It is a no-op when an entry with
// the same media URL or ID is rendered or when a placeholder claims the URL.
func (v *ViewModel) ApplyRealtimeInsert(item model.MediaItem) bool {
	return v.Apply(model.Event{Kind: model.EventInsert, Item: item}) == Applied
}

// ApplyRealtimeTags merges late tag notifications into a rendered item.
func (v *ViewModel) ApplyRealtimeTags(mediaID uuid.UUID, tags ...string) bool {
	ev := model.Event{Kind: model.EventTag, Item: model.MediaItem{ID: mediaID}}
	applied := false
	for _, t := range tags {
		ev.Tag = t
		if v.Apply(ev) == Applied {
			applied = true
		}
	}
	return applied
}

// Apply merges one realtime event and reports the outcome.
func (v *ViewModel) Apply(ev model.Event) Result {
	var (
		res    Result
		change Change
	)

	v.mu.Lock()
	switch ev.Kind {
	case model.EventInsert:
		res, change = v.applyInsertLocked(ev.Item)
	case model.EventTag:
		res, change = v.applyTagLocked(ev.Item.ID, ev.Tag)
	default:
		res = Ignored
	}
	v.mu.Unlock()

	v.observe(ev.Kind, res)
	if res == Applied {
		v.changes.Publish(change)
	}
	return res
}

func (v *ViewModel) applyInsertLocked(item model.MediaItem) (Result, Change) {
	if _, claimed := v.claims[item.MediaURL]; claimed {
		v.log.Debug("realtime insert claimed by placeholder", zap.String("url", item.MediaURL))
		return Claimed, Change{}
	}
	item.Tags = tagindex.NormalizeSet(item.Tags)
	merged, ok := Merge(v.items, item)
	if !ok {
		return Duplicate, Change{}
	}
	v.items = merged
	v.markLateLocked(item.MediaURL)
	return Applied, Change{Kind: ChangeInserted, Item: cloneItem(item)}
}

func (v *ViewModel) applyTagLocked(id uuid.UUID, tag string) (Result, Change) {
	for i := range v.items {
		if v.items[i].ID != id {
			continue
		}
		if !unionTags(&v.items[i], []string{tag}) {
			return Duplicate, Change{}
		}
		v.markLateLocked(v.items[i].MediaURL)
		return Applied, Change{Kind: ChangeTagged, Item: cloneItem(v.items[i])}
	}
	return Ignored, Change{}
}

// Begin shows a placeholder for an upload that has passed validation.
func (v *ViewModel) Begin(token string) {
	v.mu.Lock()
	v.pending = append([]Placeholder{{Token: token, Since: v.now()}}, v.pending...)
	v.mu.Unlock()
	v.changes.Publish(Change{Kind: ChangePending, Token: token})
}

// Claim marks mediaURL as owned by the placeholder token, so realtime echoes of
// the upload's own row are suppressed until Confirm or Release.
func (v *ViewModel) Claim(token, mediaURL string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.pending {
		if v.pending[i].Token == token {
			v.pending[i].MediaURL = mediaURL
			v.claims[mediaURL] = token
			return
		}
	}
}

// Confirm substitutes the placeholder with the stored item and drops its claim.
// If the item is already rendered the placeholder is simply removed.
func (v *ViewModel) Confirm(token string, item model.MediaItem) {
	item.Tags = tagindex.NormalizeSet(item.Tags)

	v.mu.Lock()
	v.dropLocked(token)
	if merged, ok := Merge(v.items, item); ok {
		v.items = merged
	}
	v.markLateLocked(item.MediaURL)
	v.mu.Unlock()

	v.changes.Publish(Change{Kind: ChangeConfirmed, Token: token, Item: cloneItem(item)})
}

// Release removes a failed upload's placeholder and claim.
func (v *ViewModel) Release(token string) {
	v.mu.Lock()
	v.dropLocked(token)
	v.mu.Unlock()
	v.changes.Publish(Change{Kind: ChangeReleased, Token: token})
}

func (v *ViewModel) markLateLocked(url string) {
	if v.loading > 0 {
		v.late[url] = struct{}{}
	}
}

func (v *ViewModel) endLoadLocked() {
	v.loading--
	if v.loading == 0 {
		clear(v.late)
	}
}

func (v *ViewModel) dropLocked(token string) {
	for i, p := range v.pending {
		if p.Token != token {
			continue
		}
		if p.MediaURL != "" && v.claims[p.MediaURL] == token {
			delete(v.claims, p.MediaURL)
		}
		v.pending = append(v.pending[:i], v.pending[i+1:]...)
		return
	}
}

// Items returns the full rendered sequence.
func (v *ViewModel) Items() []model.MediaItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneAll(v.items)
}

// Find returns the rendered item with the given id.
func (v *ViewModel) Find(id uuid.UUID) (model.MediaItem, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, it := range v.items {
		if it.ID == id {
			return cloneItem(it), true
		}
	}
	return model.MediaItem{}, false
}

// Placeholders returns the uploads in flight, newest first.
func (v *ViewModel) Placeholders() []Placeholder {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Placeholder(nil), v.pending...)
}

// Tags returns the vocabulary of the rendered items.
func (v *ViewModel) Tags() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return tagindex.DistinctTags(v.items)
}

// FilterByTags returns, in gallery order, the items carrying every selected tag.
func (v *ViewModel) FilterByTags(selected []string) []model.MediaItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneAll(Filter(v.items, selected))
}

// ToggleTag adds tag to the selection, or removes it when already selected,
// and returns the new selection.
func (v *ViewModel) ToggleTag(tag string) []string {
	tag = tagindex.Normalize(tag)
	v.mu.Lock()
	defer v.mu.Unlock()
	if tag == "" {
		return append([]string(nil), v.selected...)
	}
	for i, s := range v.selected {
		if s == tag {
			v.selected = append(v.selected[:i], v.selected[i+1:]...)
			return append([]string(nil), v.selected...)
		}
	}
	v.selected = append(v.selected, tag)
	sort.Strings(v.selected)
	return append([]string(nil), v.selected...)
}

// SetSelection replaces the active tag selection.
func (v *ViewModel) SetSelection(tags []string) {
	sel := tagindex.Distinct(tags)
	v.mu.Lock()
	v.selected = sel
	v.mu.Unlock()
}

// Selected returns the active tag selection, sorted.
func (v *ViewModel) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.selected...)
}

// Visible returns the items matching the active selection.
func (v *ViewModel) Visible() []model.MediaItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneAll(Filter(v.items, v.selected))
}

// Watch streams view-state changes until ctx is done or the view model is closed.
func (v *ViewModel) Watch(ctx context.Context) (<-chan Change, error) {
	return v.changes.Subscribe(ctx)
}

// Close tears the session down: watchers are released and later watches end immediately.
func (v *ViewModel) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()
	v.changes.Close()
}

func cloneItem(it model.MediaItem) model.MediaItem {
	it.Tags = append([]string(nil), it.Tags...)
	return it
}

func cloneAll(items []model.MediaItem) []model.MediaItem {
	out := make([]model.MediaItem, len(items))
	for i, it := range items {
		out[i] = cloneItem(it)
	}
	return out
}
