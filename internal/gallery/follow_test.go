package gallery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-gallery/internal/model"
)

type scriptedFeed struct {
	mu    sync.Mutex
	subs  []chan model.Event
	calls int
	err   error
}

func (f *scriptedFeed) Subscribe(context.Context) (<-chan model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan model.Event, 8)
	f.subs = append(f.subs, ch)
	return ch, nil
}

func (f *scriptedFeed) last() chan model.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

func TestFollow_AppliesUntilClosed(t *testing.T) {
	t.Parallel()

	vm := New(&fakeLoader{})
	feed := &scriptedFeed{}
	done := make(chan error, 1)
	go func() { done <- vm.Follow(context.Background(), feed) }()

	require.Eventually(t, func() bool { feed.mu.Lock(); defer feed.mu.Unlock(); return len(feed.subs) == 1 }, time.Second, time.Millisecond)
	ch := feed.last()
	it := media(1, 1)
	ch <- model.Event{Kind: model.EventInsert, Item: it}
	ch <- model.Event{Kind: model.EventInsert, Item: it}
	ch <- model.Event{Kind: model.EventTag, Item: model.MediaItem{ID: it.ID}, Tag: "a"}
	close(ch)

	require.ErrorIs(t, <-done, ErrFeedClosed)
	got := vm.Items()
	require.Len(t, got, 1)
	require.Equal(t, []string{"a"}, got[0].Tags)
}

func TestFollow_SubscribeError(t *testing.T) {
	t.Parallel()

	vm := New(&fakeLoader{})
	want := errors.New("dial")
	require.ErrorIs(t, vm.Follow(context.Background(), &scriptedFeed{err: want}), want)
}

func TestSupervise_ResubscribesAndReloads(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	vm := New(loader)
	feed := &scriptedFeed{}

	var (
		mu     sync.Mutex
		states []bool
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, vm, feed, SuperviseConfig{
			BaseDelay: time.Millisecond,
			MaxDelay:  5 * time.Millisecond,
			OnState: func(up bool) {
				mu.Lock()
				states = append(states, up)
				mu.Unlock()
			},
		})
	}()

	require.Eventually(t, func() bool { feed.mu.Lock(); defer feed.mu.Unlock(); return len(feed.subs) == 1 }, time.Second, time.Millisecond)
	close(feed.last())
	require.Eventually(t, func() bool { feed.mu.Lock(); defer feed.mu.Unlock(); return len(feed.subs) == 2 }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(states), 3)
	require.Equal(t, []bool{true, false, true}, states[:3])
}
