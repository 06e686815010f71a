package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

/************ fake pgx ************/
type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakePool struct {
	err      error
	hits     int
	start    time.Time
	lastSQL  string
	lastArgs []any
}

func (f *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return fakeRow{scan: func(dest ...any) error {
		if f.err != nil {
			return f.err
		}
		*(dest[0].(*int)) = f.hits
		*(dest[1].(*time.Time)) = f.start
		return nil
	}}
}

func TestPG_WithinBudget(t *testing.T) {
	fp := &fakePool{hits: 3, start: time.Now()}
	l := NewPGWithQuerier(fp, time.Minute, 3)

	ok, d, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, d)
	require.True(t, strings.Contains(fp.lastSQL, "INSERT INTO upload_limiter"))
	require.Equal(t, HashIP("1.2.3.4"), fp.lastArgs[0])
	require.Equal(t, time.Minute, fp.lastArgs[1])
}

func TestPG_OverBudget_RetryAfter(t *testing.T) {
	now := time.Unix(1000, 0)
	fp := &fakePool{hits: 4, start: now.Add(-20 * time.Second)}
	l := NewPGWithQuerier(fp, time.Minute, 3)
	l.now = func() time.Time { return now }

	ok, d, err := l.Allow(context.Background(), "c")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 40*time.Second, d)
}

func TestPG_DBError_Propagates(t *testing.T) {
	l := NewPGWithQuerier(&fakePool{err: errors.New("db boom")}, time.Minute, 3)

	ok, _, err := l.Allow(context.Background(), "c")
	require.Error(t, err)
	require.False(t, ok)
}

func TestMemory_BurstThenDelay(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewMemory(60, 2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
	require.InDelta(t, float64(time.Second), float64(d), float64(10*time.Millisecond))

	ok, _, _ = l.Allow(ctx, "b")
	require.True(t, ok, "clients have separate buckets")

	now = now.Add(time.Second)
	ok, _, _ = l.Allow(ctx, "a")
	require.True(t, ok)
}

func TestMemory_Sweep(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewMemory(60, 1, time.Minute)
	l.now = func() time.Time { return now }

	_, _, _ = l.Allow(context.Background(), "a")
	now = now.Add(2 * time.Minute)
	l.Sweep()
	require.Empty(t, l.visitors)
}

func TestHashIP_Determinism(t *testing.T) {
	a := HashIP("1.2.3.4:123")
	b := HashIP("1.2.3.4:123")
	c := HashIP("5.6.7.8:321")
	if string(a) != string(b) || string(a) == string(c) || len(a) != 32 {
		t.Fatalf("hash mismatch/len: %d", len(a))
	}
}
