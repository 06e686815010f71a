package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed fixed-window limiter shared by every server replica.
type PG struct {
	pool   pgxQuerier
	window time.Duration
	max    int
	now    func() time.Time
}

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter allowing max uploads per window.
func NewPG(pool *pgxpool.Pool, window time.Duration, max int) *PG {
	return NewPGWithQuerier(pool, window, max)
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter.
func NewPGWithQuerier(q pgxQuerier, window time.Duration, max int) *PG {
	return &PG{pool: q, window: window, max: max, now: time.Now}
}

// Allow counts the attempt in the client's current window, opening a new window
// when the previous one has expired.
func (l *PG) Allow(ctx context.Context, client string) (bool, time.Duration, error) {
	const q = `
INSERT INTO upload_limiter (client_hash, hits, window_start)
VALUES ($1, 1, now())
ON CONFLICT (client_hash) DO UPDATE
SET
  hits = CASE WHEN now() - upload_limiter.window_start > $2::interval THEN 1 ELSE upload_limiter.hits + 1 END,
  window_start = CASE WHEN now() - upload_limiter.window_start > $2::interval THEN now() ELSE upload_limiter.window_start END
RETURNING hits, window_start`
	var (
		hits  int
		start time.Time
	)
	if err := l.pool.QueryRow(ctx, q, HashIP(client), l.window).Scan(&hits, &start); err != nil {
		return false, 0, err
	}
	if hits > l.max {
		retry := start.Add(l.window).Sub(l.now())
		if retry < 0 {
			retry = 0
		}
		return false, retry, nil
	}
	return true, 0, nil
}
