// Package sqlite is an embedded record store on modernc.org/sqlite. Writes are
// published to an in-process realtime feed, so it serves single-process setups
// such as the CLI or a self-contained server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/migrate"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/realtime"
	"github.com/and161185/goph-gallery/internal/repository"
)

var (
	_ repository.MediaRepository = (*Store)(nil)
	_ repository.Feed            = (*Store)(nil)
)

// Store implements MediaRepository and Feed over a single SQLite database.
type Store struct {
	db     *sql.DB
	events *realtime.Broker[model.Event]
	log    *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	last int64 // last assigned created_at, unix micro
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection so the pragmas below hold for every statement.
	db.SetMaxOpenConns(1)
	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate.UpDB(ctx, migrate.SQLite, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:     db,
		events: realtime.NewBroker[model.Event](realtime.DefaultBuffer),
		log:    log,
		now:    time.Now,
	}
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(created_at), 0) FROM media`).Scan(&s.last); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the feed and the database.
func (s *Store) Close() error {
	s.events.Close()
	return s.db.Close()
}

// Subscribe streams events for writes made through this Store.
func (s *Store) Subscribe(ctx context.Context) (<-chan model.Event, error) {
	return s.events.Subscribe(ctx)
}

// Ping checks the database.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ListWithTags returns every media row with its tags, newest first.
func (s *Store) ListWithTags(ctx context.Context) ([]model.MediaItem, error) {
	return s.list(ctx, "", nil)
}

// ListByIDs returns the given media rows with their tags, newest first.
func (s *Store) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.MediaItem, error) {
	if len(ids) == 0 {
		return []model.MediaItem{}, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id.String())
	}
	in := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	return s.list(ctx, " WHERE id IN ("+in+")", args)
}

func (s *Store) list(ctx context.Context, where string, args []any) ([]model.MediaItem, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, head, title, media_url, media_type, created_at
FROM media`+where+`
ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MediaItem{}
	index := map[string]int{}
	for rows.Next() {
		var (
			it     model.MediaItem
			id, mt string
			at     int64
		)
		if err := rows.Scan(&id, &it.Head, &it.Title, &it.MediaURL, &mt, &at); err != nil {
			return nil, err
		}
		if it.ID, err = uuid.FromString(id); err != nil {
			return nil, fmt.Errorf("media id %q: %w", id, err)
		}
		it.MediaType = model.MediaType(mt)
		it.CreatedAt = time.UnixMicro(at).UTC()
		it.Tags = []string{}
		index[id] = len(out)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	tagWhere := strings.Replace(where, "WHERE id", "WHERE media_id", 1)
	trows, err := s.db.QueryContext(ctx, `SELECT media_id, tag FROM media_tags`+tagWhere+` ORDER BY tag`, args...)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var id, tag string
		if err := trows.Scan(&id, &tag); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			out[i].Tags = append(out[i].Tags, tag)
		}
	}
	return out, trows.Err()
}

// nextStamp returns a creation time strictly after every earlier one.
func (s *Store) nextStamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.now().UnixMicro()
	if t <= s.last {
		t = s.last + 1
	}
	s.last = t
	return t
}

// InsertMedia writes a media row with a fresh V4 id.
func (s *Store) InsertMedia(ctx context.Context, m model.NewMedia) (model.MediaItem, error) {
	if !m.MediaType.Valid() {
		return model.MediaItem{}, fmt.Errorf("%w: media type %q", errs.ErrValidation, m.MediaType)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.MediaItem{}, err
	}
	at := s.nextStamp()

	const q = `INSERT INTO media (id, head, title, media_url, media_type, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, id.String(), m.Head, m.Title, m.MediaURL, string(m.MediaType), at); err != nil {
		if hasCode(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE) {
			return model.MediaItem{}, fmt.Errorf("media url %s: %w", m.MediaURL, errs.ErrAlreadyExists)
		}
		return model.MediaItem{}, err
	}

	it := model.MediaItem{
		ID: id, Head: m.Head, Title: m.Title, MediaURL: m.MediaURL, MediaType: m.MediaType,
		CreatedAt: time.UnixMicro(at).UTC(),
	}
	s.events.Publish(model.Event{Kind: model.EventInsert, Item: it})
	return it, nil
}

// InsertTags writes all associations in one transaction. Existing pairs are skipped.
// A tag event is published for every newly inserted pair after commit.
func (s *Store) InsertTags(ctx context.Context, mediaID uuid.UUID, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var added []string
	for i, tag := range tags {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO media_tags (media_id, tag) VALUES (?, ?)`, mediaID.String(), tag)
		if err != nil {
			if hasCode(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) {
				return fmt.Errorf("media %s: %w", mediaID, errs.ErrNotFound)
			}
			return fmt.Errorf("tag[%d]: %w", i, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added = append(added, tag)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	for _, tag := range added {
		s.events.Publish(model.Event{Kind: model.EventTag, Item: model.MediaItem{ID: mediaID}, Tag: tag})
	}
	return nil
}

// ListTags returns the tag column of every association row.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM media_tags`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

// TagMatches returns the association rows whose tag is one of tags.
func (s *Store) TagMatches(ctx context.Context, tags []string) ([]model.TagAssociation, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(tags))
	for _, t := range tags {
		args = append(args, t)
	}
	in := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")
	rows, err := s.db.QueryContext(ctx, `SELECT media_id, tag FROM media_tags WHERE tag IN (`+in+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TagAssociation
	for rows.Next() {
		var (
			id string
			a  model.TagAssociation
		)
		if err := rows.Scan(&id, &a.Tag); err != nil {
			return nil, err
		}
		if a.MediaID, err = uuid.FromString(id); err != nil {
			return nil, fmt.Errorf("media id %q: %w", id, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func hasCode(err error, code int) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == code
}
