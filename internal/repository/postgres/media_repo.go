package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/repository"
)

var _ repository.MediaRepository = (*MediaRepo)(nil)

// MediaRepo implements MediaRepository using PostgreSQL.
type MediaRepo struct{ db *DB }

// NewMediaRepo constructs a media repository.
func NewMediaRepo(db *DB) *MediaRepo { return &MediaRepo{db: db} }

const selectMedia = `
SELECT m.id, m.head, m.title, m.media_url, m.media_type, m.created_at,
       COALESCE(array_agg(t.tag ORDER BY t.tag) FILTER (WHERE t.tag IS NOT NULL), '{}') AS tags
FROM media m
LEFT JOIN media_tags t ON t.media_id = m.id`

const orderMedia = `
GROUP BY m.id
ORDER BY m.created_at DESC, m.id DESC`

// ListWithTags returns every media row with its aggregated tags, newest first.
func (r *MediaRepo) ListWithTags(ctx context.Context) ([]model.MediaItem, error) {
	rows, err := r.db.Pool.Query(ctx, selectMedia+orderMedia)
	if err != nil {
		return nil, err
	}
	return scanMedia(rows)
}

// ListByIDs returns the given media rows with their tags, newest first.
func (r *MediaRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.MediaItem, error) {
	if len(ids) == 0 {
		return []model.MediaItem{}, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}
	rows, err := r.db.Pool.Query(ctx, selectMedia+`
WHERE m.id = ANY($1::uuid[])`+orderMedia, keys)
	if err != nil {
		return nil, err
	}
	return scanMedia(rows)
}

func scanMedia(rows pgx.Rows) ([]model.MediaItem, error) {
	defer rows.Close()

	out := []model.MediaItem{}
	for rows.Next() {
		var (
			it model.MediaItem
			mt string
		)
		if err := rows.Scan(&it.ID, &it.Head, &it.Title, &it.MediaURL, &mt, &it.CreatedAt, &it.Tags); err != nil {
			return nil, err
		}
		it.MediaType = model.MediaType(mt)
		out = append(out, it)
	}
	return out, rows.Err()
}

// InsertMedia writes a media row; the database assigns id and created_at.
func (r *MediaRepo) InsertMedia(ctx context.Context, m model.NewMedia) (model.MediaItem, error) {
	if !m.MediaType.Valid() {
		return model.MediaItem{}, fmt.Errorf("%w: media type %q", errs.ErrValidation, m.MediaType)
	}
	const q = `
INSERT INTO media (head, title, media_url, media_type)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`
	it := model.MediaItem{Head: m.Head, Title: m.Title, MediaURL: m.MediaURL, MediaType: m.MediaType}
	err := r.db.Pool.QueryRow(ctx, q, m.Head, m.Title, m.MediaURL, string(m.MediaType)).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.MediaItem{}, fmt.Errorf("media url %s: %w", m.MediaURL, errs.ErrAlreadyExists)
		}
		return model.MediaItem{}, err
	}
	return it, nil
}

// InsertTags writes all associations in one transaction. Existing pairs are skipped.
func (r *MediaRepo) InsertTags(ctx context.Context, mediaID uuid.UUID, tags []string) (err error) {
	if len(tags) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `INSERT INTO media_tags (media_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for i, tag := range tags {
		if _, err = tx.Exec(ctx, ins, mediaID, tag); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("media %s: %w", mediaID, errs.ErrNotFound)
			}
			return fmt.Errorf("tag[%d]: %w", i, err)
		}
	}
	return nil
}

// ListTags returns the tag column of every association row.
func (r *MediaRepo) ListTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT tag FROM media_tags`)
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
func (r *MediaRepo) TagMatches(ctx context.Context, tags []string) ([]model.TagAssociation, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `SELECT media_id, tag FROM media_tags WHERE tag = ANY($1)`, tags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TagAssociation
	for rows.Next() {
		var a model.TagAssociation
		if err := rows.Scan(&a.MediaID, &a.Tag); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks connectivity.
func (r *MediaRepo) Ping(ctx context.Context) error {
	var one int
	if err := r.db.Pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
