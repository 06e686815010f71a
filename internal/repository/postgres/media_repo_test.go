package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/model"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var mediaCols = []string{"id", "head", "title", "media_url", "media_type", "created_at", "tags"}

func TestMediaRepo_ListWithTags(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMediaRepo(db)

	a, b := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT m.id, m.head, m.title, m.media_url, m.media_type, m.created_at,.*FROM media m\s+LEFT JOIN media_tags t ON t.media_id = m.id\s+GROUP BY m.id\s+ORDER BY m.created_at DESC, m.id DESC`).
		WillReturnRows(pgxmock.NewRows(mediaCols).
			AddRow(a, "h1", "t1", "u/1", "image", ts, []string{"cats", "pets"}).
			AddRow(b, "h2", "t2", "u/2", "video", ts.Add(-time.Hour), []string{}))

	out, err := r.ListWithTags(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, a, out[0].ID)
	require.Equal(t, []string{"cats", "pets"}, out[0].Tags)
	require.Equal(t, model.MediaVideo, out[1].MediaType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_ListWithTags_Error(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT m.id`).WillReturnError(errors.New("down"))
	_, err := NewMediaRepo(db).ListWithTags(context.Background())
	require.Error(t, err)
}

func TestMediaRepo_ListByIDs(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMediaRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`WHERE m.id = ANY\(\$1::uuid\[\]\)`).
		WithArgs([]string{id.String()}).
		WillReturnRows(pgxmock.NewRows(mediaCols).AddRow(id, "h", "t", "u", "image", time.Now(), []string{"a"}))

	out, err := r.ListByIDs(context.Background(), []uuid.UUID{id})
	require.NoError(t, err)
	require.Len(t, out, 1)

	out, err = r.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_InsertMedia(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewMediaRepo(db)

	id := uuid.Must(uuid.NewV4())
	ts := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO media \(head, title, media_url, media_type\)\s+VALUES \(\$1, \$2, \$3, \$4\)\s+RETURNING id, created_at`).
		WithArgs("h", "t", "u/1", "image").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(id, ts))

	it, err := r.InsertMedia(context.Background(), model.NewMedia{Head: "h", Title: "t", MediaURL: "u/1", MediaType: model.MediaImage})
	require.NoError(t, err)
	require.Equal(t, id, it.ID)
	require.Equal(t, ts, it.CreatedAt)
	require.Equal(t, "u/1", it.MediaURL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_InsertMedia_DuplicateURL(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO media`).
		WithArgs("h", "t", "u/1", "image").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := NewMediaRepo(db).InsertMedia(context.Background(), model.NewMedia{Head: "h", Title: "t", MediaURL: "u/1", MediaType: model.MediaImage})
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestMediaRepo_InsertMedia_BadType(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	_, err := NewMediaRepo(db).InsertMedia(context.Background(), model.NewMedia{MediaURL: "u", MediaType: "audio"})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_InsertTags_Commit(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	id := uuid.Must(uuid.NewV4())
	mock.ExpectBegin()
	for _, tag := range []string{"a", "b"} {
		mock.ExpectExec(`INSERT INTO media_tags \(media_id, tag\) VALUES \(\$1, \$2\) ON CONFLICT DO NOTHING`).
			WithArgs(id, tag).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, NewMediaRepo(db).InsertTags(context.Background(), id, []string{"a", "b"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_InsertTags_RollbackOnError(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	id := uuid.Must(uuid.NewV4())
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO media_tags`).WithArgs(id, "a").WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	err := NewMediaRepo(db).InsertTags(context.Background(), id, []string{"a", "b"})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_InsertTags_Empty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	require.NoError(t, NewMediaRepo(db).InsertTags(context.Background(), uuid.Must(uuid.NewV4()), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_ListTags(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT tag FROM media_tags`).
		WillReturnRows(pgxmock.NewRows([]string{"tag"}).AddRow("a").AddRow("b").AddRow("a"))

	out, err := NewMediaRepo(db).ListTags(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "a"}, out)
}

func TestMediaRepo_TagMatches(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	id := uuid.Must(uuid.NewV4())
	mock.ExpectQuery(`SELECT media_id, tag FROM media_tags WHERE tag = ANY\(\$1\)`).
		WithArgs([]string{"a", "b"}).
		WillReturnRows(pgxmock.NewRows([]string{"media_id", "tag"}).AddRow(id, "a").AddRow(id, "b"))

	out, err := NewMediaRepo(db).TagMatches(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, []model.TagAssociation{{MediaID: id, Tag: "a"}, {MediaID: id, Tag: "b"}}, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMediaRepo_Ping(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT 1`).WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	require.NoError(t, NewMediaRepo(db).Ping(context.Background()))

	mock.ExpectQuery(`SELECT 1`).WillReturnError(errors.New("down"))
	require.ErrorContains(t, NewMediaRepo(db).Ping(context.Background()), "ping")
}
