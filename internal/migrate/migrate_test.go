package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestUpDB_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "g.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, UpDB(ctx, SQLite, db, zaptest.NewLogger(t)))
	// idempotent
	require.NoError(t, UpDB(ctx, SQLite, db, nil))

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM media_tags`).Scan(&n))
	require.Zero(t, n)
}

func TestUpDB_UnknownDriver(t *testing.T) {
	require.ErrorContains(t, UpDB(context.Background(), "mysql", nil, nil), "unsupported")
}
