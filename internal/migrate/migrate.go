// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/and161185/goph-gallery/migrations"
)

// Supported record store drivers.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Up runs all pending migrations for driver against dsn.
func Up(ctx context.Context, driver, dsn string, log *zap.Logger) error {
	sqlDriver := "pgx"
	if driver == SQLite {
		sqlDriver = "sqlite"
	}
	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return UpDB(ctx, driver, db, log)
}

// UpDB runs all pending migrations for driver on an open database.
func UpDB(ctx context.Context, driver string, db *sql.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var dialect goose.Dialect
	switch driver {
	case Postgres:
		dialect = goose.DialectPostgres
	case SQLite:
		dialect = goose.DialectSQLite3
	default:
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}

	dir, err := fs.Sub(migrations.FS, driver)
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(dialect, db, dir)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied",
			zap.String("driver", driver),
			zap.String("source", r.Source.Path),
			zap.Duration("took", r.Duration),
		)
	}
	return nil
}
