// Package backend assembles the record store, realtime feed, blob store and
// upload limiter selected by configuration.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/blob"
	"github.com/and161185/goph-gallery/internal/config"
	"github.com/and161185/goph-gallery/internal/limiter"
	"github.com/and161185/goph-gallery/internal/migrate"
	"github.com/and161185/goph-gallery/internal/repository"
	"github.com/and161185/goph-gallery/internal/repository/postgres"
	"github.com/and161185/goph-gallery/internal/repository/sqlite"
)

// Records is a record store that can report its health.
type Records interface {
	repository.MediaRepository
	Ping(ctx context.Context) error
}

// Backend holds the opened collaborators. Close releases them.
type Backend struct {
	Records Records
	Feed    repository.Feed
	Blobs   repository.BlobStore
	// BlobHandler serves blobs over HTTP; nil when blobs live in S3.
	BlobHandler http.Handler
	Limiter     limiter.Limiter

	sweeper *limiter.Memory
	closers []func()
}

// Open builds every collaborator from cfg. On error, anything already opened is closed.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *Backend, err error) {
	b := &Backend{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	var pool *pgxpool.Pool
	switch cfg.Store.Driver {
	case migrate.Postgres:
		if cfg.Store.Migrate {
			if err := migrate.Up(ctx, migrate.Postgres, cfg.Store.DSN, log); err != nil {
				return nil, fmt.Errorf("migrate up: %w", err)
			}
		}
		pool, err = pgxpool.New(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		db := &postgres.DB{Pool: pool}
		b.closers = append(b.closers, db.Close)
		b.Records = postgres.NewMediaRepo(db)
		b.Feed = postgres.NewFeed(cfg.Store.DSN, log.Named("feed"))
	case migrate.SQLite:
		st, err := sqlite.Open(ctx, cfg.Store.DSN, log.Named("sqlite"))
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = st.Close() })
		b.Records = st
		b.Feed = st
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	switch cfg.Blob.Driver {
	case "fs":
		var signer *blob.Signer
		if cfg.Blob.SignSecret != "" {
			signer = blob.NewSigner([]byte(cfg.Blob.SignSecret), cfg.Blob.SignTTL)
		}
		fs, err := blob.NewFS(cfg.Blob.Dir, cfg.Server.PublicURL, signer, log.Named("blobs"))
		if err != nil {
			return nil, err
		}
		b.Blobs = fs
		b.BlobHandler = fs
	case "s3":
		s3, err := blob.NewS3(ctx, blob.S3Config{
			Bucket:     cfg.Blob.S3.Bucket,
			Region:     cfg.Blob.S3.Region,
			Endpoint:   cfg.Blob.S3.Endpoint,
			PublicRead: cfg.Blob.S3.PublicRead,
			PresignTTL: cfg.Blob.S3.PresignTTL,
		})
		if err != nil {
			return nil, err
		}
		b.Blobs = s3
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}

	switch cfg.Limit.Driver {
	case "postgres":
		if pool == nil {
			return nil, fmt.Errorf("postgres limiter needs the postgres store")
		}
		b.Limiter = limiter.NewPG(pool, cfg.Limit.Window, cfg.Limit.PerMinute)
	default:
		m := limiter.NewMemory(cfg.Limit.PerMinute, cfg.Limit.Burst, 10*time.Minute)
		b.Limiter = m
		b.sweeper = m
	}
	return b, nil
}

// Run performs background upkeep until ctx is done.
func (b *Backend) Run(ctx context.Context) {
	if b.sweeper != nil {
		b.sweeper.Run(ctx, time.Minute)
	}
}

// Close releases the stores in reverse order of opening.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
