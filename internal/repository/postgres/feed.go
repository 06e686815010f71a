package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/convert"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/repository"
)

// Channel is the NOTIFY channel the media triggers publish on.
const Channel = "gallery_events"

var _ repository.Feed = (*Feed)(nil)

// notifyConn is the part of *pgx.Conn a feed subscription needs.
type notifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// Feed is a realtime feed over LISTEN/NOTIFY. Every subscription holds its own
// dedicated connection.
type Feed struct {
	connect func(ctx context.Context) (notifyConn, error)
	log     *zap.Logger
	buffer  int
}

// NewFeed constructs a feed that dials dsn for each subscription.
func NewFeed(dsn string, log *zap.Logger) *Feed {
	return NewFeedWithConnector(func(ctx context.Context) (notifyConn, error) {
		return pgx.Connect(ctx, dsn)
	}, log)
}

// NewFeedWithConnector constructs a feed over a custom connection factory.
func NewFeedWithConnector(connect func(ctx context.Context) (notifyConn, error), log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{connect: connect, log: log, buffer: 64}
}

// Subscribe issues LISTEN and streams decoded events until ctx ends or the
// connection fails; the channel is closed in both cases. Undecodable payloads
// are logged and skipped.
func (f *Feed) Subscribe(ctx context.Context) (<-chan model.Event, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("feed connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("listen: %w", err)
	}

	out := make(chan model.Event, f.buffer)
	go f.pump(ctx, conn, out)
	return out, nil
}

func (f *Feed) pump(ctx context.Context, conn notifyConn, out chan<- model.Event) {
	defer close(out)
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(cctx)
	}()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				f.log.Warn("feed connection lost", zap.Error(err))
			}
			return
		}
		if n.Channel != Channel {
			continue
		}
		ev, err := convert.DecodeNotification([]byte(n.Payload))
		if err != nil {
			f.log.Warn("skipping notification", zap.Error(err), zap.String("payload", n.Payload))
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}
