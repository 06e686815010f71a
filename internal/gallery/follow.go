package gallery

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/repository"
)

// ErrFeedClosed is returned by Follow when the feed ends before ctx does.
var ErrFeedClosed = errors.New("realtime feed closed")

// Follow applies every event from one feed subscription until the feed closes or
// ctx is done.
func (v *ViewModel) Follow(ctx context.Context, feed repository.Feed) error {
	ch, err := feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	return v.consume(ctx, ch)
}

func (v *ViewModel) consume(ctx context.Context, ch <-chan model.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrFeedClosed
			}
			v.Apply(ev)
		}
	}
}

// SuperviseConfig tunes Supervise.
type SuperviseConfig struct {
	BaseDelay time.Duration // first retry delay (default 500ms)
	MaxDelay  time.Duration // cap for retry delays (default 30s)
	// OnState is called with true once a subscription is live and false when it drops.
	OnState func(up bool)
	Log     *zap.Logger
}

// Supervise keeps v following feed until ctx is done. Every (re)subscription is
// followed by a full Load, so events missed while disconnected are reconciled
// from the store.
func Supervise(ctx context.Context, v *ViewModel, feed repository.Feed, cfg SuperviseConfig) error {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.OnState == nil {
		cfg.OnState = func(bool) {}
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	backoff := retry.WithCappedDuration(cfg.MaxDelay, retry.NewExponential(cfg.BaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		ch, err := feed.Subscribe(ctx)
		if err != nil {
			cfg.Log.Warn("realtime subscribe failed", zap.Error(err))
			return retry.RetryableError(err)
		}
		if _, err := v.Load(ctx); err != nil {
			cfg.Log.Warn("gallery reload after subscribe failed", zap.Error(err))
		}

		cfg.OnState(true)
		err = v.consume(ctx, ch)
		cfg.OnState(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		cfg.Log.Warn("realtime feed dropped", zap.Error(err))
		return retry.RetryableError(err)
	})
}
