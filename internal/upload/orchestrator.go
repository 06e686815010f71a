// Package upload sequences a media upload: validation, blob upload, public URL
// resolution, record insert and tag insert, with placeholder bookkeeping and
// best-effort compensation when a later step fails.
//
// Every step runs once per submission; there are no automatic retries.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/goph-gallery/internal/crypto"
	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/repository"
)

// compensateTimeout bounds the best-effort blob deletion after a failure.
const compensateTimeout = 10 * time.Second

// Placeholders is the view-side bookkeeping of uploads in flight.
// *gallery.ViewModel implements it.
type Placeholders interface {
	Begin(token string)
	Claim(token, mediaURL string)
	Confirm(token string, item model.MediaItem)
	Release(token string)
}

type noPlaceholders struct{}

func (noPlaceholders) Begin(string)                    {}
func (noPlaceholders) Claim(string, string)            {}
func (noPlaceholders) Confirm(string, model.MediaItem) {}
func (noPlaceholders) Release(string)                  {}

// Orchestrator runs uploads against a blob store and a record store.
type Orchestrator struct {
	blobs   repository.BlobStore
	records repository.MediaRepository
	view    Placeholders
	log     *zap.Logger
	now     func() time.Time
	token   func() string
	hook    func(Transition)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPlaceholders wires the view model that renders uploads in flight.
func WithPlaceholders(p Placeholders) Option { return func(o *Orchestrator) { o.view = p } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithClock overrides time.Now (used for blob keys).
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithTokens overrides placeholder token generation.
func WithTokens(fn func() string) Option { return func(o *Orchestrator) { o.token = fn } }

// WithTransitionHook registers fn for every state change.
func WithTransitionHook(fn func(Transition)) Option { return func(o *Orchestrator) { o.hook = fn } }

// New constructs an Orchestrator.
func New(blobs repository.BlobStore, records repository.MediaRepository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		blobs:   blobs,
		records: records,
		view:    noPlaceholders{},
		log:     zap.NewNop(),
		now:     time.Now,
		token:   func() string { return uuid.Must(uuid.NewV4()).String() },
		hook:    func(Transition) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run tracks one submission through the state machine.
type run struct {
	o     *Orchestrator
	token string
	state State
}

func (r *run) move(to State, err error) {
	if !CanMove(r.state, to) {
		panic(fmt.Sprintf("upload: illegal transition %s -> %s", r.state, to))
	}
	t := Transition{Token: r.token, From: r.state, To: to, Err: err}
	r.state = to
	r.o.log.Debug("upload transition",
		zap.String("token", r.token),
		zap.Stringer("from", t.From),
		zap.Stringer("to", t.To),
	)
	r.o.hook(t)
}

func (r *run) fail(err error) error {
	r.move(Failed, err)
	return err
}

// Submit runs one upload to Complete or Failed.
//
// Validation failures have no side effects. Once the blob is stored, a failure
// before the record exists triggers a best-effort blob deletion. A tag insert
// failure leaves the record in place: the returned item is valid and the error
// wraps both errs.ErrPersistence and errs.ErrPartialTags.
func (o *Orchestrator) Submit(ctx context.Context, in model.Upload) (model.MediaItem, error) {
	r := &run{o: o, token: o.token(), state: Idle}

	r.move(Validating, nil)
	intent, err := Validate(in)
	if err != nil {
		return model.MediaItem{}, r.fail(err)
	}
	intent.Token = r.token
	o.view.Begin(intent.Token)

	r.move(UploadingBlob, nil)
	intent.Key = Key(o.now(), intent.FileName, intent.Body)
	if err := o.blobs.Put(ctx, intent.Key, bytes.NewReader(intent.Body), int64(len(intent.Body)), intent.ContentType); err != nil {
		o.view.Release(intent.Token)
		return model.MediaItem{}, r.fail(fmt.Errorf("%w: upload %s: %w", errs.ErrStorage, intent.Key, err))
	}

	r.move(ResolvingURL, nil)
	url, err := o.blobs.PublicURL(ctx, intent.Key)
	if err == nil && url == "" {
		err = fmt.Errorf("empty public url")
	}
	if err != nil {
		o.compensate(ctx, intent)
		o.view.Release(intent.Token)
		return model.MediaItem{}, r.fail(fmt.Errorf("%w: resolve url for %s: %w", errs.ErrStorage, intent.Key, err))
	}
	intent.MediaURL = url
	o.view.Claim(intent.Token, url)

	r.move(InsertingRecord, nil)
	item, err := o.records.InsertMedia(ctx, model.NewMedia{
		Head:      intent.Head,
		Title:     intent.Title,
		MediaURL:  intent.MediaURL,
		MediaType: intent.MediaType,
	})
	if err != nil {
		o.compensate(ctx, intent)
		o.view.Release(intent.Token)
		return model.MediaItem{}, r.fail(fmt.Errorf("%w: insert media: %w", errs.ErrPersistence, err))
	}

	r.move(InsertingTags, nil)
	if err := o.records.InsertTags(ctx, item.ID, intent.Tags); err != nil {
		// The row stays and is rendered without tags; its claim suppressed the echo.
		o.log.Warn("media stored without complete tags",
			zap.String("id", item.ID.String()),
			zap.Strings("tags", intent.Tags),
			zap.Error(err),
		)
		o.view.Confirm(intent.Token, item)
		return item, r.fail(fmt.Errorf("%w: %w: %w", errs.ErrPersistence, errs.ErrPartialTags, err))
	}
	item.Tags = append([]string(nil), intent.Tags...)

	r.move(Complete, nil)
	o.view.Confirm(intent.Token, item)
	o.log.Info("upload complete",
		zap.String("id", item.ID.String()),
		zap.String("key", intent.Key),
		zap.String("type", string(item.MediaType)),
	)
	return item, nil
}

// compensate deletes an orphaned blob. Failures are logged, never returned.
func (o *Orchestrator) compensate(ctx context.Context, intent model.UploadIntent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	if err := o.blobs.Delete(ctx, intent.Key); err != nil {
		o.log.Warn("orphaned blob left behind",
			zap.String("key", intent.Key),
			zap.String("digest", crypto.Digest(intent.Body)),
			zap.Error(err))
	}
}
