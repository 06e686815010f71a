// Package repository defines the external collaborators the gallery core consumes:
// the record store, the blob store and the realtime feed.
package repository

import (
	"context"
	"io"

	"github.com/and161185/goph-gallery/internal/model"
	"github.com/gofrs/uuid/v5"
)

// MediaRepository provides access to media rows and their tag associations.
type MediaRepository interface {
	// ListWithTags returns every media item with its tags, newest first.
	ListWithTags(ctx context.Context) ([]model.MediaItem, error)
	// ListByIDs returns the given media items with their tags, newest first.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.MediaItem, error)
	// InsertMedia writes a media row and returns it with ID and CreatedAt assigned.
	InsertMedia(ctx context.Context, m model.NewMedia) (model.MediaItem, error)
	// InsertTags writes one association per tag. Existing pairs are ignored.
	InsertTags(ctx context.Context, mediaID uuid.UUID, tags []string) error
	// ListTags returns the tag column of every association row.
	ListTags(ctx context.Context) ([]string, error)
	// TagMatches returns the association rows whose tag is one of tags.
	TagMatches(ctx context.Context, tags []string) ([]model.TagAssociation, error)
}

// BlobStore holds uploaded media bytes.
type BlobStore interface {
	// Put stores body under key.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// PublicURL derives the publicly retrievable URL of key.
	PublicURL(ctx context.Context, key string) (string, error)
	// Delete removes key. Callers treat it as best effort.
	Delete(ctx context.Context, key string) error
}

// Feed delivers realtime change notifications for the media tables.
// Delivery is at-least-once and unordered.
type Feed interface {
	// Subscribe starts a subscription. The channel is closed when ctx ends or the
	// underlying transport fails.
	Subscribe(ctx context.Context) (<-chan model.Event, error)
}
