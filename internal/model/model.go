// Package model defines domain entities used by services and repositories.
package model

import (
	"bytes"
	"time"

	"github.com/gofrs/uuid/v5"
)

// MediaType is the kind of asset behind a MediaItem.
type MediaType string

// Supported media types.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Valid reports whether t is a supported media type.
func (t MediaType) Valid() bool { return t == MediaImage || t == MediaVideo }

// MediaItem is a stored image or video with its caption metadata and tag set.
type MediaItem struct {
	ID        uuid.UUID // assigned by the record store, immutable
	Head      string    // sanitized, <= 64 runes
	Title     string    // sanitized caption, <= 1024 runes
	MediaURL  string    // publicly retrievable blob URL
	MediaType MediaType
	Tags      []string  // lowercase, deduplicated
	CreatedAt time.Time // ordering key assigned by the store
}

// Newer reports whether a sorts before b in gallery order:
// CreatedAt descending, ties broken by ID descending.
func Newer(a, b MediaItem) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID.Bytes(), b.ID.Bytes()) > 0
}

// HasTag reports whether the item carries tag (already normalized).
func (m MediaItem) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NewMedia is the row written for a new MediaItem, before the store assigns ID and CreatedAt.
type NewMedia struct {
	Head      string
	Title     string
	MediaURL  string
	MediaType MediaType
}

// TagAssociation is one (media, tag) edge. Unique per pair.
type TagAssociation struct {
	MediaID uuid.UUID
	Tag     string
}

// Upload is a raw form submission as received from a client.
type Upload struct {
	FileName    string
	ContentType string // may be empty; sniffed from Body then
	Body        []byte
	Head        string
	Title       string
	Tags        string // comma separated
}

// UploadIntent is a validated, sanitized upload in flight.
type UploadIntent struct {
	Token       string // placeholder key chosen by the client side
	FileName    string
	ContentType string
	Body        []byte
	Head        string
	Title       string
	Tags        []string
	MediaType   MediaType

	Key      string // blob key, set once UploadingBlob starts
	MediaURL string // set once ResolvingURL succeeds
}

// EventKind discriminates realtime feed events.
type EventKind string

// Realtime event kinds.
const (
	EventInsert EventKind = "insert" // a media row was inserted (tags may follow)
	EventTag    EventKind = "tag"    // a tag association was inserted
)

// Event is one realtime row-change notification.
// For EventInsert Item carries the row; for EventTag Item.ID and Tag are set.
type Event struct {
	Kind EventKind
	Item MediaItem
	Tag  string
}
