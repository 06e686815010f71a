// Package convert maps domain values to and from their JSON wire forms:
// database notifications, websocket frames and CLI output.
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	u "github.com/gofrs/uuid/v5"

	"github.com/and161185/goph-gallery/internal/gallery"
	model "github.com/and161185/goph-gallery/internal/model"
)

// --- Media ---

// Media is the JSON form of a MediaItem.
type Media struct {
	ID        string    `json:"id"`
	Head      string    `json:"head"`
	Title     string    `json:"title"`
	MediaURL  string    `json:"media_url"`
	MediaType string    `json:"media_type"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// ToMedia converts a domain item to its wire form. Tags are never null.
func ToMedia(it model.MediaItem) Media {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	return Media{
		ID:        it.ID.String(),
		Head:      it.Head,
		Title:     it.Title,
		MediaURL:  it.MediaURL,
		MediaType: string(it.MediaType),
		Tags:      tags,
		CreatedAt: it.CreatedAt,
	}
}

// ToMedias converts a slice of items.
func ToMedias(items []model.MediaItem) []Media {
	out := make([]Media, 0, len(items))
	for _, it := range items {
		out = append(out, ToMedia(it))
	}
	return out
}

// FromMedia converts a wire item back to the domain.
func FromMedia(m Media) (model.MediaItem, error) {
	id, err := u.FromString(m.ID)
	if err != nil {
		return model.MediaItem{}, fmt.Errorf("invalid id: %w", err)
	}
	mt := model.MediaType(m.MediaType)
	if !mt.Valid() {
		return model.MediaItem{}, fmt.Errorf("invalid media type %q", m.MediaType)
	}
	return model.MediaItem{
		ID:        id,
		Head:      m.Head,
		Title:     m.Title,
		MediaURL:  m.MediaURL,
		MediaType: mt,
		Tags:      m.Tags,
		CreatedAt: m.CreatedAt,
	}, nil
}

// --- Notifications (database -> server) ---

// Notification is the payload the record store triggers publish on insert into
// media ("insert") or media_tags ("tag").
type Notification struct {
	Op        string    `json:"op"`
	ID        string    `json:"id,omitempty"`
	Head      string    `json:"head,omitempty"`
	Title     string    `json:"title,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	MediaID   string    `json:"media_id,omitempty"`
	Tag       string    `json:"tag,omitempty"`
}

// DecodeNotification parses a notification payload into a realtime event.
func DecodeNotification(payload []byte) (model.Event, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return model.Event{}, fmt.Errorf("decode notification: %w", err)
	}
	switch model.EventKind(n.Op) {
	case model.EventInsert:
		it, err := FromMedia(Media{
			ID: n.ID, Head: n.Head, Title: n.Title, MediaURL: n.MediaURL,
			MediaType: n.MediaType, CreatedAt: n.CreatedAt,
		})
		if err != nil {
			return model.Event{}, fmt.Errorf("insert notification: %w", err)
		}
		if it.MediaURL == "" {
			return model.Event{}, fmt.Errorf("insert notification: empty media_url")
		}
		return model.Event{Kind: model.EventInsert, Item: it}, nil
	case model.EventTag:
		id, err := u.FromString(n.MediaID)
		if err != nil {
			return model.Event{}, fmt.Errorf("tag notification: invalid media_id: %w", err)
		}
		if n.Tag == "" {
			return model.Event{}, fmt.Errorf("tag notification: empty tag")
		}
		return model.Event{Kind: model.EventTag, Item: model.MediaItem{ID: id}, Tag: n.Tag}, nil
	default:
		return model.Event{}, fmt.Errorf("unknown notification op %q", n.Op)
	}
}

// EncodeNotification is the inverse of DecodeNotification.
func EncodeNotification(ev model.Event) ([]byte, error) {
	var n Notification
	switch ev.Kind {
	case model.EventInsert:
		m := ToMedia(ev.Item)
		n = Notification{
			Op: string(ev.Kind), ID: m.ID, Head: m.Head, Title: m.Title,
			MediaURL: m.MediaURL, MediaType: m.MediaType, CreatedAt: m.CreatedAt,
		}
	case model.EventTag:
		n = Notification{Op: string(ev.Kind), MediaID: ev.Item.ID.String(), Tag: ev.Tag}
	default:
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return json.Marshal(n)
}

// --- Frames (server -> websocket client) ---

// Frame is one websocket message describing a gallery change.
type Frame struct {
	Kind  string `json:"kind"`
	Item  *Media `json:"item,omitempty"`
	Token string `json:"token,omitempty"`
}

// ToFrame converts a view-model change to a websocket frame.
func ToFrame(c gallery.Change) Frame {
	f := Frame{Kind: string(c.Kind), Token: c.Token}
	switch c.Kind {
	case gallery.ChangeInserted, gallery.ChangeTagged, gallery.ChangeConfirmed:
		m := ToMedia(c.Item)
		f.Item = &m
	}
	return f
}

// FromFrame converts a websocket frame back to a change.
func FromFrame(f Frame) (gallery.Change, error) {
	c := gallery.Change{Kind: gallery.ChangeKind(f.Kind), Token: f.Token}
	if f.Item != nil {
		it, err := FromMedia(*f.Item)
		if err != nil {
			return gallery.Change{}, err
		}
		c.Item = it
	}
	return c, nil
}
