// Package service implements the read side of the gallery over a record store.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/goph-gallery/internal/errs"
	"github.com/and161185/goph-gallery/internal/gallery"
	"github.com/and161185/goph-gallery/internal/model"
	"github.com/and161185/goph-gallery/internal/repository"
	"github.com/and161185/goph-gallery/internal/tagindex"
)

// CatalogService defines gallery queries.
type CatalogService interface {
	// List returns every item with its tags, newest first.
	List(ctx context.Context) ([]model.MediaItem, error)
	// Filter returns the items carrying every selected tag, newest first.
	Filter(ctx context.Context, selected []string) ([]model.MediaItem, error)
	// Tags returns the distinct tag vocabulary, sorted.
	Tags(ctx context.Context) ([]string, error)
	// Get returns a single item by ID.
	Get(ctx context.Context, id uuid.UUID) (model.MediaItem, error)
}

var _ gallery.Loader = (*Catalog)(nil)

// Catalog implements CatalogService.
type Catalog struct {
	repo    repository.MediaRepository
	maxTags int
}

// NewCatalog constructs a Catalog. maxTags bounds the selection size of Filter;
// zero or less means 32.
func NewCatalog(repo repository.MediaRepository, maxTags int) *Catalog {
	if maxTags <= 0 {
		maxTags = 32
	}
	return &Catalog{repo: repo, maxTags: maxTags}
}

// List loads the full gallery. Duplicate media URLs from the store are collapsed
// to their newest row.
func (c *Catalog) List(ctx context.Context) ([]model.MediaItem, error) {
	items, err := c.repo.ListWithTags(ctx)
	if err != nil {
		return nil, fetchErr("list media", err)
	}
	gallery.Sort(items)
	return gallery.Dedup(items), nil
}

// Filter runs the server-side conjunctive filter: association rows for the
// selected tags are counted per item and only full matches are looked up.
// The work grows with tags times items.
func (c *Catalog) Filter(ctx context.Context, selected []string) ([]model.MediaItem, error) {
	sel := tagindex.NormalizeSet(selected)
	if len(sel) == 0 {
		return c.List(ctx)
	}
	if len(sel) > c.maxTags {
		return nil, fmt.Errorf("%w: too many tags selected (%d > %d)", errs.ErrValidation, len(sel), c.maxTags)
	}

	rows, err := c.repo.TagMatches(ctx, sel)
	if err != nil {
		return nil, fetchErr("tag matches", err)
	}
	ids := tagindex.FullMatches(tagindex.CountAssociations(rows, sel), sel)
	if len(ids) == 0 {
		return []model.MediaItem{}, nil
	}

	items, err := c.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fetchErr("list matches", err)
	}
	gallery.Sort(items)
	return gallery.Dedup(items), nil
}

// Tags returns the distinct vocabulary across all association rows.
func (c *Catalog) Tags(ctx context.Context) ([]string, error) {
	raw, err := c.repo.ListTags(ctx)
	if err != nil {
		return nil, fetchErr("list tags", err)
	}
	return tagindex.Distinct(raw), nil
}

// Get fetches one item.
func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (model.MediaItem, error) {
	if id == uuid.Nil {
		return model.MediaItem{}, fmt.Errorf("%w: empty id", errs.ErrValidation)
	}
	items, err := c.repo.ListByIDs(ctx, []uuid.UUID{id})
	if err != nil {
		return model.MediaItem{}, fetchErr("get media", err)
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.MediaItem{}, errs.ErrNotFound
}

func fetchErr(op string, err error) error {
	if errors.Is(err, errs.ErrFetch) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", errs.ErrFetch, op, err)
}
