// Package catalog manages the tag vocabulary: normalized names, id
// allocation, renames, and deletion with cascade into post tag lists.
package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
	"github.com/sambooru/sambooru-server/internal/store"
)

// Catalog resolves tag names to durable tag records.
type Catalog struct {
	store  *store.Store
	logger *slog.Logger

	// Serializes get-or-create so concurrent uploads naming the same new
	// tag cannot both allocate an id for it.
	mu sync.Mutex
}

// New creates a tag catalog backed by the given store.
func New(s *store.Store, logger *slog.Logger) *Catalog {
	return &Catalog{store: s, logger: logger}
}

// GetOrCreate returns the tag with the given normalized name, creating it
// if it does not exist yet. The category applies only on creation —
// existing tags keep theirs — and defaults to the general category when
// empty.
func (c *Catalog) GetOrCreate(ctx context.Context, name, category string) (*domain.Tag, error) {
	if name == "" {
		return nil, apperrors.Validation("tag name is empty")
	}
	if category == "" {
		category = domain.DefaultTagCategory
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tag, err := c.store.FindTagByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	id, err := c.store.NextID("tags")
	if err != nil {
		return nil, err
	}

	tag = &domain.Tag{
		ID:        id,
		Name:      name,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.Tags.Create(ctx, id, tag); err != nil {
		return nil, err
	}

	c.logger.Debug("created tag", "id", id, "name", name, "category", category)
	return tag, nil
}

// ResolveNames maps a slice of normalized names to tag ids, creating
// missing tags under the given category. The returned ids preserve input
// order.
func (c *Catalog) ResolveNames(ctx context.Context, names []string, category string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		tag, err := c.GetOrCreate(ctx, name, category)
		if err != nil {
			return nil, err
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

// Rename updates a tag's name and category. The new name is normalized;
// renaming onto a name another tag already holds is a conflict.
func (c *Catalog) Rename(ctx context.Context, id, newName, category string) (*domain.Tag, error) {
	name := Normalize(newName)
	if name == "" {
		return nil, apperrors.Validation("tag name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tag, err := c.store.Tags.Get(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundf("tag %s not found", id)
		}
		return nil, err
	}

	if existing, err := c.store.FindTagByName(ctx, name); err == nil && existing.ID != id {
		return nil, apperrors.Conflictf("tag %q already exists", name)
	} else if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	tag.Name = name
	if category != "" {
		tag.Category = category
	}
	if err := c.store.Tags.Update(ctx, id, tag); err != nil {
		return nil, err
	}

	c.logger.Info("renamed tag", "id", id, "name", name, "category", tag.Category)
	return tag, nil
}

// Delete removes a tag and strips it from every post referencing it.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.store.Tags.Get(ctx, id); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFoundf("tag %s not found", id)
		}
		return err
	}

	if err := c.store.RemoveTagFromAllPosts(ctx, id); err != nil {
		return err
	}
	if err := c.store.Tags.Delete(ctx, id); err != nil {
		return err
	}

	c.logger.Info("deleted tag", "id", id)
	return nil
}

// All returns every tag in the catalog.
func (c *Catalog) All(ctx context.Context) ([]*domain.Tag, error) {
	return c.store.Tags.All(ctx)
}

// Get returns a single tag by id.
func (c *Catalog) Get(ctx context.Context, id string) (*domain.Tag, error) {
	tag, err := c.store.Tags.Get(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundf("tag %s not found", id)
		}
		return nil, err
	}
	return tag, nil
}
