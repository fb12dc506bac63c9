package store

import (
	"context"

	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
)

// FindTagByName scans the catalog for a tag with the given normalized name.
// Returns apperrors.ErrNotFound when no tag matches. Linear scan — the
// catalog is small and creation is serialized above this layer.
func (s *Store) FindTagByName(ctx context.Context, name string) (*domain.Tag, error) {
	for tag, err := range s.Tags.List(ctx) {
		if err != nil {
			return nil, err
		}
		if tag.Name == name {
			return tag, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// TagByName is an alias for FindTagByName satisfying query.PostSource.
func (s *Store) TagByName(ctx context.Context, name string) (*domain.Tag, error) {
	return s.FindTagByName(ctx, name)
}

// AllPosts returns every post record, satisfying query.PostSource.
func (s *Store) AllPosts(ctx context.Context) ([]*domain.Post, error) {
	return s.Posts.All(ctx)
}
