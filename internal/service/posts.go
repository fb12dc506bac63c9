// Package service implements post management on top of the store and
// catalog: reads, tag edits, and deletion with file cleanup.
package service

import (
	"context"
	"log/slog"

	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
	"github.com/sambooru/sambooru-server/internal/media"
	"github.com/sambooru/sambooru-server/internal/store"
)

// PostService manages stored posts.
type PostService struct {
	store     *store.Store
	catalog   *catalog.Catalog
	processor *media.Processor
	logger    *slog.Logger
}

// NewPostService creates a post service.
func NewPostService(s *store.Store, cat *catalog.Catalog, proc *media.Processor, logger *slog.Logger) *PostService {
	return &PostService{
		store:     s,
		catalog:   cat,
		processor: proc,
		logger:    logger,
	}
}

// Get returns a post by id.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.store.Posts.Get(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFoundf("post %s not found", id)
		}
		return nil, err
	}
	return post, nil
}

// Delete removes a post and its stored files. Allowed for the uploader,
// moderators, and admins.
func (s *PostService) Delete(ctx context.Context, user *domain.User, id string) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !user.CanManagePost(post) {
		return apperrors.Forbidden("you may only delete your own posts")
	}

	// Record first: once the dedup index entry is gone the content can be
	// re-uploaded, and leftover digest-named files are harmless because
	// they would be rewritten with identical bytes.
	deleted, err := s.store.DeletePost(ctx, id)
	if err != nil {
		return err
	}

	if err := s.processor.RemoveArtifacts(deleted.ContentHash, deleted.FileExt); err != nil {
		s.logger.Warn("failed to remove post files",
			slog.String("post_id", id),
			slog.String("digest", deleted.ContentHash),
			slog.Any("error", err),
		)
	}

	s.logger.Info("deleted post",
		slog.String("post_id", id),
		slog.String("by", user.ID),
	)
	return nil
}

// EditTags replaces a post's tag list. Allowed for the uploader,
// moderators, and admins. The raw tag string must name at least one tag
// after normalization.
func (s *PostService) EditTags(ctx context.Context, user *domain.User, id, rawTags string) (*domain.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.CanManagePost(post) {
		return nil, apperrors.Forbidden("you may only edit your own posts")
	}

	names := catalog.SplitTokens(rawTags)
	if len(names) == 0 {
		return nil, apperrors.Validation("at least one tag is required")
	}

	tagIDs, err := s.catalog.ResolveNames(ctx, names, "")
	if err != nil {
		return nil, err
	}

	post.TagIDs = tagIDs
	if err := s.store.Posts.Update(ctx, id, post); err != nil {
		return nil, err
	}

	s.logger.Info("edited post tags",
		slog.String("post_id", id),
		slog.String("by", user.ID),
		slog.Int("tags", len(tagIDs)),
	)
	return post, nil
}

// ResolveTags fetches the tag records referenced by a set of posts,
// keyed by id. Dangling references are skipped.
func (s *PostService) ResolveTags(ctx context.Context, posts []*domain.Post) (map[string]*domain.Tag, error) {
	tags := make(map[string]*domain.Tag)
	for _, post := range posts {
		for _, id := range post.TagIDs {
			if _, ok := tags[id]; ok {
				continue
			}
			tag, err := s.store.Tags.Get(ctx, id)
			if err != nil {
				if apperrors.Is(err, apperrors.ErrNotFound) {
					continue
				}
				return nil, err
			}
			tags[id] = tag
		}
	}
	return tags, nil
}
