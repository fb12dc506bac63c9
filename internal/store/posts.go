package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
)

const hashPrefix = "hash:"

// LookupHash returns the post id recorded for a content digest.
// Returns apperrors.ErrNotFound when the digest has never been stored.
func (s *Store) LookupHash(ctx context.Context, digest string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var postID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hashPrefix + digest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get hash index: %w", err)
		}
		return item.Value(func(val []byte) error {
			postID = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	return postID, nil
}

// CreatePostWithHash writes the post record and its dedup index entry in a
// single transaction: there is never a post without an index entry or an
// index entry pointing at a missing post. If another post already holds the
// digest — including one committed by a concurrent upload racing this one —
// the transaction fails with a duplicate-content error and nothing is
// written.
func (s *Store) CreatePostWithHash(ctx context.Context, post *domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	hashKey := []byte(hashPrefix + post.ContentHash)
	postKey := []byte("posts:" + post.ID)

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(hashKey)
		if err == nil {
			return apperrors.DuplicateContent("this file has already been uploaded")
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check hash index: %w", err)
		}

		if err := txn.Set(postKey, data); err != nil {
			return fmt.Errorf("set post record: %w", err)
		}
		return txn.Set(hashKey, []byte(post.ID))
	})

	// Two racing transactions both observe the digest as absent; Badger's
	// conflict detection aborts the later commit. The loser surfaces as a
	// duplicate, same as a straight index hit.
	if errors.Is(err, badger.ErrConflict) {
		return apperrors.DuplicateContent("this file has already been uploaded")
	}
	return err
}

// DeletePost removes the post record and its dedup index entry together.
// Returns the removed post so callers can clean up its stored files.
func (s *Store) DeletePost(ctx context.Context, id string) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var post domain.Post
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("posts:" + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get post: %w", err)
		}

		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &post)
		})
		if err != nil {
			return apperrors.Wrapf(err, apperrors.CodeInternal, "malformed posts:%s record", id)
		}

		if err := txn.Delete([]byte("posts:" + id)); err != nil {
			return fmt.Errorf("delete post record: %w", err)
		}
		return txn.Delete([]byte(hashPrefix + post.ContentHash))
	})
	if err != nil {
		return nil, err
	}

	return &post, nil
}

// RemoveTagFromAllPosts strips a tag id from every post that references it.
// Used by admin tag deletion to keep post tag lists consistent.
func (s *Store) RemoveTagFromAllPosts(ctx context.Context, tagID string) error {
	posts, err := s.Posts.All(ctx)
	if err != nil {
		return err
	}

	for _, post := range posts {
		if !post.HasTag(tagID) {
			continue
		}
		post.TagIDs = slices.DeleteFunc(post.TagIDs, func(id string) bool {
			return id == tagID
		})
		if err := s.Posts.Update(ctx, post.ID, post); err != nil {
			return fmt.Errorf("update post %s: %w", post.ID, err)
		}
	}

	return nil
}
