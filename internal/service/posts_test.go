package service_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/config"
	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
	"github.com/sambooru/sambooru-server/internal/media"
	"github.com/sambooru/sambooru-server/internal/service"
	"github.com/sambooru/sambooru-server/internal/store"
)

type fixture struct {
	svc     *service.PostService
	store   *store.Store
	catalog *catalog.Catalog
	storage *media.Storage
}

func setup(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := t.TempDir()
	storage, err := media.NewStorage(
		filepath.Join(base, "images"),
		filepath.Join(base, "thumbnails"),
	)
	require.NoError(t, err)

	proc, err := media.NewProcessor(storage, config.TranscodeConfig{}, logger)
	require.NoError(t, err)

	cat := catalog.New(s, logger)
	return &fixture{
		svc:     service.NewPostService(s, cat, proc, logger),
		store:   s,
		catalog: cat,
		storage: storage,
	}
}

func (f *fixture) createPost(t *testing.T, digest, uploaderID string, tagNames ...string) *domain.Post {
	t.Helper()
	ctx := context.Background()

	tagIDs, err := f.catalog.ResolveNames(ctx, tagNames, "")
	require.NoError(t, err)

	id, err := f.store.NextID("posts")
	require.NoError(t, err)

	post := &domain.Post{
		ID:          id,
		ContentHash: digest,
		MediaType:   domain.MediaTypeImage,
		FileExt:     ".png",
		TagIDs:      tagIDs,
		UploaderID:  uploaderID,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.store.CreatePostWithHash(ctx, post))

	// Stored files the delete path should clean up.
	require.NoError(t, os.WriteFile(f.storage.AssetPath(digest, ".png"), []byte("asset"), 0o644))
	require.NoError(t, os.WriteFile(f.storage.PreviewPath(digest), []byte("preview"), 0o644))

	return post
}

func uploader() *domain.User {
	return &domain.User{ID: "u1", Username: "alice", Role: domain.RoleUser}
}

func stranger() *domain.User {
	return &domain.User{ID: "u2", Username: "bob", Role: domain.RoleUser}
}

func moderator() *domain.User {
	return &domain.User{ID: "u3", Username: "carol", Role: domain.RoleModerator}
}

func TestGet(t *testing.T) {
	f := setup(t)
	post := f.createPost(t, "h1", "u1", "cat")

	got, err := f.svc.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ContentHash, got.ContentHash)

	_, err = f.svc.Get(context.Background(), "999")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDelete_ByUploader(t *testing.T) {
	f := setup(t)
	post := f.createPost(t, "h1", "u1", "cat")

	require.NoError(t, f.svc.Delete(context.Background(), uploader(), post.ID))

	_, err := f.svc.Get(context.Background(), post.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// Files are gone.
	_, err = os.Stat(f.storage.AssetPath("h1", ".png"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(f.storage.PreviewPath("h1"))
	assert.True(t, os.IsNotExist(err))
}

func TestDelete_StrangerForbidden(t *testing.T) {
	f := setup(t)
	post := f.createPost(t, "h1", "u1", "cat")

	err := f.svc.Delete(context.Background(), stranger(), post.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	// Post untouched.
	_, err = f.svc.Get(context.Background(), post.ID)
	require.NoError(t, err)
}

func TestDelete_ModeratorAllowed(t *testing.T) {
	f := setup(t)
	post := f.createPost(t, "h1", "u1", "cat")

	require.NoError(t, f.svc.Delete(context.Background(), moderator(), post.ID))
}

func TestEditTags_ReplacesList(t *testing.T) {
	f := setup(t)
	post := f.createPost(t, "h1", "u1", "cat", "indoor")

	updated, err := f.svc.EditTags(context.Background(), uploader(), post.ID, "Dog outdoor")
	require.NoError(t, err)
	require.Len(t, updated.TagIDs, 2)
	assert.NotEqual(t, post.TagIDs, updated.TagIDs)

	// New names resolve to the updated ids.
	dog, err := f.store.FindTagByName(context.Background(), "dog")
	require.NoError(t, err)
	assert.Contains(t, updated.TagIDs, dog.ID)
}

func TestEditTags_EmptyRejected(t *testing.T) {
	f := setup(t)
	post := f.createPost(t, "h1", "u1", "cat")

	_, err := f.svc.EditTags(context.Background(), uploader(), post.ID, "   !!! ")
	require.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEditTags_StrangerForbidden(t *testing.T) {
	f := setup(t)
	post := f.createPost(t, "h1", "u1", "cat")

	_, err := f.svc.EditTags(context.Background(), stranger(), post.ID, "dog")
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestResolveTags_SkipsDangling(t *testing.T) {
	f := setup(t)
	post := f.createPost(t, "h1", "u1", "cat")
	post.TagIDs = append(post.TagIDs, "999")

	tags, err := f.svc.ResolveTags(context.Background(), []*domain.Post{post})
	require.NoError(t, err)
	require.Len(t, tags, 1)
}
