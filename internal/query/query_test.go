package query_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
	"github.com/sambooru/sambooru-server/internal/query"
)

type fakeSource struct {
	posts []*domain.Post
	tags  map[string]*domain.Tag // keyed by name
}

func (f *fakeSource) AllPosts(_ context.Context) ([]*domain.Post, error) {
	return f.posts, nil
}

func (f *fakeSource) TagByName(_ context.Context, name string) (*domain.Tag, error) {
	tag, ok := f.tags[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return tag, nil
}

func newEngine(source *fakeSource) *query.Engine {
	return query.New(source, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func buildSource() *fakeSource {
	tags := map[string]*domain.Tag{
		"cat":    {ID: "t1", Name: "cat"},
		"dog":    {ID: "t2", Name: "dog"},
		"indoor": {ID: "t3", Name: "indoor"},
		"gore":   {ID: "t4", Name: "gore"},
	}
	posts := []*domain.Post{
		{ID: "1", TagIDs: []string{"t1"}},          // cat
		{ID: "2", TagIDs: []string{"t1", "t3"}},    // cat indoor
		{ID: "3", TagIDs: []string{"t2"}},          // dog
		{ID: "4", TagIDs: []string{"t1", "t2"}},    // cat dog
		{ID: "5", TagIDs: []string{"t2", "t4"}},    // dog gore
	}
	return &fakeSource{posts: posts, tags: tags}
}

func TestSearch_EmptyQueryMatchesAll(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{Page: 1})
	require.NoError(t, err)
	require.Equal(t, 5, result.Total)
	require.Equal(t, 1, result.TotalPages)
	require.Len(t, result.Posts, 5)
}

func TestSearch_NewestFirst(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{Page: 1})
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Posts))
	for _, p := range result.Posts {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"5", "4", "3", "2", "1"}, ids)
}

func TestSearch_IncludeIsConjunction(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{RawQuery: "cat dog"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, "4", result.Posts[0].ID)
}

func TestSearch_Exclusion(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{RawQuery: "cat -dog"})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	for _, p := range result.Posts {
		require.NotContains(t, p.TagIDs, "t2")
	}
}

func TestSearch_UnknownIncludedTagMatchesNothing(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{RawQuery: "unicorn", Page: 3})
	require.NoError(t, err)
	require.Equal(t, 0, result.Total)
	require.Equal(t, 0, result.TotalPages)
	require.Equal(t, 3, result.CurrentPage)
	require.Empty(t, result.Posts)
}

func TestSearch_UnknownExcludedTagIsIgnored(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{RawQuery: "cat -unicorn"})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
}

func TestSearch_BlacklistAlwaysExcludes(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{
		RawQuery:  "dog",
		Blacklist: []string{"gore"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	for _, p := range result.Posts {
		require.NotContains(t, p.TagIDs, "t4")
	}
}

func TestSearch_UnknownBlacklistEntryIsIgnored(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{
		Blacklist: []string{"never_used"},
	})
	require.NoError(t, err)
	require.Equal(t, 5, result.Total)
}

func TestSearch_QueryTermsAreNormalized(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{RawQuery: "  CAT  "})
	require.NoError(t, err)
	require.Equal(t, 3, result.Total)
}

func TestSearch_Pagination(t *testing.T) {
	tags := map[string]*domain.Tag{"all": {ID: "t1", Name: "all"}}
	posts := make([]*domain.Post, 0, 120)
	for i := 1; i <= 120; i++ {
		posts = append(posts, &domain.Post{ID: fmt.Sprintf("%d", i), TagIDs: []string{"t1"}})
	}
	engine := newEngine(&fakeSource{posts: posts, tags: tags})

	first, err := engine.Search(context.Background(), query.Options{Page: 1})
	require.NoError(t, err)
	require.Equal(t, 120, first.Total)
	require.Equal(t, 3, first.TotalPages)
	require.Len(t, first.Posts, query.PageSize)
	require.Equal(t, "120", first.Posts[0].ID)

	last, err := engine.Search(context.Background(), query.Options{Page: 3})
	require.NoError(t, err)
	require.Len(t, last.Posts, 20)
	require.Equal(t, "1", last.Posts[len(last.Posts)-1].ID)
}

func TestSearch_PageBeyondEnd(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{Page: 10})
	require.NoError(t, err)
	require.Equal(t, 5, result.Total)
	require.Equal(t, 10, result.CurrentPage)
	require.Empty(t, result.Posts)
}

func TestSearch_PageBelowOneIsClamped(t *testing.T) {
	engine := newEngine(buildSource())

	result, err := engine.Search(context.Background(), query.Options{Page: 0})
	require.NoError(t, err)
	require.Equal(t, 1, result.CurrentPage)
	require.Len(t, result.Posts, 5)
}
