// Package query implements the boolean tag search over the post
// collection: space-separated tag names, `-` prefixed exclusions, a
// per-user blacklist, recency ordering, and fixed-size pages.
package query

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/domain"
	apperrors "github.com/sambooru/sambooru-server/internal/errors"
)

// PageSize is the fixed number of posts per result page.
const PageSize = 50

// PostSource supplies the posts and tag lookups the engine scans.
// Implemented by the store.
type PostSource interface {
	AllPosts(ctx context.Context) ([]*domain.Post, error)
	TagByName(ctx context.Context, name string) (*domain.Tag, error)
}

// Options parameterizes one search.
type Options struct {
	// RawQuery is the user's query string: whitespace-separated tag
	// names, each optionally prefixed with `-` for exclusion. Empty
	// matches everything.
	RawQuery string

	// Page is 1-based. Values below 1 are treated as 1.
	Page int

	// Blacklist holds normalized tag names always excluded, regardless
	// of the query.
	Blacklist []string
}

// Result is one page of matching posts.
type Result struct {
	Posts       []*domain.Post `json:"posts"`
	CurrentPage int            `json:"current_page"`
	TotalPages  int            `json:"total_pages"`
	Total       int            `json:"total"`
}

// Engine evaluates tag queries against a PostSource.
type Engine struct {
	source PostSource
	logger *slog.Logger
}

// New creates a query engine.
func New(source PostSource, logger *slog.Logger) *Engine {
	return &Engine{source: source, logger: logger}
}

// Search evaluates a query and returns the requested page, newest posts
// first. A post matches when it carries every included tag and none of
// the excluded or blacklisted ones.
func (e *Engine) Search(ctx context.Context, opts Options) (*Result, error) {
	page := max(opts.Page, 1)

	includes, excludes, err := e.resolveTerms(ctx, opts)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// An included tag nobody has ever used matches nothing.
			return &Result{Posts: []*domain.Post{}, CurrentPage: page}, nil
		}
		return nil, err
	}

	posts, err := e.source.AllPosts(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*domain.Post, 0, len(posts))
	for _, post := range posts {
		if post.HasAllTags(includes) && !post.HasAnyTag(excludes) {
			matched = append(matched, post)
		}
	}

	// Newest first. IDs are monotonic, so numeric order is upload order.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].NumericID() > matched[j].NumericID()
	})

	total := len(matched)
	totalPages := (total + PageSize - 1) / PageSize

	start := (page - 1) * PageSize
	if start > total {
		start = total
	}
	end := min(start+PageSize, total)

	return &Result{
		Posts:       matched[start:end],
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
	}, nil
}

// resolveTerms parses the raw query and maps tag names to ids. Unknown
// excluded or blacklisted tags are dropped — excluding a tag that does
// not exist excludes nothing. An unknown included tag surfaces as
// ErrNotFound so the caller can short-circuit to an empty result.
func (e *Engine) resolveTerms(ctx context.Context, opts Options) (includes, excludes []string, err error) {
	for _, term := range strings.Fields(opts.RawQuery) {
		negated := strings.HasPrefix(term, "-")
		name := catalog.Normalize(strings.TrimPrefix(term, "-"))
		if name == "" {
			continue
		}

		tag, err := e.source.TagByName(ctx, name)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				if negated {
					continue
				}
				return nil, nil, apperrors.ErrNotFound
			}
			return nil, nil, err
		}

		if negated {
			excludes = append(excludes, tag.ID)
		} else {
			includes = append(includes, tag.ID)
		}
	}

	for _, name := range opts.Blacklist {
		tag, err := e.source.TagByName(ctx, catalog.Normalize(name))
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, nil, err
		}
		excludes = append(excludes, tag.ID)
	}

	return includes, excludes, nil
}
