// Package dto defines API response shapes. Responses are enriched with
// denormalized tag data so clients can render without extra lookups.
package dto

import (
	"time"

	"github.com/sambooru/sambooru-server/internal/domain"
)

// TagRef is a tag as embedded in a post response.
type TagRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Post is the API representation of a post.
type Post struct {
	ID         string    `json:"id"`
	MediaType  string    `json:"media_type"`
	FileURL    string    `json:"file_url"`
	PreviewURL string    `json:"preview_url"`
	BlurHash   string    `json:"blur_hash,omitempty"`
	Tags       []TagRef  `json:"tags"`
	UploaderID string    `json:"uploader_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tag is the API representation of a catalog tag.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult is one page of posts.
type SearchResult struct {
	Posts       []*Post `json:"posts"`
	CurrentPage int     `json:"current_page"`
	TotalPages  int     `json:"total_pages"`
	Total       int     `json:"total"`
}

// NewTag converts a domain tag.
func NewTag(t *domain.Tag) *Tag {
	return &Tag{
		ID:        t.ID,
		Name:      t.Name,
		Category:  t.Category,
		CreatedAt: t.CreatedAt,
	}
}

// NewPost converts a domain post. tags must hold the resolved records for
// the post's tag ids; unresolvable ids are skipped.
func NewPost(p *domain.Post, tags map[string]*domain.Tag) *Post {
	refs := make([]TagRef, 0, len(p.TagIDs))
	for _, id := range p.TagIDs {
		tag, ok := tags[id]
		if !ok {
			continue
		}
		refs = append(refs, TagRef{ID: tag.ID, Name: tag.Name, Category: tag.Category})
	}

	return &Post{
		ID:         p.ID,
		MediaType:  string(p.MediaType),
		FileURL:    "/files/" + p.ContentHash + p.FileExt,
		PreviewURL: "/thumbnails/" + p.ContentHash + ".jpg",
		BlurHash:   p.BlurHash,
		Tags:       refs,
		UploaderID: p.UploaderID,
		CreatedAt:  p.CreatedAt,
	}
}
