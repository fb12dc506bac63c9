// Package domain defines the core record types stored by the server.
package domain

import (
	"slices"
	"strconv"
	"time"
)

// MediaType classifies a post's stored asset.
type MediaType string

// Media types.
const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Post is a single uploaded piece of media after successful ingestion.
// Immutable except TagIDs (editable by owner/moderator/admin) and deletion.
// IDs are stringified integers allocated from a monotonic counter, so
// numeric ordering of IDs is upload recency.
type Post struct {
	ID          string    `json:"id"`
	ContentHash string    `json:"content_hash"`
	MediaType   MediaType `json:"media_type"`
	FileExt     string    `json:"file_ext"` // extension of the canonical asset, e.g. ".png", ".mp4"
	BlurHash    string    `json:"blur_hash,omitempty"`
	TagIDs      []string  `json:"tag_ids"`
	UploaderID  string    `json:"uploader_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NumericID parses the post ID as an integer for recency ordering.
// Returns 0 for malformed IDs, which sorts them last.
func (p *Post) NumericID() int64 {
	n, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// HasTag reports whether the post carries the given tag ID.
func (p *Post) HasTag(tagID string) bool {
	return slices.Contains(p.TagIDs, tagID)
}

// HasAllTags reports whether the post carries every given tag ID.
func (p *Post) HasAllTags(tagIDs []string) bool {
	for _, id := range tagIDs {
		if !p.HasTag(id) {
			return false
		}
	}
	return true
}

// HasAnyTag reports whether the post carries at least one of the given tag IDs.
func (p *Post) HasAnyTag(tagIDs []string) bool {
	return slices.ContainsFunc(tagIDs, p.HasTag)
}
