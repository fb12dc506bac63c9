package domain

import "time"

// Tag is a catalog entry. Name is the normalized form (lowercase, trimmed,
// spaces replaced with underscores) and is unique across the catalog —
// the same normalization is applied at write time and at query time so a
// logical tag never fragments into two entries.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultTagCategory is used when an upload or edit supplies no category.
const DefaultTagCategory = "general"
