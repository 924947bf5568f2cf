// Package post manages photo metadata records and their change stream.
package post

import (
	"errors"
	"time"
)

// Post links a gallery item to the object-store key of its image.
type Post struct {
	ID        string    `json:"id"`
	ImageKey  string    `json:"imageKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Filter narrows a query. The zero Filter matches every post.
type Filter struct {
	ImageKey string
}

// Matches reports whether p satisfies the filter.
func (f Filter) Matches(p Post) bool {
	return f.ImageKey == "" || f.ImageKey == p.ImageKey
}

// ErrNotFound is returned when a post does not exist.
var ErrNotFound = errors.New("post not found")
