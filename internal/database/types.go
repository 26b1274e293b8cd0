package database

import (
	"math"
	"time"
)

// Photo is the metadata record kept for every issued upload.
type Photo struct {
	ID            string
	Name          string   // empty when never registered
	Tags          []string // nil when never set
	ImageLocation string   // s3://bucket/key of the uploaded blob
	SearchTarget  bool     // true for register-flow uploads
	RekognitionID string   // indexed face id, empty until a face is registered
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TagsOrEmpty returns the tags with nil mapped to an empty slice.
func (p *Photo) TagsOrEmpty() []string {
	if p.Tags == nil {
		return []string{}
	}
	return p.Tags
}

// SearchQuery selects a page of search-target photos.
type SearchQuery struct {
	Query   string // optional free text
	Page    int    // zero-based
	PerPage int
}

// Offset is the number of matches skipped before the requested page. It
// saturates at math.MaxInt instead of overflowing.
func (q SearchQuery) Offset() int {
	if q.Page <= 0 || q.PerPage <= 0 {
		return 0
	}
	if q.Page > math.MaxInt/q.PerPage {
		return math.MaxInt
	}
	return q.Page * q.PerPage
}

// SearchResult is one page of matches plus the total match count.
type SearchResult struct {
	Photos []Photo
	Total  int
}

// PageCount returns ceil(total / perPage).
func PageCount(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
