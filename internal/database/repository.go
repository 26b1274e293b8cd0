package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a photo id has no record.
var ErrNotFound = errors.New("photo not found")

// PhotoReader provides read-only access to photo records
type PhotoReader interface {
	// Get retrieves a record by id, returns ErrNotFound if absent
	Get(ctx context.Context, id string) (*Photo, error)
	// Search returns a page of search-target records matching the query.
	// Name must match on all grams, tags on any term. Ordered by score then id descending.
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
}

// PhotoWriter provides write access to photo records
type PhotoWriter interface {
	PhotoReader

	// Put creates or fully replaces a record
	Put(ctx context.Context, photo *Photo) error
	// UpdateTags replaces the tag list, returns ErrNotFound if absent
	UpdateTags(ctx context.Context, id string, tags []string) error
	// UpdateName sets the name, returns ErrNotFound if absent
	UpdateName(ctx context.Context, id string, name string) error
	// SetFace stores the indexed face id and image location, returns ErrNotFound if absent
	SetFace(ctx context.Context, id string, faceID string, imageLocation string) error
	// Delete removes a record; a missing record is not an error
	Delete(ctx context.Context, id string) error
}

// IndexMigrator creates the record schema; it must tolerate an existing schema.
type IndexMigrator interface {
	Migrate(ctx context.Context) error
}
