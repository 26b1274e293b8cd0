// Package storage wraps the object store holding photo bytes.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned when an object key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// BlobStore issues presigned URLs and reads, writes and deletes objects.
type BlobStore interface {
	// Location returns the address of key in the store's default bucket
	Location(key string) Location
	// PresignPut returns a write URL for key valid for ttl
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
	// PresignGet returns a read URL for key valid for ttl
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Get reads the object bytes, returns ErrObjectNotFound if absent
	Get(ctx context.Context, loc Location) ([]byte, error)
	// Put writes the object bytes with the given content type
	Put(ctx context.Context, loc Location, data []byte, contentType string) error
	// DeleteAllVersions removes every version and delete marker of the object
	DeleteAllVersions(ctx context.Context, loc Location) error
}
