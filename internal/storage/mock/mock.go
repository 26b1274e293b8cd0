// Package mock provides an in-memory storage.BlobStore for testing.
package mock

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/photo-search/internal/storage"
)

// MockBlobStore keeps objects in memory and signs URLs with a fake host.
type MockBlobStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[storage.Location][]byte
	types   map[storage.Location]string

	// Error injection
	PresignError error
	GetError     error
	PutError     error
	DeleteError  error

	// Deleted lists every location passed to DeleteAllVersions
	Deleted []storage.Location
}

// NewMockBlobStore creates a store whose default bucket is bucket
func NewMockBlobStore(bucket string) *MockBlobStore {
	return &MockBlobStore{
		bucket:  bucket,
		objects: make(map[storage.Location][]byte),
		types:   make(map[storage.Location]string),
	}
}

// AddObject stores bytes at key in the default bucket
func (m *MockBlobStore) AddObject(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[m.Location(key)] = slices.Clone(data)
}

// Object returns the stored bytes and content type at loc
func (m *MockBlobStore) Object(loc storage.Location) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[loc]
	return data, m.types[loc], ok
}

// Location returns the address of key in the default bucket
func (m *MockBlobStore) Location(key string) storage.Location {
	return storage.Location{Bucket: m.bucket, Key: key}
}

func (m *MockBlobStore) sign(method, key string, ttl time.Duration) (string, error) {
	if m.PresignError != nil {
		return "", m.PresignError
	}
	return fmt.Sprintf("https://%s.s3.test/%s?X-Method=%s&X-Amz-Expires=%d",
		m.bucket, url.PathEscape(key), method, int(ttl.Seconds())), nil
}

// PresignPut returns a fake write URL
func (m *MockBlobStore) PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return m.sign("PUT", key, ttl)
}

// PresignGet returns a fake read URL
func (m *MockBlobStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return m.sign("GET", key, ttl)
}

// Get reads stored bytes
func (m *MockBlobStore) Get(ctx context.Context, loc storage.Location) ([]byte, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[loc]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", loc, storage.ErrObjectNotFound)
	}
	return slices.Clone(data), nil
}

// Put stores bytes
func (m *MockBlobStore) Put(ctx context.Context, loc storage.Location, data []byte, contentType string) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[loc] = slices.Clone(data)
	m.types[loc] = contentType
	return nil
}

// DeleteAllVersions removes the object
func (m *MockBlobStore) DeleteAllVersions(ctx context.Context, loc storage.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, loc)
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.objects, loc)
	delete(m.types, loc)
	return nil
}
