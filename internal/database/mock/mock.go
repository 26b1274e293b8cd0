// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/photo-search/internal/database"
)

// MockPhotoStore is an in-memory implementation of database.PhotoWriter
// with the same matching and ordering rules as the PostgreSQL store.
type MockPhotoStore struct {
	mu     sync.RWMutex
	photos map[string]*database.Photo

	// Error injection
	GetError        error
	SearchError     error
	PutError        error
	UpdateTagsError error
	UpdateNameError error
	SetFaceError    error
	DeleteError     error
	MigrateError    error

	// UpdateNameErrors fails UpdateName only for the listed ids.
	UpdateNameErrors map[string]error

	Migrated bool
}

// NewMockPhotoStore creates a new mock photo store
func NewMockPhotoStore() *MockPhotoStore {
	return &MockPhotoStore{
		photos: make(map[string]*database.Photo),
	}
}

// AddPhoto adds a record to the mock store
func (m *MockPhotoStore) AddPhoto(p database.Photo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos[p.ID] = clonePhoto(&p)
}

// Len returns the number of stored records
func (m *MockPhotoStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.photos)
}

func clonePhoto(p *database.Photo) *database.Photo {
	c := *p
	if p.Tags != nil {
		c.Tags = slices.Clone(p.Tags)
	}
	return &c
}

// Get retrieves a record by id
func (m *MockPhotoStore) Get(ctx context.Context, id string) (*database.Photo, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.photos[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clonePhoto(p), nil
}

type scored struct {
	photo *database.Photo
	score float64
}

// Search returns a page of matching search-target records
func (m *MockPhotoStore) Search(ctx context.Context, q database.SearchQuery) (*database.SearchResult, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []scored
	for _, p := range m.photos {
		if !p.SearchTarget {
			continue
		}
		score, ok := database.Score(p, q.Query)
		if !ok {
			continue
		}
		matches = append(matches, scored{photo: p, score: score})
	}

	slices.SortFunc(matches, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(b.photo.ID, a.photo.ID)
	})

	result := &database.SearchResult{Total: len(matches), Photos: []database.Photo{}}
	start := min(q.Offset(), len(matches))
	end := start + min(max(q.PerPage, 0), len(matches)-start)
	for _, s := range matches[start:end] {
		result.Photos = append(result.Photos, *clonePhoto(s.photo))
	}
	return result, nil
}

// Put creates or replaces a record
func (m *MockPhotoStore) Put(ctx context.Context, photo *database.Photo) error {
	if m.PutError != nil {
		return m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := clonePhoto(photo)
	now := time.Now()
	if existing, ok := m.photos[photo.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.photos[photo.ID] = c
	return nil
}

func (m *MockPhotoStore) update(id string, fn func(p *database.Photo)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.photos[id]
	if !ok {
		return database.ErrNotFound
	}
	fn(p)
	p.UpdatedAt = time.Now()
	return nil
}

// UpdateTags replaces the tag list
func (m *MockPhotoStore) UpdateTags(ctx context.Context, id string, tags []string) error {
	if m.UpdateTagsError != nil {
		return m.UpdateTagsError
	}
	return m.update(id, func(p *database.Photo) {
		p.Tags = slices.Clone(tags)
		if p.Tags == nil {
			p.Tags = []string{}
		}
	})
}

// UpdateName sets the name
func (m *MockPhotoStore) UpdateName(ctx context.Context, id string, name string) error {
	if m.UpdateNameError != nil {
		return m.UpdateNameError
	}
	if err := m.UpdateNameErrors[id]; err != nil {
		return err
	}
	return m.update(id, func(p *database.Photo) { p.Name = name })
}

// SetFace stores the indexed face id and image location
func (m *MockPhotoStore) SetFace(ctx context.Context, id string, faceID string, imageLocation string) error {
	if m.SetFaceError != nil {
		return m.SetFaceError
	}
	return m.update(id, func(p *database.Photo) {
		p.RekognitionID = faceID
		p.ImageLocation = imageLocation
	})
}

// Delete removes a record
func (m *MockPhotoStore) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.photos, id)
	return nil
}

// Migrate records that the schema was requested
func (m *MockPhotoStore) Migrate(ctx context.Context) error {
	if m.MigrateError != nil {
		return m.MigrateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Migrated = true
	return nil
}
