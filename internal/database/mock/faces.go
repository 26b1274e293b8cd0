package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kozaktomas/photo-search/internal/database"
)

// MockFaceStore is an in-memory implementation of database.FaceStore
// ranking faces by cosine distance.
type MockFaceStore struct {
	mu          sync.RWMutex
	collections map[string]bool
	faces       map[string]database.StoredFace

	// Error injection
	CreateCollectionError error
	SaveError             error
	FindError             error
	DeleteError           error
}

// NewMockFaceStore creates a new mock face store
func NewMockFaceStore() *MockFaceStore {
	return &MockFaceStore{
		collections: make(map[string]bool),
		faces:       make(map[string]database.StoredFace),
	}
}

// HasCollection reports whether CreateCollection was called for id
func (m *MockFaceStore) HasCollection(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collections[id]
}

// Face returns a stored face by id
func (m *MockFaceStore) Face(faceID string) (database.StoredFace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.faces[faceID]
	return f, ok
}

// Len returns the number of stored faces
func (m *MockFaceStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces)
}

func (m *MockFaceStore) CreateCollection(ctx context.Context, collectionID string) error {
	if m.CreateCollectionError != nil {
		return m.CreateCollectionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collectionID] = true
	return nil
}

func (m *MockFaceStore) SaveFace(ctx context.Context, face database.StoredFace) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if face.CreatedAt.IsZero() {
		face.CreatedAt = time.Now()
	}
	face.Embedding = slices.Clone(face.Embedding)
	face.BBox = slices.Clone(face.BBox)
	m.faces[face.FaceID] = face
	return nil
}

func (m *MockFaceStore) FindSimilar(ctx context.Context, collectionID string, embedding []float32, limit int, maxDistance float64) ([]database.FaceMatch, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []database.FaceMatch
	for _, f := range m.faces {
		if f.CollectionID != collectionID {
			continue
		}
		d := database.CosineDistance(embedding, f.Embedding)
		if d < maxDistance {
			matches = append(matches, database.FaceMatch{Face: f, Distance: d})
		}
	}
	slices.SortFunc(matches, func(a, b database.FaceMatch) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Face.FaceID, b.Face.FaceID)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MockFaceStore) DeleteFaces(ctx context.Context, collectionID string, faceIDs []string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range faceIDs {
		if f, ok := m.faces[id]; ok && f.CollectionID == collectionID {
			delete(m.faces, id)
		}
	}
	return nil
}
