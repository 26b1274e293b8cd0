// Package mock provides an in-memory recognition.Recognizer for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/kozaktomas/photo-search/internal/storage"
)

// MockRecognizer returns canned results keyed by image location and records calls.
type MockRecognizer struct {
	mu sync.Mutex

	// Canned results
	Faces   map[storage.Location][]recognition.BoundingBox
	Matches map[storage.Location][]recognition.Match
	// FaceIDs maps an image to the id IndexFace returns; missing means no face
	FaceIDs map[storage.Location]string

	// Error injection
	CreateCollectionError error
	IndexError            error
	DetectError           error
	SearchError           error
	DeleteError           error

	// Recorded calls
	CollectionCreated bool
	Indexed           map[string]storage.Location // externalID -> image
	Searched          []storage.Location
	DeletedFaceIDs    []string
}

// NewMockRecognizer creates an empty mock recognizer
func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{
		Faces:   make(map[storage.Location][]recognition.BoundingBox),
		Matches: make(map[storage.Location][]recognition.Match),
		FaceIDs: make(map[storage.Location]string),
		Indexed: make(map[string]storage.Location),
	}
}

func (m *MockRecognizer) CreateCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateCollectionError != nil {
		return m.CreateCollectionError
	}
	m.CollectionCreated = true
	return nil
}

func (m *MockRecognizer) IndexFace(ctx context.Context, loc storage.Location, externalID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IndexError != nil {
		return "", m.IndexError
	}
	m.Indexed[externalID] = loc
	return m.FaceIDs[loc], nil
}

func (m *MockRecognizer) DetectFaces(ctx context.Context, loc storage.Location) ([]recognition.BoundingBox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DetectError != nil {
		return nil, m.DetectError
	}
	faces, ok := m.Faces[loc]
	if !ok {
		return nil, fmt.Errorf("%s: %w", loc, recognition.ErrImageNotFound)
	}
	return faces, nil
}

func (m *MockRecognizer) SearchFaces(ctx context.Context, loc storage.Location) ([]recognition.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searched = append(m.Searched, loc)
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	return m.Matches[loc], nil
}

func (m *MockRecognizer) DeleteFaces(ctx context.Context, faceIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.DeletedFaceIDs = append(m.DeletedFaceIDs, faceIDs...)
	return nil
}
