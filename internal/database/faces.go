package database

import (
	"context"
	"time"
)

// StoredFace is one face embedding in a self-hosted face collection.
type StoredFace struct {
	FaceID          string
	CollectionID    string
	ExternalImageID string // photo id the face was indexed for
	Embedding       []float32
	BBox            []float64 // [x1, y1, x2, y2] in raw pixel coordinates
	DetScore        float64
	Model           string
	CreatedAt       time.Time
}

// FaceMatch pairs a stored face with its cosine distance to the query face.
type FaceMatch struct {
	Face     StoredFace
	Distance float64
}

// FaceStore persists face embeddings grouped by collection
type FaceStore interface {
	// CreateCollection registers a collection; an existing one is not an error
	CreateCollection(ctx context.Context, collectionID string) error
	// SaveFace stores a face embedding
	SaveFace(ctx context.Context, face StoredFace) error
	// FindSimilar returns faces under maxDistance ordered by ascending distance
	FindSimilar(ctx context.Context, collectionID string, embedding []float32, limit int, maxDistance float64) ([]FaceMatch, error)
	// DeleteFaces removes faces by id; unknown ids are ignored
	DeleteFaces(ctx context.Context, collectionID string, faceIDs []string) error
}
