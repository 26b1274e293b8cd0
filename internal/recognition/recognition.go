// Package recognition defines the face recognition adapter shared by the
// managed Rekognition backend and the self-hosted InsightFace backend.
package recognition

import (
	"context"
	"errors"

	"github.com/kozaktomas/photo-search/internal/storage"
)

var (
	// ErrImageNotFound means the image object does not exist in the blob store.
	ErrImageNotFound = errors.New("image not found")
	// ErrInvalidImageFormat means the image bytes are not a supported encoding.
	ErrInvalidImageFormat = errors.New("invalid image format")
	// ErrInvalidParameter means the request was rejected, e.g. no face in a search image.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// BoundingBox is a face rectangle as fractions of the image dimensions.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Match is a collection face similar to a search image.
type Match struct {
	FaceID          string
	ExternalImageID string  // photo id the face was indexed for
	Similarity      float64 // percent, 0-100
}

// Recognizer indexes, detects and searches faces in a single collection.
type Recognizer interface {
	// CreateCollection creates the collection; an existing one is not an error
	CreateCollection(ctx context.Context) error
	// IndexFace indexes at most one face of the image under externalID.
	// It returns an empty face id when no face was found.
	IndexFace(ctx context.Context, loc storage.Location, externalID string) (string, error)
	// DetectFaces returns the faces in the image in detector order
	DetectFaces(ctx context.Context, loc storage.Location) ([]BoundingBox, error)
	// SearchFaces returns collection faces similar to the largest face in the image
	SearchFaces(ctx context.Context, loc storage.Location) ([]Match, error)
	// DeleteFaces removes faces from the collection
	DeleteFaces(ctx context.Context, faceIDs []string) error
}
