// Package insightface implements recognition.Recognizer on a self-hosted
// InsightFace embedding server and a pgvector face collection.
package insightface

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/kozaktomas/photo-search/internal/constants"
	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/kozaktomas/photo-search/internal/facematch"
	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/kozaktomas/photo-search/internal/storage"
)

// overlapThreshold is the IoU above which two detections are the same face.
const overlapThreshold = 0.5

// Embedder detects faces and computes their embeddings.
type Embedder interface {
	ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error)
}

// ImageReader reads image bytes from the blob store.
type ImageReader interface {
	Get(ctx context.Context, loc storage.Location) ([]byte, error)
}

// Recognizer is a recognition.Recognizer backed by an embedding server.
type Recognizer struct {
	images       ImageReader
	faces        database.FaceStore
	embedder     Embedder
	collectionID string
	threshold    float64
	maxMatches   int
	maxDistance  float64
}

// Options tunes face search.
type Options struct {
	Threshold   float64 // minimum similarity percent
	MaxMatches  int
	MaxDistance float64 // maximum cosine distance considered by the store
}

// New creates a recognizer for collectionID.
func New(images ImageReader, faces database.FaceStore, embedder Embedder, collectionID string, opts Options) *Recognizer {
	return &Recognizer{
		images:       images,
		faces:        faces,
		embedder:     embedder,
		collectionID: collectionID,
		threshold:    opts.Threshold,
		maxMatches:   opts.MaxMatches,
		maxDistance:  opts.MaxDistance,
	}
}

// analyzed is an image with its decoded size and detected faces.
type analyzed struct {
	width, height int
	model         string
	faces         []FaceDetection
}

func (r *Recognizer) analyze(ctx context.Context, loc storage.Location) (*analyzed, error) {
	data, err := r.images.Get(ctx, loc)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s: %w", loc, recognition.ErrImageNotFound)
		}
		return nil, err
	}

	w, h, err := facematch.ImageSize(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, recognition.ErrInvalidImageFormat)
	}

	resp, err := r.embedder.ComputeFaceEmbeddings(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("compute face embeddings: %w", err)
	}
	if resp == nil {
		resp = &FaceResponse{}
	}

	bboxes := make([][]float64, len(resp.Faces))
	scores := make([]float64, len(resp.Faces))
	for i, f := range resp.Faces {
		bboxes[i] = f.BBox
		scores[i] = f.DetScore
	}
	kept := facematch.SuppressOverlaps(bboxes, scores, overlapThreshold)
	slices.Sort(kept)

	faces := make([]FaceDetection, 0, len(kept))
	for _, i := range kept {
		faces = append(faces, resp.Faces[i])
	}
	return &analyzed{width: w, height: h, model: resp.Model, faces: faces}, nil
}

// best returns the most confident face with a usable embedding, preferring
// the larger box on equal scores.
func best(faces []FaceDetection) (FaceDetection, bool) {
	var (
		out   FaceDetection
		found bool
	)
	for _, f := range faces {
		if len(f.Embedding) != constants.FaceEmbeddingDim {
			continue
		}
		if !found || f.DetScore > out.DetScore ||
			(f.DetScore == out.DetScore && facematch.BBoxArea(f.BBox) > facematch.BBoxArea(out.BBox)) {
			out, found = f, true
		}
	}
	return out, found
}

// CreateCollection registers the collection in the face store.
func (r *Recognizer) CreateCollection(ctx context.Context) error {
	return r.faces.CreateCollection(ctx, r.collectionID)
}

// IndexFace stores the embedding of the best face in the image.
func (r *Recognizer) IndexFace(ctx context.Context, loc storage.Location, externalID string) (string, error) {
	img, err := r.analyze(ctx, loc)
	if err != nil {
		return "", err
	}

	face, ok := best(img.faces)
	if !ok {
		return "", nil
	}

	faceID := uuid.NewString()
	err = r.faces.SaveFace(ctx, database.StoredFace{
		FaceID:          faceID,
		CollectionID:    r.collectionID,
		ExternalImageID: externalID,
		Embedding:       face.Embedding,
		BBox:            face.BBox,
		DetScore:        face.DetScore,
		Model:           img.model,
	})
	if err != nil {
		return "", fmt.Errorf("save face: %w", err)
	}
	return faceID, nil
}

// DetectFaces returns fractional boxes for every face in the image.
func (r *Recognizer) DetectFaces(ctx context.Context, loc storage.Location) ([]recognition.BoundingBox, error) {
	img, err := r.analyze(ctx, loc)
	if err != nil {
		return nil, err
	}

	boxes := make([]recognition.BoundingBox, 0, len(img.faces))
	for _, f := range img.faces {
		if box, ok := facematch.PixelBBoxToBoundingBox(f.BBox, img.width, img.height); ok {
			boxes = append(boxes, box)
		}
	}
	return boxes, nil
}

// SearchFaces finds collection faces similar to the best face in the image.
func (r *Recognizer) SearchFaces(ctx context.Context, loc storage.Location) ([]recognition.Match, error) {
	img, err := r.analyze(ctx, loc)
	if err != nil {
		return nil, err
	}

	query, ok := best(img.faces)
	if !ok {
		return nil, fmt.Errorf("no face in %s: %w", loc, recognition.ErrInvalidParameter)
	}

	found, err := r.faces.FindSimilar(ctx, r.collectionID, query.Embedding, r.maxMatches, r.maxDistance)
	if err != nil {
		return nil, fmt.Errorf("find similar faces: %w", err)
	}

	matches := make([]recognition.Match, 0, len(found))
	for _, m := range found {
		similarity := (1 - m.Distance) * 100
		if similarity < r.threshold {
			continue
		}
		matches = append(matches, recognition.Match{
			FaceID:          m.Face.FaceID,
			ExternalImageID: m.Face.ExternalImageID,
			Similarity:      similarity,
		})
	}
	return matches, nil
}

// DeleteFaces removes faces from the collection.
func (r *Recognizer) DeleteFaces(ctx context.Context, faceIDs []string) error {
	if len(faceIDs) == 0 {
		return nil
	}
	return r.faces.DeleteFaces(ctx, r.collectionID, faceIDs)
}
