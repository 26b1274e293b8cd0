package insightface

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/kozaktomas/photo-search/internal/constants"
	"github.com/kozaktomas/photo-search/internal/database"
	dbmock "github.com/kozaktomas/photo-search/internal/database/mock"
	"github.com/kozaktomas/photo-search/internal/recognition"
	storagemock "github.com/kozaktomas/photo-search/internal/storage/mock"
)

type fakeEmbedder struct {
	resp  *FaceResponse
	err   error
	calls int
}

func (f *fakeEmbedder) ComputeFaceEmbeddings(ctx context.Context, imageData []byte) (*FaceResponse, error) {
	f.calls++
	return f.resp, f.err
}

func oneHot(i int) []float32 {
	v := make([]float32, constants.FaceEmbeddingDim)
	v[i] = 1
	return v
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func setup(t *testing.T, resp *FaceResponse) (*Recognizer, *storagemock.MockBlobStore, *dbmock.MockFaceStore, *fakeEmbedder) {
	t.Helper()
	blobs := storagemock.NewMockBlobStore("photos")
	blobs.AddObject("img", pngBytes(t, 400, 200))
	faces := dbmock.NewMockFaceStore()
	emb := &fakeEmbedder{resp: resp}
	r := New(blobs, faces, emb, "photosearch", Options{Threshold: 80, MaxMatches: 10, MaxDistance: 0.5})
	return r, blobs, faces, emb
}

func TestCreateCollection(t *testing.T) {
	r, _, faces, _ := setup(t, &FaceResponse{})
	if err := r.CreateCollection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !faces.HasCollection("photosearch") {
		t.Error("expected collection to be created")
	}
}

func TestIndexFace_PicksBestFace(t *testing.T) {
	r, blobs, faces, _ := setup(t, &FaceResponse{
		Model: "buffalo_l",
		Faces: []FaceDetection{
			{Embedding: oneHot(0), BBox: []float64{0, 0, 50, 50}, DetScore: 0.6},
			{Embedding: oneHot(1), BBox: []float64{200, 0, 300, 100}, DetScore: 0.95},
			{Embedding: []float32{1, 2}, BBox: []float64{300, 100, 390, 190}, DetScore: 0.99},
		},
	})

	faceID, err := r.IndexFace(context.Background(), blobs.Location("img"), "photo-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if faceID == "" {
		t.Fatal("expected a face id")
	}

	stored, ok := faces.Face(faceID)
	if !ok {
		t.Fatal("expected stored face")
	}
	if stored.ExternalImageID != "photo-1" || stored.CollectionID != "photosearch" || stored.Model != "buffalo_l" {
		t.Errorf("unexpected stored face %+v", stored)
	}
	if stored.Embedding[1] != 1 {
		t.Error("expected the most confident face with a full embedding")
	}
	if faces.Len() != 1 {
		t.Errorf("expected one indexed face, got %d", faces.Len())
	}
}

func TestIndexFace_NoFace(t *testing.T) {
	r, blobs, faces, _ := setup(t, &FaceResponse{})

	faceID, err := r.IndexFace(context.Background(), blobs.Location("img"), "photo-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if faceID != "" || faces.Len() != 0 {
		t.Errorf("expected nothing indexed, got %q", faceID)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	r, blobs, _, emb := setup(t, &FaceResponse{})
	blobs.AddObject("garbage", []byte("not an image"))

	_, err := r.DetectFaces(context.Background(), blobs.Location("missing"))
	if !errors.Is(err, recognition.ErrImageNotFound) {
		t.Errorf("expected ErrImageNotFound, got %v", err)
	}

	_, err = r.DetectFaces(context.Background(), blobs.Location("garbage"))
	if !errors.Is(err, recognition.ErrInvalidImageFormat) {
		t.Errorf("expected ErrInvalidImageFormat, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("expected embedder not to be called for unreadable images")
	}

	emb.err = errors.New("connection refused")
	if _, err := r.DetectFaces(context.Background(), blobs.Location("img")); err == nil {
		t.Error("expected embedder error")
	}
}

func TestDetectFaces(t *testing.T) {
	r, blobs, _, _ := setup(t, &FaceResponse{
		Faces: []FaceDetection{
			{BBox: []float64{100, 50, 300, 150}, DetScore: 0.8},
			{BBox: []float64{0, 0, 40, 20}, DetScore: 0.9},
			{BBox: []float64{101, 51, 300, 150}, DetScore: 0.7},
		},
	})

	boxes, err := r.DetectFaces(context.Background(), blobs.Location("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []recognition.BoundingBox{
		{Left: 0.25, Top: 0.25, Width: 0.5, Height: 0.5},
		{Left: 0, Top: 0, Width: 0.1, Height: 0.1},
	}
	if len(boxes) != len(want) {
		t.Fatalf("expected %d boxes, got %+v", len(want), boxes)
	}
	for i := range want {
		if boxes[i] != want[i] {
			t.Errorf("box %d: expected %+v, got %+v", i, want[i], boxes[i])
		}
	}
}

func TestSearchFaces(t *testing.T) {
	query := oneHot(0)
	query[1] = 0.3

	r, blobs, faces, emb := setup(t, nil)
	faces.SaveFace(context.Background(), storedFace("a", "photo-a", oneHot(0)))
	faces.SaveFace(context.Background(), storedFace("b", "photo-b", oneHot(1)))

	emb.resp = &FaceResponse{Faces: []FaceDetection{{Embedding: query, BBox: []float64{0, 0, 10, 10}, DetScore: 0.9}}}

	matches, err := r.SearchFaces(context.Background(), blobs.Location("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].ExternalImageID != "photo-a" || matches[0].FaceID != "a" {
		t.Fatalf("unexpected matches %+v", matches)
	}
	want := 100 / math.Sqrt(1.09)
	if math.Abs(matches[0].Similarity-want) > 0.01 {
		t.Errorf("expected similarity %.2f, got %.2f", want, matches[0].Similarity)
	}

	r.threshold = 99
	matches, err = r.SearchFaces(context.Background(), blobs.Location("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected matches under threshold to be dropped, got %+v", matches)
	}
}

func TestSearchFaces_NoFaceInProbe(t *testing.T) {
	r, blobs, _, _ := setup(t, &FaceResponse{})

	_, err := r.SearchFaces(context.Background(), blobs.Location("img"))
	if !errors.Is(err, recognition.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestDeleteFaces(t *testing.T) {
	r, _, faces, _ := setup(t, nil)
	faces.SaveFace(context.Background(), storedFace("a", "photo-a", oneHot(0)))

	if err := r.DeleteFaces(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.DeleteFaces(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if faces.Len() != 0 {
		t.Error("expected face to be deleted")
	}
}

func storedFace(id, photoID string, emb []float32) database.StoredFace {
	return database.StoredFace{FaceID: id, CollectionID: "photosearch", ExternalImageID: photoID, Embedding: emb}
}
