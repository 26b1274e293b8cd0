package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-search/internal/config"
	dbmock "github.com/kozaktomas/photo-search/internal/database/mock"
	"github.com/kozaktomas/photo-search/internal/facematch"
	recmock "github.com/kozaktomas/photo-search/internal/recognition/mock"
	storagemock "github.com/kozaktomas/photo-search/internal/storage/mock"
)

// testTunables mirrors the embedded defaults
func testTunables() config.Tunables {
	return config.Tunables{
		URLs: config.URLTunables{UploadExpiry: 15 * time.Minute, DownloadExpiry: 60 * time.Second},
		Search: config.SearchTunables{
			DefaultPageSize: 100,
			MaxUploadURLs:   100,
		},
		Faces: config.FaceTunables{CropPrefix: "resized", MatchThreshold: 80, MaxMatches: 100, MaxDistance: 0.5},
	}
}

// testDeps bundles the in-memory adapters behind every handler
type testDeps struct {
	photos     *dbmock.MockPhotoStore
	blobs      *storagemock.MockBlobStore
	recognizer *recmock.MockRecognizer
}

func newTestDeps() *testDeps {
	return &testDeps{
		photos:     dbmock.NewMockPhotoStore(),
		blobs:      storagemock.NewMockBlobStore("photos"),
		recognizer: recmock.NewMockRecognizer(),
	}
}

func (d *testDeps) photosHandler() *PhotosHandler {
	return NewPhotosHandler(d.photos, d.blobs, d.recognizer, testTunables())
}

func (d *testDeps) facesHandler() *FacesHandler {
	return NewFacesHandler(d.photos, d.blobs, d.recognizer, facematch.PNGCropper{}, testTunables())
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// testJPEG encodes a solid image of the given size
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// parseJSONResponse parses JSON response body into the target
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// assertEmptyInternalError checks for a 500 with no body
func assertEmptyInternalError(t *testing.T, recorder *httptest.ResponseRecorder) {
	t.Helper()
	assertStatusCode(t, recorder, http.StatusInternalServerError)
	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", recorder.Body.String())
	}
}
