package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/kozaktomas/photo-search/internal/storage"
)

func facesRequest(id string) *http.Request {
	return requestWithChiParams(httptest.NewRequest(http.MethodGet, "/photos/"+id+"/faces", nil), map[string]string{"id": id})
}

func similarsRequest(id, location string) *http.Request {
	target := "/photos/" + id + "/similars"
	if location != "" {
		target += "?location=" + url.QueryEscape(location)
	}
	return requestWithChiParams(httptest.NewRequest(http.MethodGet, target, nil), map[string]string{"id": id})
}

func TestFacesHandler_Detect(t *testing.T) {
	deps := newTestDeps()
	loc := storage.Location{Bucket: "photos", Key: "abc"}
	deps.photos.AddPhoto(database.Photo{ID: "abc", ImageLocation: loc.String()})
	deps.recognizer.Faces[loc] = []recognition.BoundingBox{{Left: 1, Top: 2, Width: 10, Height: 20}}

	recorder := httptest.NewRecorder()
	deps.facesHandler().Detect(recorder, facesRequest("abc"))

	assertStatusCode(t, recorder, http.StatusOK)
	if got := recorder.Body.String(); got != `[{"left":1,"top":2,"width":10,"height":20}]`+"\n" {
		t.Errorf("unexpected body %s", got)
	}
}

func TestFacesHandler_Detect_NoFaces(t *testing.T) {
	deps := newTestDeps()
	loc := storage.Location{Bucket: "photos", Key: "abc"}
	deps.photos.AddPhoto(database.Photo{ID: "abc", ImageLocation: loc.String()})
	deps.recognizer.Faces[loc] = nil

	recorder := httptest.NewRecorder()
	deps.facesHandler().Detect(recorder, facesRequest("abc"))

	assertStatusCode(t, recorder, http.StatusOK)
	var boxes []recognition.BoundingBox
	parseJSONResponse(t, recorder, &boxes)
	if boxes == nil || len(boxes) != 0 {
		t.Errorf("expected empty list, got %s", recorder.Body.String())
	}
}

func TestFacesHandler_Detect_Errors(t *testing.T) {
	tests := []struct {
		name      string
		photo     *database.Photo
		detectErr error
		status    int
		message   string
	}{
		{"unknown photo", nil, nil, http.StatusNotFound, "Image not found"},
		{"no image location", &database.Photo{ID: "abc"}, nil, http.StatusNotFound, "Image not found"},
		{"object missing", &database.Photo{ID: "abc", ImageLocation: "s3://photos/abc"}, recognition.ErrImageNotFound, http.StatusNotFound, "Image not found"},
		{"bad format", &database.Photo{ID: "abc", ImageLocation: "s3://photos/abc"}, recognition.ErrInvalidImageFormat, http.StatusBadRequest, "Invalid image format. only jpeg and png are supported."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			if tt.photo != nil {
				deps.photos.AddPhoto(*tt.photo)
			}
			deps.recognizer.DetectError = tt.detectErr

			recorder := httptest.NewRecorder()
			deps.facesHandler().Detect(recorder, facesRequest("abc"))
			assertStatusCode(t, recorder, tt.status)
			assertJSONError(t, recorder, tt.message)
		})
	}
}

func TestFacesHandler_Detect_UpstreamError(t *testing.T) {
	deps := newTestDeps()
	deps.photos.AddPhoto(database.Photo{ID: "abc", ImageLocation: "s3://photos/abc"})
	deps.recognizer.DetectError = errors.New("service unavailable")

	recorder := httptest.NewRecorder()
	deps.facesHandler().Detect(recorder, facesRequest("abc"))
	assertEmptyInternalError(t, recorder)
}

// similarsFixture stores a 200x100 source photo and two registered photos.
func similarsFixture(t *testing.T) (*testDeps, storage.Location) {
	t.Helper()
	deps := newTestDeps()
	deps.photos.AddPhoto(database.Photo{ID: "src", ImageLocation: "s3://photos/src"})
	deps.photos.AddPhoto(database.Photo{ID: "a", Name: "Anna", SearchTarget: true, ImageLocation: "s3://photos/a"})
	deps.photos.AddPhoto(database.Photo{ID: "b", Name: "Bob", SearchTarget: true, ImageLocation: "s3://photos/b"})
	deps.blobs.AddObject("src", testJPEG(t, 200, 100))

	cropLoc := storage.Location{Bucket: "photos", Key: "resized/src/0.25_0.5_0.5_0.5.png"}
	return deps, cropLoc
}

func TestFacesHandler_Similars(t *testing.T) {
	deps, cropLoc := similarsFixture(t)
	deps.recognizer.Matches[cropLoc] = []recognition.Match{
		{FaceID: "f1", ExternalImageID: "a", Similarity: 99},
		{FaceID: "f2", ExternalImageID: "deleted", Similarity: 95},
		{FaceID: "f3", ExternalImageID: "b", Similarity: 90},
	}

	recorder := httptest.NewRecorder()
	deps.facesHandler().Similars(recorder, similarsRequest("src", "0.5 0.5 0.25 0.5"))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp SimilarsResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Results) != 2 || resp.Results[0].ID != "a" || resp.Results[1].ID != "b" {
		t.Fatalf("unexpected results %+v", resp.Results)
	}
	if resp.Page != 1 || resp.PerPage != 2 {
		t.Errorf("expected page 1 per_page 2, got %d/%d", resp.Page, resp.PerPage)
	}

	_, contentType, ok := deps.blobs.Object(cropLoc)
	if !ok {
		t.Fatal("expected crop to be uploaded")
	}
	if contentType != "image/png" {
		t.Errorf("expected image/png crop, got %s", contentType)
	}
	if len(deps.recognizer.Searched) != 1 || deps.recognizer.Searched[0] != cropLoc {
		t.Errorf("expected search on the crop, got %v", deps.recognizer.Searched)
	}
}

func TestFacesHandler_Similars_AfterDelete(t *testing.T) {
	deps, cropLoc := similarsFixture(t)
	deps.recognizer.Matches[cropLoc] = []recognition.Match{
		{FaceID: "f1", ExternalImageID: "a", Similarity: 99},
		{FaceID: "f3", ExternalImageID: "b", Similarity: 90},
	}
	photos := deps.photosHandler()

	recorder := httptest.NewRecorder()
	photos.Delete(recorder, requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/photos/a", nil), map[string]string{"id": "a"}))
	assertStatusCode(t, recorder, http.StatusNoContent)

	recorder = httptest.NewRecorder()
	photos.Get(recorder, requestWithChiParams(httptest.NewRequest(http.MethodGet, "/photos/a", nil), map[string]string{"id": "a"}))
	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "Image not found")

	// the face index may still return the deleted face
	recorder = httptest.NewRecorder()
	deps.facesHandler().Similars(recorder, similarsRequest("src", "0.5 0.5 0.25 0.5"))
	assertStatusCode(t, recorder, http.StatusOK)
	var resp SimilarsResponse
	parseJSONResponse(t, recorder, &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != "b" {
		t.Errorf("expected only b after deleting a, got %+v", resp.Results)
	}
}

func TestFacesHandler_Similars_SameRegionSameKey(t *testing.T) {
	deps, _ := similarsFixture(t)
	h := deps.facesHandler()

	for range 2 {
		recorder := httptest.NewRecorder()
		h.Similars(recorder, similarsRequest("src", "0.5 0.5 0.25 0.5"))
		assertStatusCode(t, recorder, http.StatusOK)
	}
	if len(deps.recognizer.Searched) != 2 || deps.recognizer.Searched[0] != deps.recognizer.Searched[1] {
		t.Errorf("expected both searches on the same crop key, got %v", deps.recognizer.Searched)
	}
}

func TestFacesHandler_Similars_Errors(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		location string
		setup    func(d *testDeps)
		status   int
		message  string
	}{
		{name: "missing id", id: "", location: "0.5 0.5 0 0", status: http.StatusBadRequest, message: "photo_id parameter is missing."},
		{name: "missing location", id: "src", status: http.StatusBadRequest, message: "location parameter is missing."},
		{name: "invalid location", id: "src", location: "0.5 0.5 zero", status: http.StatusBadRequest, message: "Invalid location parameter."},
		{name: "unknown photo", id: "nope", location: "0.5 0.5 0 0", status: http.StatusNotFound, message: "Image not found"},
		{
			name: "source object missing", id: "src", location: "0.5 0.5 0 0",
			setup:  func(d *testDeps) { d.photos.AddPhoto(database.Photo{ID: "src", ImageLocation: "s3://photos/gone"}) },
			status: http.StatusNotFound, message: "Image not found",
		},
		{
			name: "crop outside image", id: "src", location: "0.5 0.5 0.75 0",
			status: http.StatusBadRequest, message: "Invalid image format.",
		},
		{
			name: "undecodable source", id: "src", location: "0.5 0.5 0 0",
			setup:  func(d *testDeps) { d.blobs.AddObject("src", []byte("not an image")) },
			status: http.StatusBadRequest, message: "Invalid image format.",
		},
		{
			name: "no face in crop", id: "src", location: "0.5 0.5 0 0",
			setup:  func(d *testDeps) { d.recognizer.SearchError = recognition.ErrInvalidParameter },
			status: http.StatusNotFound, message: "Image not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, _ := similarsFixture(t)
			if tt.setup != nil {
				tt.setup(deps)
			}

			recorder := httptest.NewRecorder()
			deps.facesHandler().Similars(recorder, similarsRequest(tt.id, tt.location))
			assertStatusCode(t, recorder, tt.status)
			assertJSONError(t, recorder, tt.message)
		})
	}
}

func TestFacesHandler_Similars_UpstreamError(t *testing.T) {
	deps, _ := similarsFixture(t)
	deps.recognizer.SearchError = errors.New("throttled")

	recorder := httptest.NewRecorder()
	deps.facesHandler().Similars(recorder, similarsRequest("src", "0.5 0.5 0 0"))
	assertEmptyInternalError(t, recorder)
}
