package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-search/internal/config"
	"github.com/kozaktomas/photo-search/internal/constants"
	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/kozaktomas/photo-search/internal/facematch"
	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/kozaktomas/photo-search/internal/storage"
	"github.com/rs/zerolog"
)

const (
	errInvalidFormat     = "Invalid image format."
	errUnsupportedFormat = "Invalid image format. only jpeg and png are supported."
	errLocationMissing   = "location parameter is missing."
	errInvalidLocation   = "Invalid location parameter."
)

// similarResultsPage is fixed; similar-face results are not paginated.
const similarResultsPage = 1

// SimilarsResponse lists photos whose registered face matches the requested region
type SimilarsResponse struct {
	Results []PhotoResponse `json:"results"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// FacesHandler handles face detection and similar-face search
type FacesHandler struct {
	photos     database.PhotoReader
	blobs      storage.BlobStore
	recognizer recognition.Recognizer
	cropper    facematch.Cropper
	tunables   config.Tunables
}

// NewFacesHandler creates a new faces handler
func NewFacesHandler(photos database.PhotoReader, blobs storage.BlobStore, recognizer recognition.Recognizer, cropper facematch.Cropper, tunables config.Tunables) *FacesHandler {
	return &FacesHandler{
		photos:     photos,
		blobs:      blobs,
		recognizer: recognizer,
		cropper:    cropper,
		tunables:   tunables,
	}
}

// imageLocation resolves a photo id to its blob. It writes the error
// response itself and reports whether the caller may continue.
func (h *FacesHandler) imageLocation(w http.ResponseWriter, r *http.Request, id string) (storage.Location, bool) {
	photo, err := h.photos.Get(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && photo.ImageLocation == "") {
		respondError(w, http.StatusNotFound, errImageNotFound)
		return storage.Location{}, false
	}
	if err != nil {
		respondInternalError(w, r, err, "get photo")
		return storage.Location{}, false
	}

	loc, err := storage.ParseLocation(photo.ImageLocation)
	if err != nil {
		respondInternalError(w, r, err, "parse image location")
		return storage.Location{}, false
	}
	return loc, true
}

// Detect handles GET /photos/{id}/faces
func (h *FacesHandler) Detect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, errPhotoIDMissing)
		return
	}

	loc, ok := h.imageLocation(w, r, id)
	if !ok {
		return
	}

	faces, err := h.recognizer.DetectFaces(r.Context(), loc)
	switch {
	case errors.Is(err, recognition.ErrImageNotFound):
		respondError(w, http.StatusNotFound, errImageNotFound)
		return
	case errors.Is(err, recognition.ErrInvalidImageFormat):
		respondError(w, http.StatusBadRequest, errUnsupportedFormat)
		return
	case err != nil:
		respondInternalError(w, r, err, "detect faces")
		return
	}

	if faces == nil {
		faces = []recognition.BoundingBox{}
	}
	respondJSON(w, http.StatusOK, faces)
}

// Similars handles GET /photos/{id}/similars?location=w h l t
func (h *FacesHandler) Similars(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, errPhotoIDMissing)
		return
	}
	rawLocation := r.URL.Query().Get("location")
	if rawLocation == "" {
		respondError(w, http.StatusBadRequest, errLocationMissing)
		return
	}
	region, err := facematch.ParseRegion(rawLocation)
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidLocation)
		return
	}

	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	src, ok := h.imageLocation(w, r, id)
	if !ok {
		return
	}

	data, err := h.blobs.Get(ctx, src)
	if errors.Is(err, storage.ErrObjectNotFound) {
		respondError(w, http.StatusNotFound, errImageNotFound)
		return
	}
	if err != nil {
		respondInternalError(w, r, err, "read source image")
		return
	}

	crop, err := h.cropper.Crop(data, region)
	if errors.Is(err, facematch.ErrInvalidImage) {
		respondError(w, http.StatusBadRequest, errInvalidFormat)
		return
	}
	if err != nil {
		respondInternalError(w, r, err, "crop image")
		return
	}

	// Same photo and region always land on the same key.
	cropLoc := storage.Location{
		Bucket: src.Bucket,
		Key:    facematch.CropKey(h.tunables.Faces.CropPrefix, id, region),
	}
	if err := h.blobs.Put(ctx, cropLoc, crop, constants.CropContentType); err != nil {
		respondInternalError(w, r, err, "upload crop")
		return
	}

	matches, err := h.recognizer.SearchFaces(ctx, cropLoc)
	switch {
	case errors.Is(err, recognition.ErrImageNotFound), errors.Is(err, recognition.ErrInvalidParameter):
		respondError(w, http.StatusNotFound, errImageNotFound)
		return
	case errors.Is(err, recognition.ErrInvalidImageFormat):
		respondError(w, http.StatusBadRequest, errInvalidFormat)
		return
	case err != nil:
		respondInternalError(w, r, err, "search faces")
		return
	}

	results := make([]PhotoResponse, 0, len(matches))
	for _, m := range matches {
		photo, err := h.photos.Get(ctx, m.ExternalImageID)
		if errors.Is(err, database.ErrNotFound) {
			logger.Debug().Str("photo_id", m.ExternalImageID).Str("face_id", m.FaceID).Msg("skipping match without record")
			continue
		}
		if err != nil {
			respondInternalError(w, r, err, "get matched photo")
			return
		}

		pr, err := photoResponse(ctx, h.blobs, h.tunables, photo)
		if err != nil {
			respondInternalError(w, r, err, "presign photo url")
			return
		}
		results = append(results, pr)
	}

	respondJSON(w, http.StatusOK, SimilarsResponse{
		Results: results,
		Page:    similarResultsPage,
		PerPage: len(results),
	})
}
