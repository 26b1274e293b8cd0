package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/photo-search/internal/config"
	"github.com/kozaktomas/photo-search/internal/constants"
	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/kozaktomas/photo-search/internal/storage"
	"github.com/rs/zerolog"
)

// PhotoResponse represents a photo in API responses
type PhotoResponse struct {
	ID   string   `json:"id"`
	Name string   `json:"name,omitempty"`
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

// PhotoListResponse is one page of search results
type PhotoListResponse struct {
	Results   []PhotoResponse `json:"results"`
	Page      int             `json:"page"`
	PerPage   int             `json:"per_page"`
	PageCount int             `json:"page_count"`
}

// UploadURL pairs a new photo id with its write URL
type UploadURL struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// UploadURLsResponse lists issued upload URLs
type UploadURLsResponse struct {
	Results []UploadURL `json:"results"`
}

// PhotosHandler handles photo-related endpoints
type PhotosHandler struct {
	photos     database.PhotoWriter
	blobs      storage.BlobStore
	recognizer recognition.Recognizer
	tunables   config.Tunables
}

// NewPhotosHandler creates a new photos handler
func NewPhotosHandler(photos database.PhotoWriter, blobs storage.BlobStore, recognizer recognition.Recognizer, tunables config.Tunables) *PhotosHandler {
	return &PhotosHandler{
		photos:     photos,
		blobs:      blobs,
		recognizer: recognizer,
		tunables:   tunables,
	}
}

// photoResponse maps a record to its response with a fresh read URL.
func photoResponse(ctx context.Context, blobs storage.BlobStore, tunables config.Tunables, p *database.Photo) (PhotoResponse, error) {
	url, err := blobs.PresignGet(ctx, p.ID, tunables.URLs.DownloadExpiry)
	if err != nil {
		return PhotoResponse{}, err
	}
	return PhotoResponse{
		ID:   p.ID,
		Name: p.Name,
		URL:  url,
		Tags: p.TagsOrEmpty(),
	}, nil
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// List handles GET /photos
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := intParam(r, "page", 0)
	if !ok || page < 0 {
		respondError(w, http.StatusBadRequest, "Invalid page parameter")
		return
	}
	perPage, ok := intParam(r, "per_page", h.tunables.Search.DefaultPageSize)
	if !ok || perPage < 1 {
		respondError(w, http.StatusBadRequest, "Invalid per_page parameter")
		return
	}
	perPage = min(perPage, constants.MaxPageSize)

	result, err := h.photos.Search(r.Context(), database.SearchQuery{
		Query:   r.URL.Query().Get("query"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		respondInternalError(w, r, err, "search photos")
		return
	}

	resp := PhotoListResponse{
		Results:   make([]PhotoResponse, 0, len(result.Photos)),
		Page:      page,
		PerPage:   perPage,
		PageCount: database.PageCount(result.Total, perPage),
	}
	for i := range result.Photos {
		pr, err := photoResponse(r.Context(), h.blobs, h.tunables, &result.Photos[i])
		if err != nil {
			respondInternalError(w, r, err, "presign photo url")
			return
		}
		resp.Results = append(resp.Results, pr)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /photos/{id}
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, errPhotoIDMissing)
		return
	}

	photo, err := h.photos.Get(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, errImageNotFound)
		return
	}
	if err != nil {
		respondInternalError(w, r, err, "get photo")
		return
	}

	resp, err := photoResponse(r.Context(), h.blobs, h.tunables, photo)
	if err != nil {
		respondInternalError(w, r, err, "presign photo url")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// UploadURLs handles GET /photos/upload_urls
func (h *PhotosHandler) UploadURLs(w http.ResponseWriter, r *http.Request) {
	uploadType := r.URL.Query().Get("type")
	if uploadType == "" {
		respondError(w, http.StatusBadRequest, "type parameter is missing")
		return
	}
	if uploadType != constants.UploadTypeSearch && uploadType != constants.UploadTypeRegister {
		respondError(w, http.StatusBadRequest, "Invalid type parameter")
		return
	}

	count, ok := intParam(r, "count", 1)
	if !ok || count < 1 || count > h.tunables.Search.MaxUploadURLs {
		respondError(w, http.StatusBadRequest, "Invalid count parameter")
		return
	}

	ctx := r.Context()
	resp := UploadURLsResponse{Results: make([]UploadURL, 0, count)}
	for range count {
		id, err := uuid.NewV7()
		if err != nil {
			respondInternalError(w, r, err, "generate photo id")
			return
		}

		url, err := h.blobs.PresignPut(ctx, id.String(), h.tunables.URLs.UploadExpiry)
		if err != nil {
			respondInternalError(w, r, err, "presign upload url")
			return
		}

		// The record must exist before the blob-created event is handled.
		err = h.photos.Put(ctx, &database.Photo{
			ID:            id.String(),
			ImageLocation: h.blobs.Location(id.String()).String(),
			SearchTarget:  uploadType == constants.UploadTypeRegister,
		})
		if err != nil {
			respondInternalError(w, r, err, "create photo record")
			return
		}

		resp.Results = append(resp.Results, UploadURL{ID: id.String(), URL: url})
	}
	respondJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /photos/{id}
func (h *PhotosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, errPhotoIDMissing)
		return
	}

	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	photo, err := h.photos.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondInternalError(w, r, err, "get photo")
		return
	}

	// Face first, then the record, then the blob, so a failure leaves only orphans.
	if photo.RekognitionID != "" {
		if err := h.recognizer.DeleteFaces(ctx, []string{photo.RekognitionID}); err != nil {
			respondInternalError(w, r, err, "delete face")
			return
		}
	}

	if err := h.photos.Delete(ctx, id); err != nil {
		respondInternalError(w, r, err, "delete photo record")
		return
	}

	if photo.ImageLocation != "" {
		loc, err := storage.ParseLocation(photo.ImageLocation)
		if err == nil {
			err = h.blobs.DeleteAllVersions(ctx, loc)
		}
		if err != nil {
			logger.Warn().Err(err).Str("photo_id", id).Msg("blob deletion failed")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetTags handles PUT /photos/{id}/tags
func (h *PhotosHandler) SetTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, errPhotoIDMissing)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxRequestBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if len(body) == 0 {
		body = []byte("[]")
	}

	tags, ok := parseStringArray(body)
	if !ok {
		respondError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	err = h.photos.UpdateTags(r.Context(), id, tags)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, errImageNotFound)
		return
	}
	if err != nil {
		respondInternalError(w, r, err, "update tags")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
