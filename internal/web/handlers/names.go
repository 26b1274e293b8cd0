package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kozaktomas/photo-search/internal/constants"
	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/rs/zerolog"
)

// RegisterNameRequest assigns one name to many photos
type RegisterNameRequest struct {
	Name     string   `json:"name"`
	PhotoIDs []string `json:"photo_ids"`
}

// NamesHandler handles name registration
type NamesHandler struct {
	photos database.PhotoWriter
}

// NewNamesHandler creates a new names handler
func NewNamesHandler(photos database.PhotoWriter) *NamesHandler {
	return &NamesHandler{photos: photos}
}

// parseRegisterName decodes and validates the request body. Type mismatches
// such as a numeric name fail decoding; photo_ids must be a non-empty list
// of strings, so null elements are rejected too.
func parseRegisterName(r *http.Request) (*RegisterNameRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxRequestBodySize))
	if err != nil {
		return nil, false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw struct {
		Name     string          `json:"name"`
		PhotoIDs json.RawMessage `json:"photo_ids"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Name == "" {
		return nil, false
	}
	ids, ok := parseStringArray(raw.PhotoIDs)
	if !ok || len(ids) == 0 {
		return nil, false
	}
	return &RegisterNameRequest{Name: raw.Name, PhotoIDs: ids}, true
}

// Register handles PATCH /names. Unknown ids are skipped and per-id store
// failures are logged; once the body validates the response is always 204.
func (h *NamesHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRegisterName(r)
	if !ok {
		respondError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	for _, id := range req.PhotoIDs {
		err := h.photos.UpdateName(ctx, id, req.Name)
		if errors.Is(err, database.ErrNotFound) {
			logger.Debug().Str("photo_id", sanitizeForLog(id)).Msg("skipping unknown photo")
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Str("photo_id", sanitizeForLog(id)).Msg("failed to update name")
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
