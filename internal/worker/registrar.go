package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/kozaktomas/photo-search/internal/storage"
	"github.com/rs/zerolog"
)

// Registrar indexes the face of a newly uploaded register-flow photo.
type Registrar struct {
	photos     database.PhotoWriter
	recognizer recognition.Recognizer
	skipPrefix string
}

// NewRegistrar creates a registrar. Objects under skipPrefix (face crops)
// are never looked up.
func NewRegistrar(photos database.PhotoWriter, recognizer recognition.Recognizer, skipPrefix string) *Registrar {
	if skipPrefix != "" && !strings.HasSuffix(skipPrefix, "/") {
		skipPrefix += "/"
	}
	return &Registrar{photos: photos, recognizer: recognizer, skipPrefix: skipPrefix}
}

// Handle registers the object's face. It returns an error only for
// failures worth redelivering.
func (r *Registrar) Handle(ctx context.Context, loc storage.Location) error {
	logger := zerolog.Ctx(ctx).With().Str("location", loc.String()).Logger()

	if r.skipPrefix != "" && strings.HasPrefix(loc.Key, r.skipPrefix) {
		return nil
	}

	// Upload keys are photo ids.
	id := loc.Key
	photo, err := r.photos.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		logger.Debug().Msg("no record for object")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get photo %s: %w", id, err)
	}
	if !photo.SearchTarget {
		return nil
	}

	faceID, err := r.recognizer.IndexFace(ctx, loc, id)
	switch {
	case errors.Is(err, recognition.ErrImageNotFound), errors.Is(err, recognition.ErrInvalidImageFormat),
		errors.Is(err, recognition.ErrInvalidParameter):
		logger.Warn().Err(err).Str("photo_id", id).Msg("face not indexable")
		return nil
	case err != nil:
		return fmt.Errorf("index face for %s: %w", id, err)
	}

	if faceID == "" {
		logger.Info().Str("photo_id", id).Msg("no face found")
		return nil
	}

	err = r.photos.SetFace(ctx, id, faceID, loc.String())
	if errors.Is(err, database.ErrNotFound) {
		// Deleted while indexing; the face is an orphan skipped by similar search.
		logger.Warn().Str("photo_id", id).Str("face_id", faceID).Msg("photo deleted during registration")
		return nil
	}
	if err != nil {
		return fmt.Errorf("set face for %s: %w", id, err)
	}

	logger.Info().Str("photo_id", id).Str("face_id", faceID).Msg("face registered")
	return nil
}
