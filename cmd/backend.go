package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/kozaktomas/photo-search/internal/cloud"
	"github.com/kozaktomas/photo-search/internal/config"
	"github.com/kozaktomas/photo-search/internal/database/postgres"
	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/kozaktomas/photo-search/internal/recognition/insightface"
	"github.com/kozaktomas/photo-search/internal/recognition/rekognition"
	"github.com/kozaktomas/photo-search/internal/storage"
	"github.com/rs/zerolog"
)

// backend holds the adapters shared by serve, worker and provision.
type backend struct {
	awsCfg     aws.Config
	pool       *postgres.Pool
	photos     *postgres.PhotoRepository
	blobs      *storage.S3Store
	recognizer recognition.Recognizer
}

func (b *backend) Close() {
	if b.pool != nil {
		_ = b.pool.Close()
	}
}

// openBackend connects to PostgreSQL and AWS and selects the recognition backend.
func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Storage.Bucket == "" {
		return nil, errors.New("S3_BUCKET_NAME environment variable is required")
	}

	awsCfg, err := cloud.LoadConfig(ctx, &cfg.AWS)
	if err != nil {
		return nil, err
	}

	logger.Info().Msg("connecting to PostgreSQL")
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	b := &backend{
		awsCfg: awsCfg,
		pool:   pool,
		photos: postgres.NewPhotoRepository(pool),
		blobs:  storage.NewS3Store(cloud.NewS3Client(awsCfg, cfg), cfg.Storage.Bucket),
	}

	faces := cfg.Tunables.Faces
	switch cfg.Recognition.Backend {
	case config.BackendRekognition:
		b.recognizer = rekognition.New(cloud.NewRekognitionClient(awsCfg, cfg),
			cfg.Recognition.CollectionID, faces.MatchThreshold, faces.MaxMatches)
	case config.BackendInsightFace:
		if cfg.Recognition.EmbeddingURL == "" {
			b.Close()
			return nil, errors.New("EMBEDDING_URL environment variable is required for the insightface backend")
		}
		b.recognizer = insightface.New(b.blobs, postgres.NewFaceRepository(pool),
			insightface.NewEmbeddingClient(cfg.Recognition.EmbeddingURL),
			cfg.Recognition.CollectionID, insightface.Options{
				Threshold:   float64(faces.MatchThreshold),
				MaxMatches:  faces.MaxMatches,
				MaxDistance: faces.MaxDistance,
			})
	default:
		b.Close()
		return nil, fmt.Errorf("unknown recognition backend %q", cfg.Recognition.Backend)
	}

	logger.Info().
		Str("bucket", cfg.Storage.Bucket).
		Str("recognition", cfg.Recognition.Backend).
		Str("collection", cfg.Recognition.CollectionID).
		Msg("backend ready")
	return b, nil
}
