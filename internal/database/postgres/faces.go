package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// hnswEfSearch is the candidate pool size for approximate nearest-neighbour queries.
const hnswEfSearch = 100

// FaceRepository provides PostgreSQL-backed face collections using pgvector.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// CreateCollection registers a collection.
func (r *FaceRepository) CreateCollection(ctx context.Context, collectionID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO face_collections (collection_id) VALUES ($1) ON CONFLICT (collection_id) DO NOTHING`,
		collectionID)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", collectionID, err)
	}
	return nil
}

// SaveFace stores a face embedding.
func (r *FaceRepository) SaveFace(ctx context.Context, face database.StoredFace) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO faces (face_id, collection_id, external_image_id, embedding, bbox, det_score, model)
		VALUES ($1, $2, $3, $4::vector, $5, $6, $7)
	`,
		face.FaceID,
		face.CollectionID,
		face.ExternalImageID,
		pgvector.NewVector(face.Embedding),
		pq.Array(face.BBox),
		face.DetScore,
		face.Model,
	)
	if err != nil {
		return fmt.Errorf("insert face %s: %w", face.FaceID, err)
	}
	return nil
}

// FindSimilar returns faces in the collection closer than maxDistance.
func (r *FaceRepository) FindSimilar(
	ctx context.Context, collectionID string, embedding []float32, limit int, maxDistance float64,
) ([]database.FaceMatch, error) {
	tx, err := r.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", hnswEfSearch)); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT face_id, collection_id, external_image_id, embedding, bbox, det_score, model, created_at,
		       embedding <=> $1::vector AS distance
		FROM faces
		WHERE collection_id = $2 AND embedding <=> $1::vector < $3
		ORDER BY distance
		LIMIT $4
	`, pgvector.NewVector(embedding), collectionID, maxDistance, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar faces: %w", err)
	}
	defer rows.Close()

	var matches []database.FaceMatch
	for rows.Next() {
		var (
			m    database.FaceMatch
			vec  pgvector.Vector
			bbox pq.Float64Array
		)
		if err := rows.Scan(&m.Face.FaceID, &m.Face.CollectionID, &m.Face.ExternalImageID, &vec, &bbox,
			&m.Face.DetScore, &m.Face.Model, &m.Face.CreatedAt, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		m.Face.Embedding = vec.Slice()
		m.Face.BBox = []float64(bbox)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return matches, nil
}

// DeleteFaces removes faces by id.
func (r *FaceRepository) DeleteFaces(ctx context.Context, collectionID string, faceIDs []string) error {
	if len(faceIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM faces WHERE collection_id = $1 AND face_id = ANY($2)`,
		collectionID, pq.Array(faceIDs))
	if err != nil {
		return fmt.Errorf("delete faces: %w", err)
	}
	return nil
}
