package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kozaktomas/photo-search/internal/database"
	"github.com/lib/pq"
)

// PhotoRepository provides PostgreSQL-backed photo record storage.
type PhotoRepository struct {
	pool *Pool
}

// NewPhotoRepository creates a new PostgreSQL photo repository.
func NewPhotoRepository(pool *Pool) *PhotoRepository {
	return &PhotoRepository{pool: pool}
}

// Migrate applies the schema migrations.
func (r *PhotoRepository) Migrate(ctx context.Context) error {
	return r.pool.Migrate(ctx)
}

const photoColumns = `id, name, tags, image_location, search_target, rekognition_id, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*database.Photo, error) {
	var (
		p             database.Photo
		name          sql.NullString
		tags          pq.StringArray
		rekognitionID sql.NullString
	)
	if err := row.Scan(&p.ID, &name, &tags, &p.ImageLocation, &p.SearchTarget, &rekognitionID,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Name = name.String
	p.RekognitionID = rekognitionID.String
	if tags != nil {
		p.Tags = []string(tags)
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Get retrieves a record by id.
func (r *PhotoRepository) Get(ctx context.Context, id string) (*database.Photo, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = $1`, id)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo %s: %w", id, err)
	}
	return p, nil
}

// Put creates or fully replaces a record.
func (r *PhotoRepository) Put(ctx context.Context, photo *database.Photo) error {
	var tags any
	if photo.Tags != nil {
		tags = pq.Array(photo.Tags)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO photos (id, name, name_grams, tags, image_location, search_target, rekognition_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			name_grams = EXCLUDED.name_grams,
			tags = EXCLUDED.tags,
			image_location = EXCLUDED.image_location,
			search_target = EXCLUDED.search_target,
			rekognition_id = EXCLUDED.rekognition_id,
			updated_at = NOW()
	`, photo.ID, nullString(photo.Name), pq.Array(database.NameGrams(photo.Name)), tags,
		photo.ImageLocation, photo.SearchTarget, nullString(photo.RekognitionID))
	if err != nil {
		return fmt.Errorf("put photo %s: %w", photo.ID, err)
	}
	return nil
}

// execOne runs an update and maps zero affected rows to ErrNotFound.
func (r *PhotoRepository) execOne(ctx context.Context, id, query string, args ...any) error {
	res, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update photo %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update photo %s: %w", id, err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// UpdateTags replaces the tag list.
func (r *PhotoRepository) UpdateTags(ctx context.Context, id string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	return r.execOne(ctx, id,
		`UPDATE photos SET tags = $2, updated_at = NOW() WHERE id = $1`,
		id, pq.Array(tags))
}

// UpdateName sets the name and its search grams.
func (r *PhotoRepository) UpdateName(ctx context.Context, id string, name string) error {
	return r.execOne(ctx, id,
		`UPDATE photos SET name = $2, name_grams = $3, updated_at = NOW() WHERE id = $1`,
		id, nullString(name), pq.Array(database.NameGrams(name)))
}

// SetFace stores the indexed face id and the image location.
func (r *PhotoRepository) SetFace(ctx context.Context, id string, faceID string, imageLocation string) error {
	return r.execOne(ctx, id,
		`UPDATE photos SET rekognition_id = $2, image_location = $3, updated_at = NOW() WHERE id = $1`,
		id, nullString(faceID), imageLocation)
}

// Delete removes a record. Deleting a missing record is not an error.
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete photo %s: %w", id, err)
	}
	return nil
}

// buildSearchFilter returns the WHERE clause, score expression and arguments
// for a query. Scores mirror database.Score so both stores rank identically.
func buildSearchFilter(query string) (where, score string, args []any) {
	where = "search_target"
	score = "0::float8"

	grams := database.NameGrams(query)
	if len(grams) == 0 {
		return where, score, nil
	}

	terms := database.TagTerms(query)
	args = []any{pq.Array(grams), pq.Array(terms)}

	nameMatch := "(cardinality(name_grams) > 0 AND name_grams @> $1::text[])"
	tagMatch := "(tags && $2::text[])"

	where = fmt.Sprintf("search_target AND (%s OR %s)", nameMatch, tagMatch)
	score = strings.Join([]string{
		fmt.Sprintf("(CASE WHEN %s THEN cardinality($1::text[])::float8 / GREATEST(cardinality(name_grams), 1) ELSE 0 END)", nameMatch),
		"(SELECT count(*) FROM unnest($2::text[]) AS term WHERE term = ANY(COALESCE(tags, '{}')))::float8",
	}, " + ")
	return where, score, args
}

// Search returns a page of search-target records matching the query.
func (r *PhotoRepository) Search(ctx context.Context, q database.SearchQuery) (*database.SearchResult, error) {
	where, score, args := buildSearchFilter(q.Query)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM photos WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count photos: %w", err)
	}

	result := &database.SearchResult{Total: total, Photos: []database.Photo{}}
	if q.Offset() >= total {
		return result, nil
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s FROM (
			SELECT %s, %s AS score FROM photos WHERE %s
		) AS matches
		ORDER BY score DESC, id COLLATE "C" DESC
		LIMIT $%d OFFSET $%d
	`, photoColumns, photoColumns, score, where, n+1, n+2)

	rows, err := r.pool.Query(ctx, query, append(args, q.PerPage, q.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("search photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		result.Photos = append(result.Photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return result, nil
}
