package database

import "math"

// CosineDistance mirrors pgvector's <=> operator so the in-memory face
// store ranks matches the same way the Postgres one does. The result lies in
// [0, 2]; vectors of different length or with zero norm score 2, which never
// passes a similarity threshold.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 2
	}

	// rounding can push the ratio just outside [-1, 1]
	similarity := max(-1, min(1, dot/(math.Sqrt(normA)*math.Sqrt(normB))))
	return 1 - similarity
}
