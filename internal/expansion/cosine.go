// Package expansion grows a small trusted seed set into a larger candidate
// set by embedding-based nearest-neighbor selection with a dual
// top-k/threshold admission rule.
package expansion

import (
	"errors"
	"fmt"
	"math"
)

// Vector comparison errors.
var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyVector       = errors.New("empty embedding vector")
)

// Cosine returns the cosine similarity of two equal-length vectors.
// A zero-norm vector yields similarity 0 rather than an error, since a
// degenerate embedding carries no directional information.
func Cosine(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// MaxCosine returns the maximum cosine similarity of v against every
// vector in refs, clamped to [0, 1]. Reference vectors that fail to
// compare (dimension mismatch) are skipped.
func MaxCosine(v []float64, refs [][]float64) float64 {
	best := 0.0
	for _, ref := range refs {
		sim, err := Cosine(v, ref)
		if err != nil {
			continue
		}
		if sim > best {
			best = sim
		}
	}
	if best > 1 {
		best = 1
	}
	return best
}
