package bruteforce

import (
	"fmt"

	"github.com/viant/cardindex/vector"
)

// Index holds a set of embeddings with precomputed magnitudes.
type Index struct {
	ids  []string
	vecs [][]float32
	dim  int
	mags []float64
}

// Build loads ids and vectors and precomputes magnitudes. All vectors must
// share one length and have non-zero magnitude.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.mags, i.dim = nil, nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	mags := make([]float64, len(vectors))
	for j, v := range vectors {
		if len(v) != dim {
			return &vector.DimensionMismatchError{ID: ids[j], Expected: dim, Actual: len(v)}
		}
		mags[j] = vector.Magnitude(v)
		if mags[j] == 0 {
			return fmt.Errorf("bruteforce: %q: %w", ids[j], vector.ErrDegenerateVector)
		}
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	i.mags = mags
	return nil
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Dim returns the shared vector length.
func (i *Index) Dim() int { return i.dim }

// ID returns the identifier at position n.
func (i *Index) ID(n int) string { return i.ids[n] }

// Similarity returns the cosine similarity of items a and b, clamped to
// [-1, 1] to absorb rounding in the magnitudes.
func (i *Index) Similarity(a, b int) float64 {
	if a == b {
		return 1
	}
	s := vector.Dot(i.vecs[a], i.vecs[b]) / (i.mags[a] * i.mags[b])
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}
