package vector

import (
	"fmt"
	"math"

	"github.com/viant/vec/search"
)

// Dot returns the dot product of a and b accumulated in float64.
// Callers must ensure equal lengths.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// float32 sums of squares are exact enough inside this range; outside it
// they underflow to 0 or overflow to +Inf.
const (
	minSafeMagnitude = 1e-18
	maxSafeMagnitude = 1e18
)

// Magnitude returns the L2 norm of v. Vectors whose squared components fall
// outside the float32 range are measured in float64 instead.
func Magnitude(v []float32) float64 {
	if len(v) == 0 {
		return 0
	}
	m := float64(search.Float32s(v).Magnitude())
	if m >= minSafeMagnitude && m <= maxSafeMagnitude {
		return m
	}
	return math.Sqrt(Dot(v, v))
}

// Validate reports ErrDegenerateVector for empty vectors, vectors with NaN or
// Inf components, and zero-magnitude vectors.
func Validate(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty", ErrDegenerateVector)
	}
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: non-finite component at %d", ErrDegenerateVector, i)
		}
	}
	if m := Magnitude(v); m == 0 || math.IsInf(m, 0) {
		return fmt.Errorf("%w: magnitude %v", ErrDegenerateVector, m)
	}
	return nil
}

// Normalize returns a unit-length copy of v.
func Normalize(v []float32) ([]float32, error) {
	if err := Validate(v); err != nil {
		return nil, err
	}
	m := math.Sqrt(Dot(v, v))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / m)
	}
	return out, nil
}

// CosineSimilarity computes the cosine similarity between two vectors. It
// fails with a *DimensionMismatchError on differing lengths and with
// ErrDegenerateVector when either vector has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Expected: len(a), Actual: len(b)}
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrDegenerateVector)
	}
	na := math.Sqrt(Dot(a, a))
	nb := math.Sqrt(Dot(b, b))
	if na == 0 || nb == 0 {
		return 0, fmt.Errorf("%w: zero magnitude", ErrDegenerateVector)
	}
	return Dot(a, b) / (na * nb), nil
}
