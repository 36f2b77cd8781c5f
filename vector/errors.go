package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateVector reports an embedding that cannot take part in cosine
	// similarity: empty, zero magnitude, or containing NaN/Inf components.
	ErrDegenerateVector = errors.New("vector: degenerate vector")

	// ErrDimensionMismatch is matched by every *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")
)

// DimensionMismatchError indicates embeddings of differing length. ID names the
// offending item when the check happens over a keyed set.
type DimensionMismatchError struct {
	ID       string
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("vector: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("vector: dimension mismatch for %q: expected %d, got %d", e.ID, e.Expected, e.Actual)
}

// Is lets errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }
