package palette

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrDecode is matched by every DecodeError.
	ErrDecode = errors.New("palette: image decode failed")
	// ErrInvalidOptions is returned for out-of-range options.
	ErrInvalidOptions = errors.New("palette: invalid options")
	// ErrNoPixels is returned when every pixel was excluded or the image is empty.
	ErrNoPixels = errors.New("palette: no usable pixels")
)

// DecodeError reports an image that could not be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("palette: decode: %v", e.Err)
	}
	return fmt.Sprintf("palette: decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Ratio is a coverage percentage in [0,100] with one decimal of precision.
type Ratio float64

// MarshalJSON always writes one decimal, so 50 is emitted as 50.0.
func (r Ratio) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(r), 'f', 1, 64)), nil
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("palette: ratio %s: %w", data, err)
	}
	*r = Ratio(v)
	return nil
}

// Swatch is one representative color and its share of the image.
type Swatch struct {
	Hex   string `json:"hex"`
	Ratio Ratio  `json:"ratio"`
}

// Palette is ordered by ratio descending, then hex ascending.
type Palette []Swatch

// Total returns the sum of all ratios.
func (p Palette) Total() float64 {
	var total float64
	for _, s := range p {
		total += float64(s.Ratio)
	}
	return total
}

// Options controls extraction.
type Options struct {
	// NumColors is the number of clusters (>= 1).
	NumColors int
	// MaxIterations bounds k-means iterations per restart.
	MaxIterations int
	// Epsilon is the centroid movement, in RGB units, below which k-means stops.
	Epsilon float64
	// Restarts is the number of seeded initializations; lowest inertia wins.
	Restarts int
	// Seed makes clustering reproducible.
	Seed uint64
	// SampleSize is the side of the square images are downsampled to when
	// they have more than SampleSize*SampleSize pixels.
	SampleSize int
	// AlphaThreshold excludes pixels whose alpha is below it. Zero keeps all.
	AlphaThreshold uint8
}

// DefaultOptions mirrors the reference extraction settings.
func DefaultOptions() Options {
	return Options{
		NumColors:     5,
		MaxIterations: 10,
		Epsilon:       1.0,
		Restarts:      10,
		Seed:          42,
		SampleSize:    100,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	switch {
	case o.NumColors < 1:
		return fmt.Errorf("%w: NumColors %d", ErrInvalidOptions, o.NumColors)
	case o.MaxIterations < 1:
		return fmt.Errorf("%w: MaxIterations %d", ErrInvalidOptions, o.MaxIterations)
	case o.Restarts < 1:
		return fmt.Errorf("%w: Restarts %d", ErrInvalidOptions, o.Restarts)
	case o.Epsilon < 0:
		return fmt.Errorf("%w: Epsilon %g", ErrInvalidOptions, o.Epsilon)
	case o.SampleSize < 1:
		return fmt.Errorf("%w: SampleSize %d", ErrInvalidOptions, o.SampleSize)
	}
	return nil
}

// digest identifies the options in cache keys.
func (o Options) digest() string {
	return fmt.Sprintf("k%d-i%d-e%g-r%d-s%d-n%d-a%d",
		o.NumColors, o.MaxIterations, o.Epsilon, o.Restarts, o.Seed, o.SampleSize, o.AlphaThreshold)
}
