package index

// Matrix is a symmetric N×N similarity matrix with an implicit unit diagonal.
// Only the strict upper triangle is stored, packed row by row.
type Matrix struct {
	n    int
	data []float64
}

// NewMatrix allocates an n×n matrix.
func NewMatrix(n int) *Matrix {
	size := 0
	if n > 1 {
		size = n * (n - 1) / 2
	}
	return &Matrix{n: n, data: make([]float64, size)}
}

// Len returns N.
func (m *Matrix) Len() int { return m.n }

// offset returns the packed position of (i, j) for i < j.
func (m *Matrix) offset(i, j int) int {
	return i*m.n - i*(i+1)/2 + (j - i - 1)
}

// At returns sim(i, j); At(i, i) is 1.
func (m *Matrix) At(i, j int) float64 {
	switch {
	case i == j:
		return 1
	case i > j:
		i, j = j, i
	}
	return m.data[m.offset(i, j)]
}

// Set stores sim(i, j) == sim(j, i). Setting the diagonal is a no-op.
func (m *Matrix) Set(i, j int, v float64) {
	switch {
	case i == j:
		return
	case i > j:
		i, j = j, i
	}
	m.data[m.offset(i, j)] = v
}

// row returns the packed upper-triangle slice for row i: entries for
// j = i+1 .. n-1.
func (m *Matrix) row(i int) []float64 {
	start := m.offset(i, i+1)
	return m.data[start : start+m.n-i-1]
}
