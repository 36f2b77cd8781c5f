package bruteforce

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/cardindex/vector"
)

func TestIndex_BuildAndSimilarity(t *testing.T) {
	idx := &Index{}
	require.NoError(t, idx.Build(
		[]string{"A", "B", "C"},
		[][]float32{{1, 0}, {0, 1}, {0.8, 0.6}},
	))
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 2, idx.Dim())
	assert.Equal(t, "C", idx.ID(2))

	assert.Equal(t, 1.0, idx.Similarity(1, 1))
	assert.InDelta(t, 0.0, idx.Similarity(0, 1), 1e-9)
	assert.InDelta(t, 0.8, idx.Similarity(0, 2), 1e-6)
	assert.InDelta(t, 0.6, idx.Similarity(1, 2), 1e-6)
	assert.Equal(t, idx.Similarity(0, 2), idx.Similarity(2, 0))
}

func TestIndex_BuildUnnormalized(t *testing.T) {
	idx := &Index{}
	require.NoError(t, idx.Build([]string{"a", "b"}, [][]float32{{3, 4}, {6, 8}}))
	assert.Equal(t, 1.0, idx.Similarity(0, 1))
}

func TestIndex_BuildErrors(t *testing.T) {
	idx := &Index{}
	err := idx.Build([]string{"a"}, nil)
	assert.Error(t, err)

	err = idx.Build([]string{"a", "b"}, [][]float32{{1, 0}, {1, 0, 0}})
	assert.True(t, errors.Is(err, vector.ErrDimensionMismatch))

	err = idx.Build([]string{"a", "b"}, [][]float32{{1, 0}, {0, 0}})
	assert.ErrorIs(t, err, vector.ErrDegenerateVector)

	require.NoError(t, idx.Build(nil, nil))
	assert.Zero(t, idx.Len())
}

func TestTopK(t *testing.T) {
	top := NewTopK(3)
	for _, c := range []Candidate{
		{"e", 0.1}, {"b", 0.9}, {"a", 0.5}, {"d", 0.9}, {"c", 0.5}, {"f", math.Inf(-1)},
	} {
		top.Push(c)
	}
	assert.Equal(t, 3, top.Len())
	assert.Equal(t, []string{"b", "d", "a"}, ids(top.Sorted()))

	top.Push(Candidate{"0", 0.5})
	assert.Equal(t, []string{"b", "d", "0"}, ids(top.Sorted()))
}

func TestTopK_Zero(t *testing.T) {
	top := NewTopK(0)
	top.Push(Candidate{"a", 1})
	assert.Empty(t, top.Sorted())
}

func TestBetter(t *testing.T) {
	assert.True(t, Better(Candidate{"z", 0.9}, Candidate{"a", 0.8}))
	assert.True(t, Better(Candidate{"a", 0.8}, Candidate{"b", 0.8}))
	assert.False(t, Better(Candidate{"b", 0.8}, Candidate{"a", 0.8}))
	assert.False(t, Better(Candidate{"a", 0.8}, Candidate{"a", 0.8}))
}

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
