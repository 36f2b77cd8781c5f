package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/cardindex/vector"
)

func TestBuild_Example(t *testing.T) {
	idx, err := BuildIndex(map[string][]float32{
		"A": {1, 0},
		"B": {0, 1},
		"C": {0.8, 0.6},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, SearchIndex{
		"A": {"C"},
		"B": {"C"},
		"C": {"A"},
	}, idx)
}

func TestBuild_FullOrdering(t *testing.T) {
	idx, err := BuildIndex(map[string][]float32{
		"A": {1, 0},
		"B": {0, 1},
		"C": {0.8, 0.6},
	}, 10)
	require.NoError(t, err)
	assert.Equal(t, NeighborList{"C", "B"}, idx["A"])
	assert.Equal(t, NeighborList{"C", "A"}, idx["B"])
	assert.Equal(t, NeighborList{"A", "B"}, idx["C"])
}

func TestBuild_TieBreakByID(t *testing.T) {
	idx, err := BuildIndex(map[string][]float32{
		"q":  {1, 0},
		"zz": {0, 1},
		"aa": {0, 1},
		"mm": {-0.6, -0.8},
	}, 2)
	require.NoError(t, err)
	// zz and aa both score 0 against q.
	assert.Equal(t, NeighborList{"aa", "zz"}, idx["q"])
	// aa and zz are identical; each ranks the other first.
	assert.Equal(t, NeighborList{"zz", "q"}, idx["aa"])
	assert.Equal(t, NeighborList{"aa", "q"}, idx["zz"])
}

func TestBuild_EmptyAndSingle(t *testing.T) {
	idx, err := BuildIndex(nil, 5)
	require.NoError(t, err)
	assert.Empty(t, idx)

	idx, err = BuildIndex(map[string][]float32{"only.png": {0.6, 0.8}}, 5)
	require.NoError(t, err)
	require.Contains(t, idx, "only.png")
	assert.NotNil(t, idx["only.png"])
	assert.Empty(t, idx["only.png"])
}

func TestBuild_InvalidK(t *testing.T) {
	_, err := BuildIndex(map[string][]float32{"a": {1}}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestBuild_DimensionMismatchIsFatal(t *testing.T) {
	_, err := BuildIndex(map[string][]float32{
		"a": {1, 0},
		"b": {1, 0, 0},
	}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestBuild_ExtremeMagnitudes(t *testing.T) {
	res, err := Build(context.Background(), map[string][]float32{
		"A": {1e-23, 0},
		"B": {0, 1},
		"C": {1e20, 1e20},
	}, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, []string{"A", "B", "C"}, res.Index.Keys())
	assert.Equal(t, NeighborList{"C"}, res.Index["A"])
	assert.Equal(t, NeighborList{"C"}, res.Index["B"])
	require.Len(t, res.Index["C"], 1)
	assert.Contains(t, []string{"A", "B"}, res.Index["C"][0])
}

func TestBuild_SkipsDegenerate(t *testing.T) {
	res, err := Build(context.Background(), map[string][]float32{
		"a":    {1, 0},
		"b":    {0.6, 0.8},
		"zero": {0, 0},
		"nil":  nil,
	}, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, res.Index.Keys())
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "nil", res.Skipped[0].ID)
	assert.Equal(t, "zero", res.Skipped[1].ID)
	for _, s := range res.Skipped {
		assert.ErrorIs(t, s.Err, vector.ErrDegenerateVector)
	}
	assert.Equal(t, NeighborList{"b"}, res.Index["a"])
	assert.Equal(t, 2, res.Dimension)
}

func randomEmbeddings(n, dim int, seed int64) map[string][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make(map[string][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for d := range v {
			// Coarse values force plenty of exact ties.
			v[d] = float32(r.Intn(3) - 1)
		}
		if vector.Validate(v) != nil {
			v[0] = 1
		}
		out[fmt.Sprintf("card-%03d.png", i)] = v
	}
	return out
}

func TestBuild_Properties(t *testing.T) {
	emb := randomEmbeddings(150, 4, 7)
	const k = 10

	res, err := Build(context.Background(), emb, k, WithWorkers(4), WithBlockSize(7))
	require.NoError(t, err)
	idx := res.Index

	// Keys are exactly the input set.
	require.Len(t, idx, len(emb))
	for id := range emb {
		assert.Contains(t, idx, id)
	}
	require.NoError(t, idx.Validate(k))
	for id, list := range idx {
		assert.Len(t, list, k, id)
	}

	// Lists are ordered by descending similarity with id tie-break.
	for id, list := range idx {
		for n := 1; n < len(list); n++ {
			prev, _ := vector.CosineSimilarity(emb[id], emb[list[n-1]])
			cur, _ := vector.CosineSimilarity(emb[id], emb[list[n]])
			assert.True(t, prev > cur-1e-6, "%s: %s (%v) before %s (%v)", id, list[n-1], prev, list[n], cur)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	emb := randomEmbeddings(120, 6, 11)

	first, err := Build(context.Background(), emb, 5, WithWorkers(1))
	require.NoError(t, err)
	second, err := Build(context.Background(), emb, 5, WithWorkers(8), WithBlockSize(3))
	require.NoError(t, err)

	a, err := json.Marshal(first.Index)
	require.NoError(t, err)
	b, err := json.Marshal(second.Index)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, randomEmbeddings(10, 3, 1), 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchIndex_Validate(t *testing.T) {
	assert.NoError(t, SearchIndex{"a": {"b"}, "b": {"a"}}.Validate(1))
	assert.Error(t, SearchIndex{"a": {"a"}}.Validate(1))
	assert.Error(t, SearchIndex{"a": {"b", "b"}, "b": {}}.Validate(2))
	assert.Error(t, SearchIndex{"a": {"b", "c"}, "b": {}, "c": {}}.Validate(1))
	assert.Error(t, SearchIndex{"a": {"x"}}.Validate(1))
}
