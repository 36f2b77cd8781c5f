package index

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/viant/cardindex/index/bruteforce"
	"github.com/viant/cardindex/internal/batch"
	"github.com/viant/cardindex/vector"
	"golang.org/x/sync/errgroup"
)

const defaultBlockSize = 64

type options struct {
	workers   int
	blockSize int
}

// Option configures Build.
type Option func(*options)

// WithWorkers bounds the number of goroutines computing row blocks.
// Values <= 0 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithBlockSize sets how many matrix rows one task computes.
func WithBlockSize(rows int) Option {
	return func(o *options) {
		if rows > 0 {
			o.blockSize = rows
		}
	}
}

// Result is the outcome of a build.
type Result struct {
	Index SearchIndex
	// K is the requested neighbor count.
	K int
	// Dimension is the shared embedding length (0 for an empty build).
	Dimension int
	// Skipped lists items excluded for degenerate embeddings.
	Skipped []batch.Skip
}

// BuildIndex is Build with a background context and default options.
func BuildIndex(embeddings map[string][]float32, k int) (SearchIndex, error) {
	res, err := Build(context.Background(), embeddings, k)
	if err != nil {
		return nil, err
	}
	return res.Index, nil
}

// Build computes the exact top-k neighbor lists for every item. Items with
// degenerate embeddings (empty, zero magnitude, non-finite) are excluded and
// reported in Result.Skipped; embeddings of differing length abort the build
// with a *vector.DimensionMismatchError.
func Build(ctx context.Context, embeddings map[string][]float32, k int, opts ...Option) (*Result, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	o := options{workers: runtime.NumCPU(), blockSize: defaultBlockSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.NumCPU()
	}

	ids, vecs, skipped, err := prepare(embeddings)
	if err != nil {
		return nil, err
	}
	res := &Result{Index: make(SearchIndex, len(ids)), K: k, Skipped: skipped}
	if len(ids) == 0 {
		return res, nil
	}

	bf := &bruteforce.Index{}
	if err := bf.Build(ids, vecs); err != nil {
		return nil, err
	}
	res.Dimension = bf.Dim()

	m := NewMatrix(len(ids))
	if err := forEachBlock(ctx, len(ids), o, func(i int) {
		row := m.row(i)
		for j := range row {
			row[j] = bf.Similarity(i, i+1+j)
		}
	}); err != nil {
		return nil, err
	}

	lists := make([]NeighborList, len(ids))
	if err := forEachBlock(ctx, len(ids), o, func(i int) {
		top := bruteforce.NewTopK(k)
		for j := range ids {
			if j != i {
				top.Push(bruteforce.Candidate{ID: ids[j], Score: m.At(i, j)})
			}
		}
		list := make(NeighborList, 0, top.Len())
		for _, c := range top.Sorted() {
			list = append(list, c.ID)
		}
		lists[i] = list
	}); err != nil {
		return nil, err
	}
	for i, id := range ids {
		res.Index[id] = lists[i]
	}
	return res, nil
}

// prepare sorts identifiers, checks dimensions and filters degenerate vectors.
func prepare(embeddings map[string][]float32) ([]string, [][]float32, []batch.Skip, error) {
	all := make([]string, 0, len(embeddings))
	for id := range embeddings {
		all = append(all, id)
	}
	sort.Strings(all)

	dim, ref := 0, ""
	for _, id := range all {
		v := embeddings[id]
		if len(v) == 0 {
			continue
		}
		if dim == 0 {
			dim, ref = len(v), id
			continue
		}
		if len(v) != dim {
			return nil, nil, nil, fmt.Errorf("index: %w (reference %q)", &vector.DimensionMismatchError{ID: id, Expected: dim, Actual: len(v)}, ref)
		}
	}

	ids := make([]string, 0, len(all))
	vecs := make([][]float32, 0, len(all))
	var skipped []batch.Skip
	for _, id := range all {
		v := embeddings[id]
		if err := vector.Validate(v); err != nil {
			skipped = append(skipped, batch.Skip{ID: id, Err: err})
			continue
		}
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	return ids, vecs, skipped, nil
}

// forEachBlock calls fn for every row in [0, n), distributing row blocks over
// a bounded errgroup. Rows are disjoint across tasks.
func forEachBlock(ctx context.Context, n int, o options, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for start := 0; start < n; start += o.blockSize {
		end := min(start+o.blockSize, n)
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%o.blockSize == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				fn(i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}
