package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/viant/cardindex/imagedir"
	"github.com/viant/cardindex/internal/batch"
	"github.com/viant/cardindex/internal/logging"
	"github.com/viant/cardindex/vector"
)

// ErrNoEmbedder is recorded for images that are not cached when no
// Embedder is configured.
var ErrNoEmbedder = errors.New("embedding: no embedder configured")

// Embedder turns an image file into a vector. Implementations wrap the
// pretrained image encoder.
type Embedder interface {
	Embed(ctx context.Context, path string) ([]float32, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, path string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, path string) ([]float32, error) {
	return f(ctx, path)
}

// Ingestor gathers embeddings for a set of images.
type Ingestor struct {
	Embedder Embedder
	// Store caches vectors across runs; optional.
	Store *Store
	Model string
	// Workers bounds concurrent Embed calls; NumCPU when <= 0.
	Workers int
	Logger  *logging.Logger
	// ProgressEvery logs progress every n embedded images; 100 when 0.
	ProgressEvery int
}

// Result of an ingest run.
type Result struct {
	// Embeddings holds one unit vector per successful image.
	Embeddings map[string][]float32
	// Skips lists images that failed, with the reason.
	Skips    []batch.Skip
	Embedded int
	Cached   int
}

// Ingest returns a vector for every image in images, reusing stored vectors
// and embedding the rest. Images that fail to embed or yield a degenerate
// vector are skipped. When images is nil every stored vector for the model
// is returned instead.
func (in *Ingestor) Ingest(ctx context.Context, images []imagedir.Image) (*Result, error) {
	logger := in.Logger
	if logger == nil {
		logger = logging.Noop()
	}
	logger = logger.WithStage("embedding")

	cached := map[string][]float32{}
	if in.Store != nil {
		var err error
		if cached, err = in.Store.Load(ctx, in.Model); err != nil {
			return nil, fmt.Errorf("embedding: load cache: %w", err)
		}
	}

	if images == nil {
		if in.Store == nil {
			return nil, fmt.Errorf("embedding: load-only ingest requires a store")
		}
		vectors, skips := FromMap(cached)
		for _, s := range skips {
			logger.LogSkip(ctx, s.ID, s.Err)
		}
		logger.LogBatch(ctx, len(cached), len(skips))
		return &Result{Embeddings: vectors, Skips: skips, Cached: len(vectors)}, nil
	}

	res := &Result{Embeddings: make(map[string][]float32, len(images))}
	byID := imagedir.ByID(images)
	var pending []string
	for _, img := range images {
		if v, ok := cached[img.ID]; ok && vector.Validate(v) == nil {
			res.Embeddings[img.ID] = v
			res.Cached++
			continue
		}
		pending = append(pending, img.ID)
	}

	every := in.ProgressEvery
	if every <= 0 {
		every = 100
	}
	var done atomic.Int64
	outcomes, err := batch.Run(ctx, pending, in.Workers, func(ctx context.Context, id string) ([]float32, error) {
		defer func() {
			logger.LogProgress(ctx, int(done.Add(1)), len(pending), every)
		}()
		if in.Embedder == nil {
			return nil, ErrNoEmbedder
		}
		v, err := in.Embedder.Embed(ctx, byID[id].Path)
		if err != nil {
			return nil, fmt.Errorf("embedding: embed %s: %w", id, err)
		}
		return vector.Normalize(v)
	})
	if err != nil {
		return nil, err
	}

	fresh := batch.Succeeded(outcomes)
	res.Skips = batch.Skips(outcomes)
	for _, s := range res.Skips {
		logger.LogSkip(ctx, s.ID, s.Err)
	}
	for id, v := range fresh {
		res.Embeddings[id] = v
	}
	res.Embedded = len(fresh)
	if in.Store != nil {
		if err := in.Store.Upsert(ctx, in.Model, fresh); err != nil {
			return nil, fmt.Errorf("embedding: persist: %w", err)
		}
	}
	logger.LogBatch(ctx, len(images), len(res.Skips))
	return res, nil
}

// FromMap filters an externally supplied mapping: nil and degenerate
// vectors are reported as skips and the rest are returned as unit-length
// copies.
func FromMap(m map[string][]float32) (map[string][]float32, []batch.Skip) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string][]float32, len(m))
	var skips []batch.Skip
	for _, id := range ids {
		v, err := vector.Normalize(m[id])
		if err != nil {
			skips = append(skips, batch.Skip{ID: id, Err: err})
			continue
		}
		out[id] = v
	}
	return out, skips
}
