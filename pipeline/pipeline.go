package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync/atomic"

	"github.com/viant/cardindex/artifact"
	"github.com/viant/cardindex/config"
	"github.com/viant/cardindex/embedding"
	"github.com/viant/cardindex/imagedir"
	"github.com/viant/cardindex/index"
	"github.com/viant/cardindex/internal/batch"
	"github.com/viant/cardindex/internal/logging"
	"github.com/viant/cardindex/master"
	"github.com/viant/cardindex/palette"
	"golang.org/x/sync/errgroup"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEmbedder sets the image encoder. Without one only stored or imported
// vectors are indexed.
func WithEmbedder(e embedding.Embedder) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// WithEmbeddingStore persists embeddings across runs.
func WithEmbeddingStore(s *embedding.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithPaletteCache memoizes palettes across runs.
func WithPaletteCache(c palette.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLogger sets the logger; the default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline runs a full index build.
type Pipeline struct {
	cfg      *config.Config
	key      master.KeyFunc
	embedder embedding.Embedder
	store    *embedding.Store
	cache    palette.Cache
	logger   *logging.Logger
}

// Report summarizes a run.
type Report struct {
	Images           int
	// Indexed is the number of items in the similarity index.
	Indexed          int
	Embedded         int
	CachedVectors    int
	// StoredVectors is the store's vector count for the model after ingest.
	StoredVectors    int
	EmbeddingSkips   []batch.Skip
	// IndexSkips are vectors rejected by the index builder.
	IndexSkips       []batch.Skip
	// Verified entries were re-ranked in SQL; VerifyMismatches of them
	// disagreed with the index.
	Verified         int
	VerifyMismatches int
	Palettes         int
	PaletteCacheHits int
	PaletteSkips     []batch.Skip
	Merge            master.MergeStats
	// MasterWritten is false when no master file existed to update.
	MasterWritten    bool
	IndexPath        string
	MasterPath       string
}

// New validates cfg and returns a Pipeline.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	key, err := master.KeyByName(cfg.MergeKey)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, key: key}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.Noop()
	}
	return p, nil
}

// Run lists the images once and builds both artifacts. A fatal error in
// either half cancels the other; per-image failures only show up in the
// report.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	images, err := imagedir.List(p.cfg.ImageDir)
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "images discovered", "dir", p.cfg.ImageDir, "count", len(images))

	report := &Report{Images: len(images)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.buildIndex(gctx, images, report) })
	g.Go(func() error { return p.buildPalettes(gctx, images, report) })
	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

func (p *Pipeline) buildIndex(ctx context.Context, images []imagedir.Image, report *Report) error {
	logger := p.logger.WithStage("index")
	if err := p.importEmbeddings(ctx, logger); err != nil {
		return err
	}

	ingestor := &embedding.Ingestor{
		Embedder: p.embedder,
		Store:    p.store,
		Model:    p.cfg.EmbeddingModel,
		Workers:  p.cfg.Workers,
		Logger:   p.logger,
	}
	ingested, err := ingestor.Ingest(ctx, images)
	if err != nil {
		return err
	}
	report.Embedded, report.CachedVectors = ingested.Embedded, ingested.Cached
	report.EmbeddingSkips = ingested.Skips
	if p.store != nil {
		if report.StoredVectors, err = p.store.Count(ctx, p.cfg.EmbeddingModel); err != nil {
			return fmt.Errorf("pipeline: count embeddings: %w", err)
		}
	}

	built, err := index.Build(ctx, ingested.Embeddings, p.cfg.TopK, index.WithWorkers(p.cfg.Workers))
	if err != nil {
		return err
	}
	for _, s := range built.Skipped {
		logger.LogSkip(ctx, s.ID, s.Err)
	}
	report.IndexSkips = built.Skipped
	report.Indexed = len(built.Index)
	if err := p.verifyIndex(ctx, built.Index, report, logger); err != nil {
		return err
	}

	err = artifact.WriteIndex(p.cfg.IndexPath, built.Index)
	logger.LogArtifact(ctx, p.cfg.IndexPath, len(built.Index), err)
	if err != nil {
		return err
	}
	report.IndexPath = p.cfg.IndexPath
	return nil
}

// verifyIndex re-ranks the first VerifySample entries of idx with
// vec_cosine inside SQLite and counts the lists that differ. Stored vectors
// of images no longer on disk are ignored.
func (p *Pipeline) verifyIndex(ctx context.Context, idx index.SearchIndex, report *Report, logger *logging.Logger) error {
	if p.store == nil || p.cfg.VerifySample == 0 {
		return nil
	}
	ids := idx.Keys()
	if len(ids) > p.cfg.VerifySample {
		ids = ids[:p.cfg.VerifySample]
	}
	for _, id := range ids {
		want := idx[id]
		ranked, err := p.store.Nearest(ctx, p.cfg.EmbeddingModel, id, report.StoredVectors)
		if err != nil {
			return fmt.Errorf("pipeline: verify %s: %w", id, err)
		}
		got := make([]string, 0, len(want))
		for _, n := range ranked {
			if len(got) == len(want) {
				break
			}
			if _, ok := idx[n.ID]; ok {
				got = append(got, n.ID)
			}
		}
		report.Verified++
		if !slices.Equal(got, []string(want)) {
			report.VerifyMismatches++
			logger.WarnContext(ctx, "index disagrees with store ranking", "id", id, "index", want, "store", got)
		}
	}
	logger.InfoContext(ctx, "index verified", "checked", report.Verified, "mismatches", report.VerifyMismatches)
	return nil
}

// importEmbeddings upserts vectors produced by an external encoder run.
func (p *Pipeline) importEmbeddings(ctx context.Context, logger *logging.Logger) error {
	if p.cfg.ImportEmbeddings == "" {
		return nil
	}
	if p.store == nil {
		return fmt.Errorf("pipeline: importing embeddings requires an embedding store")
	}
	f, err := os.Open(p.cfg.ImportEmbeddings)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	defer f.Close()
	raw, err := embedding.ReadJSON(f)
	if err != nil {
		return err
	}
	vectors, skips := embedding.FromMap(raw)
	for _, s := range skips {
		logger.LogSkip(ctx, s.ID, s.Err)
	}
	if err := p.store.Upsert(ctx, p.cfg.EmbeddingModel, vectors); err != nil {
		return err
	}
	logger.InfoContext(ctx, "embeddings imported", "path", p.cfg.ImportEmbeddings, "count", len(vectors))
	return nil
}

func (p *Pipeline) buildPalettes(ctx context.Context, images []imagedir.Image, report *Report) error {
	logger := p.logger.WithStage("palette")
	byID := imagedir.ByID(images)
	ids := imagedir.IDs(images)

	var done, hits atomic.Int64
	outcomes, err := batch.Run(ctx, ids, p.cfg.Workers, func(ctx context.Context, id string) (palette.Palette, error) {
		defer func() {
			logger.LogProgress(ctx, int(done.Add(1)), len(ids), 100)
		}()
		pal, hit, err := palette.ExtractFileCached(byID[id].Path, p.cfg.Palette, p.cache)
		if hit {
			hits.Add(1)
		}
		return pal, err
	})
	if err != nil {
		return err
	}
	palettes := batch.Succeeded(outcomes)
	report.PaletteSkips = batch.Skips(outcomes)
	for _, s := range report.PaletteSkips {
		logger.LogSkip(ctx, s.ID, s.Err)
	}
	report.Palettes = len(palettes)
	report.PaletteCacheHits = int(hits.Load())
	logger.LogBatch(ctx, len(ids), len(report.PaletteSkips))

	records, err := master.Load(p.cfg.MasterPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WarnContext(ctx, "master file not found, skipping palette merge", "path", p.cfg.MasterPath)
		return nil
	}
	if err != nil {
		return err
	}
	merged, stats := master.MergePalettes(records, palettes, p.key)
	report.Merge = stats
	if len(stats.Unmatched) > 0 {
		logger.WarnContext(ctx, "palettes without a master record", "count", len(stats.Unmatched), "keys", stats.Unmatched)
	}

	err = artifact.WriteRecords(p.cfg.MasterPath, merged)
	logger.LogArtifact(ctx, p.cfg.MasterPath, len(merged), err)
	if err != nil {
		return err
	}
	report.MasterWritten = true
	report.MasterPath = p.cfg.MasterPath
	return nil
}
