// Command cardindex builds the similarity index and the palette-enriched
// master record list for a folder of card images.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/viant/cardindex/config"
	"github.com/viant/cardindex/embedding"
	"github.com/viant/cardindex/engine"
	"github.com/viant/cardindex/internal/logging"
	"github.com/viant/cardindex/palette"
	"github.com/viant/cardindex/pipeline"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "cardindex:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	envFile := envFlag(args)
	var cfg *config.Config
	var err error
	if envFile != "" {
		cfg, err = config.Load(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("cardindex", flag.ContinueOnError)
	fs.String("env", envFile, "optional .env file with CARDINDEX_* settings")
	fs.StringVar(&cfg.ImageDir, "images", cfg.ImageDir, "directory of cropped card images")
	fs.StringVar(&cfg.IndexPath, "index", cfg.IndexPath, "similarity index output file")
	fs.StringVar(&cfg.MasterPath, "master", cfg.MasterPath, "master record file to update with palettes")
	fs.StringVar(&cfg.EmbeddingDB, "db", cfg.EmbeddingDB, "SQLite embedding store (empty disables it)")
	fs.StringVar(&cfg.EmbeddingModel, "model", cfg.EmbeddingModel, "embedding model name the vectors belong to")
	fs.StringVar(&cfg.ImportEmbeddings, "import", cfg.ImportEmbeddings, "JSON file of precomputed vectors to import")
	fs.IntVar(&cfg.TopK, "k", cfg.TopK, "neighbors per item")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel workers")
	fs.IntVar(&cfg.VerifySample, "verify", cfg.VerifySample, "index entries to re-rank in SQL against the store (0 disables)")
	fs.IntVar(&cfg.Palette.NumColors, "colors", cfg.Palette.NumColors, "palette size")
	fs.Uint64Var(&cfg.Palette.Seed, "seed", cfg.Palette.Seed, "palette clustering seed")
	fs.StringVar(&cfg.PaletteCache, "palette-cache", cfg.PaletteCache, "bbolt palette cache file (empty disables it)")
	fs.StringVar(&cfg.MergeKey, "merge-key", cfg.MergeKey, "record key for palettes: city or id")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := logging.FromConfig(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.EmbeddingDB != "" {
		db, err := engine.Open(cfg.EmbeddingDB)
		if err != nil {
			return err
		}
		defer db.Close()
		store, err := embedding.NewStore(ctx, db)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithEmbeddingStore(store))
	}
	if cfg.PaletteCache != "" {
		cache, err := palette.OpenBoltCache(cfg.PaletteCache, nil)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts = append(opts, pipeline.WithPaletteCache(cache))
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		return err
	}
	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "run complete",
		"images", report.Images,
		"indexed", report.Indexed,
		"embedded", report.Embedded,
		"cached_vectors", report.CachedVectors,
		"embedding_skips", len(report.EmbeddingSkips)+len(report.IndexSkips),
		"stored_vectors", report.StoredVectors,
		"verify_mismatches", report.VerifyMismatches,
		"palettes", report.Palettes,
		"palette_skips", len(report.PaletteSkips),
		"records_matched", report.Merge.Matched,
		"master_written", report.MasterWritten,
	)
	return nil
}

// envFlag finds -env ahead of flag parsing; the file it names supplies the
// defaults the remaining flags override.
func envFlag(args []string) string {
	for i, a := range args {
		a = strings.TrimPrefix(strings.TrimPrefix(a, "-"), "-")
		if v, ok := strings.CutPrefix(a, "env="); ok {
			return v
		}
		if a == "env" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
