// Package config holds the pipeline settings. Values come from defaults,
// optional .env files and CARDINDEX_* environment variables, in that order;
// command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/viant/cardindex/master"
	"github.com/viant/cardindex/palette"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CARDINDEX_"

// Config is the full pipeline configuration.
type Config struct {
	ImageDir   string
	IndexPath  string
	MasterPath string
	// EmbeddingDB is the SQLite file caching embeddings; empty disables it.
	EmbeddingDB    string
	EmbeddingModel string
	// ImportEmbeddings is an optional JSON file of precomputed vectors
	// upserted into the store before ingest.
	ImportEmbeddings string
	TopK             int
	Workers          int
	// VerifySample is the number of index entries re-ranked in SQL against
	// the embedding store after a build; zero disables the check.
	VerifySample int
	Palette          palette.Options
	// PaletteCache is the bbolt file memoizing palettes; empty disables it.
	PaletteCache string
	// MergeKey selects the record key: "city" or "id".
	MergeKey  string
	LogLevel  string
	LogFormat string
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ImageDir:    "manhole_crops",
		IndexPath:   "similarity_index.json",
		MasterPath:  "master_data.json",
		EmbeddingDB: "embeddings.sqlite",
		TopK:        10,
		Workers:     runtime.NumCPU(),
		Palette:     palette.DefaultOptions(),
		MergeKey:    "city",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads the given .env files (or ./.env when present if none are
// given) into the environment and returns the defaults overlaid with
// CARDINDEX_* variables.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("IMAGE_DIR", &c.ImageDir)
	str("INDEX_PATH", &c.IndexPath)
	str("MASTER_PATH", &c.MasterPath)
	str("EMBEDDING_DB", &c.EmbeddingDB)
	str("EMBEDDING_MODEL", &c.EmbeddingModel)
	str("IMPORT_EMBEDDINGS", &c.ImportEmbeddings)
	str("PALETTE_CACHE", &c.PaletteCache)
	str("MERGE_KEY", &c.MergeKey)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	var seed, alpha uint64
	seed, alpha = c.Palette.Seed, uint64(c.Palette.AlphaThreshold)
	for _, p := range []struct {
		name string
		set  func(string) error
	}{
		{"TOP_K", intVar(&c.TopK)},
		{"WORKERS", intVar(&c.Workers)},
		{"VERIFY_SAMPLE", intVar(&c.VerifySample)},
		{"PALETTE_COLORS", intVar(&c.Palette.NumColors)},
		{"PALETTE_MAX_ITERATIONS", intVar(&c.Palette.MaxIterations)},
		{"PALETTE_RESTARTS", intVar(&c.Palette.Restarts)},
		{"PALETTE_SAMPLE_SIZE", intVar(&c.Palette.SampleSize)},
		{"PALETTE_EPSILON", floatVar(&c.Palette.Epsilon)},
		{"PALETTE_SEED", uintVar(&seed, 64)},
		{"PALETTE_ALPHA_THRESHOLD", uintVar(&alpha, 8)},
	} {
		v, ok := os.LookupEnv(EnvPrefix + p.name)
		if !ok || v == "" {
			continue
		}
		if err := p.set(v); err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, p.name, err)
		}
	}
	c.Palette.Seed, c.Palette.AlphaThreshold = seed, uint8(alpha)
	return nil
}

func intVar(dst *int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(s)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func floatVar(dst *float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(s, 64)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func uintVar(dst *uint64, bits int) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseUint(s, 10, bits)
		if err == nil {
			*dst = v
		}
		return err
	}
}

// Validate checks the configuration before a run.
func (c *Config) Validate() error {
	if c.ImageDir == "" {
		return fmt.Errorf("config: image dir is required")
	}
	if c.TopK < 1 {
		return fmt.Errorf("config: top-k must be >= 1, got %d", c.TopK)
	}
	if c.VerifySample < 0 {
		return fmt.Errorf("config: verify sample must be >= 0, got %d", c.VerifySample)
	}
	if err := c.Palette.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := master.KeyByName(c.MergeKey); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
