package palette

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketPalettes = []byte("palettes")

// Cache memoizes palettes across runs.
type Cache interface {
	Get(key string) (Palette, bool, error)
	Put(key string, p Palette) error
}

// CacheKey identifies an image file and the options it was extracted with.
// A changed size or modification time invalidates the entry.
func CacheKey(path string, info os.FileInfo, opts Options) string {
	return fmt.Sprintf("%s|%d|%d|%s", filepath.Base(path), info.Size(), info.ModTime().UnixNano(), opts.digest())
}

// ExtractFileCached returns the cached palette for path when present and
// extracts and stores it otherwise. The bool reports a cache hit. A nil
// cache behaves like ExtractFile.
func ExtractFileCached(path string, opts Options, cache Cache) (Palette, bool, error) {
	if cache == nil {
		p, err := ExtractFile(path, opts)
		return p, false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, &DecodeError{Path: path, Err: err}
	}
	key := CacheKey(path, info, opts)
	if p, ok, err := cache.Get(key); err != nil {
		return nil, false, err
	} else if ok {
		return p, true, nil
	}
	p, err := ExtractFile(path, opts)
	if err != nil {
		return nil, false, err
	}
	if err := cache.Put(key, p); err != nil {
		return nil, false, err
	}
	return p, false, nil
}

// BoltCache stores palettes as JSON in a bbolt bucket.
type BoltCache struct {
	db *bbolt.DB
}

// BoltOptions configures OpenBoltCache.
type BoltOptions struct {
	// Timeout bounds waiting for the file lock; zero means 5s.
	Timeout time.Duration
}

// OpenBoltCache opens or creates a cache file at path.
func OpenBoltCache(path string, opts *BoltOptions) (*BoltCache, error) {
	timeout := 5 * time.Second
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("palette: open cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPalettes)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("palette: init cache: %w", err)
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Get(key string) (Palette, bool, error) {
	var p Palette
	found := false
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPalettes).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return nil, false, fmt.Errorf("palette: cache get %q: %w", key, err)
	}
	return p, found, nil
}

func (c *BoltCache) Put(key string, p Palette) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPalettes).Put([]byte(key), data)
	})
}

// Len returns the number of cached palettes.
func (c *BoltCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketPalettes).Stats().KeyN
		return nil
	})
	return n, err
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}
