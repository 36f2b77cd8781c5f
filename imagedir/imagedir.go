// Package imagedir discovers the card images deposited by the acquisition
// stage and derives their stable item identifiers.
package imagedir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extensions lists the supported image file extensions (lower case).
var Extensions = []string{".png", ".jpg", ".jpeg"}

// Image is a discovered image file.
type Image struct {
	// ID is the NFC-normalized file name; it keys the similarity index and
	// the palette mapping.
	ID string
	// Name is the file name as stored on disk.
	Name string
	// Path is the full path to the file.
	Path string
}

// Supported reports whether name carries a supported extension, ignoring case.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ID derives the item identifier for a file name. File systems such as APFS
// may hand back decomposed (NFD) names; identifiers are always NFC so they
// join with display names typed elsewhere.
func ID(name string) string {
	return norm.NFC.String(name)
}

// List returns the supported regular files directly under dir, sorted by ID.
func List(dir string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("imagedir: %w", err)
	}
	images := make([]Image, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		if !e.Type().IsRegular() {
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		id := ID(e.Name())
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("imagedir: %q and %q normalize to the same id %q", prev, e.Name(), id)
		}
		seen[id] = e.Name()
		images = append(images, Image{ID: id, Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].ID < images[j].ID })
	return images, nil
}

// IDs returns the identifiers of images in order.
func IDs(images []Image) []string {
	ids := make([]string, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}

// ByID indexes images by identifier.
func ByID(images []Image) map[string]Image {
	m := make(map[string]Image, len(images))
	for _, img := range images {
		m[img.ID] = img
	}
	return m
}
