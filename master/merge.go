package master

import (
	"fmt"
	"sort"

	"github.com/viant/cardindex/palette"
	"golang.org/x/text/unicode/norm"
)

// KeyFunc derives the palette lookup key of a record. It must match the
// identifiers the palettes were extracted under (NFC file names).
type KeyFunc func(Record) string

// ByCityPNG keys a record by its city name plus ".png", the naming used by
// the cropping stage.
func ByCityPNG(r Record) string {
	return norm.NFC.String(r.City) + ".png"
}

// ByIDPNG keys a record by its id plus ".png".
func ByIDPNG(r Record) string {
	return norm.NFC.String(r.ID) + ".png"
}

// KeyByName resolves a configured key name ("city" or "id").
func KeyByName(name string) (KeyFunc, error) {
	switch name {
	case "", "city":
		return ByCityPNG, nil
	case "id":
		return ByIDPNG, nil
	}
	return nil, fmt.Errorf("master: unknown merge key %q", name)
}

// MergeStats summarizes a merge.
type MergeStats struct {
	Records int
	Matched int
	// Unmatched lists palette keys that no record resolved to, sorted.
	Unmatched []string
}

// MergePalettes returns a copy of records where every record whose key is
// present in palettes carries that palette, replacing any previous one.
// Other records are unchanged. The inputs are not modified and the merge is
// idempotent. A nil key uses ByCityPNG.
func MergePalettes(records []Record, palettes map[string]palette.Palette, key KeyFunc) ([]Record, MergeStats) {
	if key == nil {
		key = ByCityPNG
	}
	out := make([]Record, len(records))
	used := make(map[string]bool, len(palettes))
	stats := MergeStats{Records: len(records)}
	for i, r := range records {
		k := key(r)
		if p, ok := palettes[k]; ok {
			r.Palette = append(palette.Palette{}, p...)
			used[k] = true
			stats.Matched++
		}
		out[i] = r
	}
	for k := range palettes {
		if !used[k] {
			stats.Unmatched = append(stats.Unmatched, k)
		}
	}
	sort.Strings(stats.Unmatched)
	return out, stats
}
