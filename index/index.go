package index

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidK is returned when the neighbor count is not positive.
var ErrInvalidK = errors.New("index: k must be positive")

// NeighborList holds up to K item identifiers ordered by descending
// similarity. It never contains the owning item's identifier.
type NeighborList []string

// SearchIndex maps each item identifier to its NeighborList.
type SearchIndex map[string]NeighborList

// Keys returns the identifiers in ascending order.
func (s SearchIndex) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the structural invariants: every list is at most k long,
// has no duplicates, does not reference its own key and only references keys
// present in the index.
func (s SearchIndex) Validate(k int) error {
	for _, id := range s.Keys() {
		list := s[id]
		if len(list) > k {
			return fmt.Errorf("index: %q has %d neighbors, want <= %d", id, len(list), k)
		}
		seen := make(map[string]struct{}, len(list))
		for _, n := range list {
			if n == id {
				return fmt.Errorf("index: %q lists itself", id)
			}
			if _, dup := seen[n]; dup {
				return fmt.Errorf("index: %q lists %q twice", id, n)
			}
			if _, ok := s[n]; !ok {
				return fmt.Errorf("index: %q lists unknown item %q", id, n)
			}
			seen[n] = struct{}{}
		}
	}
	return nil
}
