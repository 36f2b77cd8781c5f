package artifact

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/viant/cardindex/index"
	"github.com/viant/cardindex/master"
)

// Marshal encodes v as canonical JSON followed by a newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("artifact: encode: %w", err)
	}
	return nil
}

// MarshalIndex encodes a search index. Items without neighbors are written
// as [] rather than null.
func MarshalIndex(idx index.SearchIndex) ([]byte, error) {
	return Marshal(canonicalIndex(idx))
}

// MarshalRecords encodes a master record list; nil is written as [].
func MarshalRecords(records []master.Record) ([]byte, error) {
	if records == nil {
		records = []master.Record{}
	}
	return Marshal(records)
}

func canonicalIndex(idx index.SearchIndex) map[string][]string {
	out := make(map[string][]string, len(idx))
	for id, neighbors := range idx {
		if neighbors == nil {
			neighbors = index.NeighborList{}
		}
		out[id] = neighbors
	}
	return out
}

// WriteJSON atomically replaces path with the canonical JSON encoding of v.
func WriteJSON(path string, v any) error {
	return WriteFile(path, func(w io.Writer) error {
		return encode(w, v)
	})
}

// WriteIndex atomically writes the search index artifact.
func WriteIndex(path string, idx index.SearchIndex) error {
	return WriteJSON(path, canonicalIndex(idx))
}

// WriteRecords atomically writes the master record artifact.
func WriteRecords(path string, records []master.Record) error {
	if records == nil {
		records = []master.Record{}
	}
	return WriteJSON(path, records)
}

// ReadIndex loads an index artifact.
func ReadIndex(path string) (index.SearchIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	defer f.Close()
	var idx index.SearchIndex
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&idx); err != nil {
		return nil, fmt.Errorf("artifact: decode %s: %w", path, err)
	}
	return idx, nil
}

// WriteFile writes through a temporary file in the destination directory,
// syncs it and renames it over path, then syncs the directory. On any error
// the temporary file is removed and an existing file at path is untouched.
func WriteFile(path string, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0o644)

	buf := bufio.NewWriterSize(tmp, 64*1024)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	tmpName = ""

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
