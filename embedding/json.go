package embedding

import (
	"encoding/json"
	"fmt"
	"io"
)

// ReadJSON decodes a {"id": [floats...]} mapping as written by an external
// encoder run.
func ReadJSON(r io.Reader) (map[string][]float32, error) {
	var m map[string][]float32
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("embedding: decode vectors: %w", err)
	}
	return m, nil
}
