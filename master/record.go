package master

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/viant/cardindex/palette"
)

var knownFields = []string{"pref", "city", "url", "edition", "id", "palette"}

// Record is one entry of the master list.
type Record struct {
	Pref    string
	City    string
	URL     string
	Edition string
	ID      string
	// Palette is nil when the record has none; an empty non-nil palette is
	// written as [].
	Palette palette.Palette
	// Extra holds fields not listed above, verbatim.
	Extra map[string]json.RawMessage
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = Record{}
	targets := map[string]*string{
		"pref":    &r.Pref,
		"city":    &r.City,
		"url":     &r.URL,
		"edition": &r.Edition,
		"id":      &r.ID,
	}
	for key, raw := range fields {
		if dst, ok := targets[key]; ok {
			if isNull(raw) {
				continue
			}
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			continue
		}
		if key == "palette" {
			if isNull(raw) {
				continue
			}
			if err := json.Unmarshal(raw, &r.Palette); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			if r.Palette == nil {
				r.Palette = palette.Palette{}
			}
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[key] = append(json.RawMessage(nil), raw...)
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	write := func(key string, v any) error {
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		if err := encode(&buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		return encode(&buf, v)
	}
	for i, v := range []string{r.Pref, r.City, r.URL, r.Edition, r.ID} {
		if err := write(knownFields[i], v); err != nil {
			return nil, err
		}
	}
	if r.Palette != nil {
		if err := write("palette", r.Palette); err != nil {
			return nil, err
		}
	}
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, r.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode writes v without HTML escaping and without the encoder's newline.
func encode(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Load reads a master list from a JSON file. A missing file yields an error
// matching os.ErrNotExist.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("master: %w", err)
	}
	defer f.Close()
	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("master: %s: %w", path, err)
	}
	return records, nil
}

// Decode reads a JSON array of records.
func Decode(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
