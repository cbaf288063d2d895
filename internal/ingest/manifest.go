package ingest

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Entry is one ingested file: its media type and its path relative to the
// ingested root.
type Entry struct {
	MediaType string
	Path      string
}

// Manifest lists ingested files in processing order. It serializes as an
// array of [media_type, path] pairs.
type Manifest []Entry

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.MediaType, e.Path})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("manifest entry must have 2 elements, got %d", len(pair))
	}
	e.MediaType, e.Path = pair[0], pair[1]
	return nil
}

func (e Entry) MarshalYAML() (any, error) {
	return []string{e.MediaType, e.Path}, nil
}

// Paths returns the relative paths in manifest order.
func (m Manifest) Paths() []string {
	out := make([]string, len(m))
	for i, entry := range m {
		out[i] = entry.Path
	}
	return out
}

// Key joins a prefix and a relative path into a store key without a leading
// separator.
func Key(prefix, rel string) string {
	return strings.TrimPrefix(path.Join(prefix, rel), "/")
}
