// Package classify maps file bytes to the media type stored with each file.
package classify

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const plainText = "text/plain"

// ErrClassification marks a classifier that could not be set up.
var ErrClassification = errors.New("classification failed")

// DefaultOverrides replaces the sniffer's text/plain verdict for extensions
// browsers need typed precisely.
var DefaultOverrides = map[string]string{
	".css": "text/css",
	".js":  "application/javascript",
}

// Classifier sniffs content signatures and applies extension overrides.
// It is safe for concurrent use.
type Classifier struct {
	overrides map[string]string
}

// New validates overrides and returns a Classifier. A nil map selects
// DefaultOverrides.
func New(overrides map[string]string) (*Classifier, error) {
	if overrides == nil {
		overrides = DefaultOverrides
	}
	normalized := make(map[string]string, len(overrides))
	for ext, mediaType := range overrides {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 || strings.ContainsAny(ext, "/\\") {
			return nil, fmt.Errorf("%w: invalid override extension %q", ErrClassification, ext)
		}
		parsed, err := normalize(mediaType)
		if err != nil || parsed == "" {
			return nil, fmt.Errorf("%w: invalid override media type %q for %s", ErrClassification, mediaType, ext)
		}
		normalized[ext] = parsed
	}
	return &Classifier{overrides: normalized}, nil
}

// Classify returns the normalized media type for data. ext is the file
// extension including the dot, as returned by Extension.
func (c *Classifier) Classify(data []byte, ext string) string {
	sniffed, err := normalize(mimetype.Detect(data).String())
	if err != nil || sniffed == "" {
		sniffed = "application/octet-stream"
	}
	if sniffed != plainText {
		return sniffed
	}
	if override, ok := c.overrides[strings.ToLower(ext)]; ok {
		return override
	}
	return sniffed
}

// Extension returns the extension of a slash or OS separated path.
func Extension(name string) string {
	return path.Ext(strings.ReplaceAll(name, "\\", "/"))
}

// normalize drops parameters such as charset and lower-cases the type.
func normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed), nil
}
