package models

import (
	"fmt"
	"strings"
	"time"
)

// Location records which tier holds a file's bytes.
type Location string

const (
	LocationInline    Location = "inline"
	LocationOffloaded Location = "offloaded"
)

var validLocations = map[Location]struct{}{
	LocationInline:    {},
	LocationOffloaded: {},
}

// ParseLocation validates a stored location value.
func ParseLocation(raw string) (Location, error) {
	value := Location(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("location is required")
	}
	if _, ok := validLocations[value]; !ok {
		return "", fmt.Errorf("invalid location: %s", value)
	}
	return value, nil
}

// File is one stored artifact keyed by its path.
//
// Content holds the inline bytes as read from the files table. For offloaded
// rows it is empty until the tiered store fills it from object storage.
type File struct {
	Path      string    `json:"path" yaml:"path"`
	MediaType string    `json:"media_type" yaml:"media_type"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Location  Location  `json:"location" yaml:"location"`
	Content   []byte    `json:"-" yaml:"-"`
}

// Offloaded reports whether the payload lives in object storage.
func (f *File) Offloaded() bool {
	return f != nil && f.Location == LocationOffloaded
}
