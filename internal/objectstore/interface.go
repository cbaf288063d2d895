// Package objectstore holds the bulk tier: byte payloads addressed by the same
// path key that identifies their row in the files table.
package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the byte-storage abstraction used for offloaded files.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
