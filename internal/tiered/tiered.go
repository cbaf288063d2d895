// Package tiered decides where each file's bytes live and hides that choice
// from readers.
//
// The files table is the only authority for a file's media type, timestamp
// and location. When an object store is configured every write goes there
// and the row records only that the bytes were offloaded; otherwise bytes are
// stored inline. An upload failure is fatal to the write: falling back to
// inline storage would leave two tiers disagreeing about the same key.
package tiered

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"docstore/internal/models"
	"docstore/internal/objectstore"
	"docstore/internal/store"
)

var (
	// ErrStorageFatal matches every object-storage upload failure.
	ErrStorageFatal = errors.New("object storage upload failed")
	// ErrNoObjectStore is returned when an offloaded row is read without a
	// configured object store.
	ErrNoObjectStore = errors.New("object storage is not configured")
	// ErrInvalidPath rejects keys that cannot double as object keys.
	ErrInvalidPath = errors.New("invalid path key")
)

// UploadError reports a failed upload of one file.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() []error {
	return []error{ErrStorageFatal, e.Err}
}

// FetchError reports a failed read of offloaded bytes. There is no fallback
// read path and no retry.
type FetchError struct {
	Path string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Store is the tiered blob store.
type Store struct {
	files   *store.Store
	objects objectstore.ObjectStore
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a tiered store. A nil objects selects relational-only mode for
// the lifetime of the Store.
func New(files *store.Store, objects objectstore.ObjectStore, opts ...Option) *Store {
	s := &Store{
		files:   files,
		objects: objects,
		logger:  slog.Default().With("component", "tiered"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Offloading reports whether writes go to object storage.
func (s *Store) Offloading() bool {
	return s.objects != nil
}

// Files returns the relational store backing s.
func (s *Store) Files() *store.Store {
	return s.files
}

// Put upserts one file in its own transaction.
func (s *Store) Put(ctx context.Context, path, mediaType string, data []byte) error {
	return s.files.WithTx(ctx, func(tx *store.Tx) error {
		return s.PutTx(ctx, tx, path, mediaType, data)
	})
}

// PutTx upserts one file inside tx. When object storage is configured the
// upload completes before the row is staged.
func (s *Store) PutTx(ctx context.Context, tx *store.Tx, path, mediaType string, data []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	if s.objects == nil {
		return tx.UpsertInline(ctx, path, mediaType, data)
	}

	if err := s.objects.Put(ctx, path, mediaType, data); err != nil {
		s.logger.Error("upload failed", "path", path, "error", err)
		return &UploadError{Path: path, Err: err}
	}
	return tx.UpsertOffloaded(ctx, path, mediaType)
}

// Get returns the file at path with its bytes, wherever they live. Media type
// and timestamp always come from the row.
func (s *Store) Get(ctx context.Context, path string) (*models.File, error) {
	file, err := s.files.GetFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if !file.Offloaded() {
		return file, nil
	}

	if s.objects == nil {
		return nil, &FetchError{Path: path, Err: ErrNoObjectStore}
	}
	data, err := s.objects.Get(ctx, path)
	if err != nil {
		return nil, &FetchError{Path: path, Err: err}
	}
	file.Content = data
	return file, nil
}

// ValidatePath checks that path is usable both as a primary key and as an
// object key.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	case strings.HasPrefix(path, "/"):
		return fmt.Errorf("%w: %q has a leading separator", ErrInvalidPath, path)
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("%w: %q has an empty or relative segment", ErrInvalidPath, path)
		}
	}
	return nil
}
