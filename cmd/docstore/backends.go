package main

import (
	"context"
	"fmt"
	"log/slog"

	"docstore/internal/config"
	"docstore/internal/objectstore"
	"docstore/internal/store"
	"docstore/internal/tiered"
)

// backends holds the relational store and the optional object store for one
// command invocation.
type backends struct {
	files   *store.Store
	objects objectstore.ObjectStore
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	files, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}

	opts := cfg.ObjectStoreOptions()
	opts.Logger = slog.Default()
	objects, err := objectstore.Open(ctx, opts)
	if err != nil {
		_ = files.Close()
		return nil, err
	}
	return &backends{files: files, objects: objects}, nil
}

func (b *backends) blobs() *tiered.Store {
	return tiered.New(b.files, b.objects, tiered.WithLogger(slog.Default().With("component", "tiered")))
}

func (b *backends) describeObjectStore() string {
	switch objects := b.objects.(type) {
	case nil:
		return "none"
	case *objectstore.S3:
		return "s3://" + objects.Bucket()
	case *objectstore.Local:
		return "local"
	default:
		return fmt.Sprintf("%T", objects)
	}
}

func (b *backends) Close() error {
	return b.files.Close()
}
