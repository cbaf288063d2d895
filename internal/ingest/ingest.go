// Package ingest turns a local directory tree into files in the tiered store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"docstore/internal/classify"
	"docstore/internal/metrics"
	"docstore/internal/models"
	"docstore/internal/store"
	"docstore/internal/tiered"
)

// Opener opens a local file for reading.
type Opener func(name string) (io.ReadCloser, error)

func openFile(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// Ingester upserts whole trees in one transaction per call.
type Ingester struct {
	blobs      *tiered.Store
	classifier *classify.Classifier
	open       Opener
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingester) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithMetrics records ingestion outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Ingester) { in.metrics = m }
}

// WithOpener replaces os.Open for reading source files.
func WithOpener(open Opener) Option {
	return func(in *Ingester) {
		if open != nil {
			in.open = open
		}
	}
}

// New returns an Ingester writing through blobs.
func New(blobs *tiered.Store, classifier *classify.Classifier, opts ...Option) *Ingester {
	in := &Ingester{
		blobs:      blobs,
		classifier: classifier,
		open:       openFile,
		logger:     slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// AddPath stores every regular file under root at prefix/<relative path>.
// Files that cannot be opened for lack of permission are skipped. All rows
// commit together; any other failure leaves the store untouched.
func (in *Ingester) AddPath(ctx context.Context, prefix, root string) (Manifest, error) {
	start := time.Now()
	manifest, err := in.addPath(ctx, prefix, root)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	in.metrics.RecordIngest(outcome, time.Since(start).Seconds())
	return manifest, err
}

func (in *Ingester) addPath(ctx context.Context, prefix, root string) (Manifest, error) {
	rels, base, err := enumerate(root)
	if err != nil {
		return nil, err
	}

	location := models.LocationInline
	if in.blobs.Offloading() {
		location = models.LocationOffloaded
	}

	manifest := Manifest{}
	skipped := 0
	err = in.blobs.Files().WithTx(ctx, func(tx *store.Tx) error {
		for _, rel := range rels {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := in.readFile(filepath.Join(base, filepath.FromSlash(rel)))
			if errors.Is(err, fs.ErrPermission) {
				in.logger.Warn("skipping unreadable file", "path", rel, "error", err)
				skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", rel, err)
			}

			mediaType := in.classifier.Classify(data, classify.Extension(rel))
			if err := in.blobs.PutTx(ctx, tx, Key(prefix, rel), mediaType, data); err != nil {
				return err
			}
			manifest = append(manifest, Entry{MediaType: mediaType, Path: rel})
		}
		return nil
	})
	if err != nil {
		in.logger.Error("ingestion rolled back", "prefix", prefix, "root", root, "error", err)
		return nil, err
	}

	for range manifest {
		in.metrics.RecordFileStored(string(location))
	}
	for range skipped {
		in.metrics.RecordFileSkipped("permission")
	}
	in.logger.Info("ingested tree", "prefix", prefix, "root", root, "files", len(manifest), "skipped", skipped, "location", location)
	return manifest, nil
}

func (in *Ingester) readFile(name string) ([]byte, error) {
	f, err := in.open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
