// Package offload moves inline file bytes into object storage in batches.
//
// A batch is all-or-nothing: rows are selected and flipped inside a single
// transaction, and the flip only happens after every upload in the batch
// has succeeded.
package offload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"docstore/internal/metrics"
	"docstore/internal/models"
	"docstore/internal/objectstore"
	"docstore/internal/store"
	"docstore/internal/tiered"
)

// DefaultConcurrency bounds uploads in flight per batch.
const DefaultConcurrency = 16

// ErrNoObjectStore is returned by New without an object store.
var ErrNoObjectStore = tiered.ErrNoObjectStore

// BatchError reports a batch that was rolled back because an upload failed.
// No row in the batch was flipped.
type BatchError struct {
	Selected int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("offload batch of %d rolled back: %v", e.Selected, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Worker migrates inline rows to object storage.
type Worker struct {
	files       *store.Store
	objects     objectstore.ObjectStore
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Worker)

// WithConcurrency sets the number of concurrent uploads. Values below 1 are
// ignored.
func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func New(files *store.Store, objects objectstore.ObjectStore, opts ...Option) (*Worker, error) {
	if objects == nil {
		return nil, ErrNoObjectStore
	}
	w := &Worker{
		files:       files,
		objects:     objects,
		concurrency: DefaultConcurrency,
		logger:      slog.Default().With("component", "offload"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// MoveBatch moves up to n inline rows, oldest first, and returns how many
// were moved.
func (w *Worker) MoveBatch(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("batch size must be > 0, got %d", n)
	}

	start := time.Now()
	moved, err := w.moveBatch(ctx, n)
	outcome := "success"
	switch {
	case err != nil:
		outcome = "failure"
	case moved == 0:
		outcome = "empty"
	}
	w.metrics.RecordOffloadBatch(outcome, moved, time.Since(start).Seconds())
	return moved, err
}

func (w *Worker) moveBatch(ctx context.Context, n int) (int, error) {
	moved := 0
	err := w.files.WithTx(ctx, func(tx *store.Tx) error {
		rows, err := tx.SelectInline(ctx, n)
		if err != nil {
			return fmt.Errorf("select inline rows: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		if err := w.upload(ctx, rows); err != nil {
			w.logger.Error("offload batch rolled back", "selected", len(rows), "error", err)
			return &BatchError{Selected: len(rows), Err: err}
		}

		for _, row := range rows {
			if err := tx.MarkOffloaded(ctx, row.Path); err != nil {
				return err
			}
		}
		moved = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if moved > 0 {
		w.logger.Info("offloaded batch", "moved", moved)
	}
	w.refreshGauges(ctx)
	return moved, nil
}

func (w *Worker) upload(ctx context.Context, rows []models.File) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, row := range rows {
		g.Go(func() error {
			if err := w.objects.Put(gctx, row.Path, row.MediaType, row.Content); err != nil {
				return &tiered.UploadError{Path: row.Path, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) refreshGauges(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	stats, err := w.files.Stats(ctx)
	if err != nil {
		w.logger.Warn("failed to read file stats", "error", err)
		return
	}
	w.metrics.SetFilesByLocation(string(models.LocationInline), stats.Inline.Files)
	w.metrics.SetFilesByLocation(string(models.LocationOffloaded), stats.Offloaded.Files)
}

// Run moves batches of n rows. With a zero interval it returns once a batch
// moves nothing. Otherwise it runs a batch per tick until ctx is cancelled.
// The first failed batch stops the loop.
func (w *Worker) Run(ctx context.Context, n int, interval time.Duration) error {
	if interval <= 0 {
		total := 0
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			moved, err := w.MoveBatch(ctx, n)
			if err != nil {
				return err
			}
			total += moved
			if moved == 0 {
				w.logger.Info("offload drained", "moved", total)
				return nil
			}
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := w.MoveBatch(ctx, n); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
