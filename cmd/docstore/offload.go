package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docstore/internal/config"
	"docstore/internal/metrics"
	"docstore/internal/offload"
)

const defaultOffloadInterval = 30 * time.Second

type offloadOptions struct {
	batch       int
	concurrency int
	watch       bool
	interval    time.Duration
	metricsAddr string
}

func newOffloadCmd(cfg *config.Config) *cobra.Command {
	opts := offloadOptions{}

	cmd := &cobra.Command{
		Use:   "offload",
		Short: "Move inline file bytes into object storage",
		Long: `Move inline rows into object storage in batches, oldest first.

Each batch uploads concurrently and flips its rows only if every upload
succeeds. Without --watch the command runs until no inline rows remain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.batch <= 0 {
				opts.batch = cfg.Offload.BatchSize
			}
			if opts.concurrency <= 0 {
				opts.concurrency = cfg.Offload.Concurrency
			}
			return runOffload(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.batch, "batch", 0, "rows per batch (default from offload.batch_size)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "uploads in flight per batch (default from offload.concurrency)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "keep running a batch every --interval until interrupted")
	cmd.Flags().DurationVar(&opts.interval, "interval", defaultOffloadInterval, "time between batches with --watch")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address with --watch")
	return cmd
}

func runOffload(ctx context.Context, cfg *config.Config, opts offloadOptions) error {
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	logger := slog.Default().With("component", "offload")
	var m *metrics.Metrics
	if opts.watch && opts.metricsAddr != "" {
		m = metrics.New()
	}

	w, err := offload.New(b.files, b.objects,
		offload.WithConcurrency(opts.concurrency),
		offload.WithLogger(logger),
		offload.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	if !opts.watch {
		if err := w.Run(ctx, opts.batch, 0); err != nil {
			return err
		}
		stats, err := b.files.Stats(ctx)
		if err != nil {
			return err
		}
		return writeOutput(stats)
	}

	if opts.interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if m != nil {
		srv := startMetricsServer(opts.metricsAddr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("watching for inline rows", "batch", opts.batch, "interval", opts.interval)
	return w.Run(ctx, opts.batch, opts.interval)
}

func startMetricsServer(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()
	return srv
}
