package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docstore/internal/config"
	"docstore/internal/metrics"
	"docstore/internal/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var addr string
	var withMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored files read-only over HTTP",
		Long: `Serve stored files at /files/<path-key> with their stored media type.

Listening on a non-loopback address requires DOCSTORE_ALLOW_REMOTE=true.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr, err := server.ListenAddr(addr)
			if err != nil {
				return err
			}

			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			var m *metrics.Metrics
			if withMetrics {
				m = metrics.New()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(listenAddr, b.blobs(), m, slog.Default().With("component", "server"))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "expose Prometheus metrics at /metrics")
	return cmd
}
