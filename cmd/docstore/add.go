package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"docstore/internal/classify"
	"docstore/internal/config"
	"docstore/internal/ingest"
	"docstore/internal/metrics"
	"docstore/internal/models"
	"docstore/internal/store"
)

func newAddCmd(cfg *config.Config) *cobra.Command {
	var textfile string

	cmd := &cobra.Command{
		Use:   "add <prefix> <path>",
		Short: "Store a file or directory tree under a key prefix",
		Long: `Store every regular file under <path> at <prefix>/<relative path>.

All files are written in one transaction. Files that cannot be read for lack
of permission are skipped; any other failure stores nothing. The manifest of
stored files is printed as [media_type, path] pairs.

With --metrics-textfile the run's counters are written in the Prometheus text
format, whether or not the ingestion succeeded.`,
		Args: requireExactlyArgs(2, "prefix and path are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, root := args[0], args[1]

			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			classifier, err := classify.New(nil)
			if err != nil {
				return err
			}

			var m *metrics.Metrics
			if textfile != "" {
				m = metrics.New()
			}
			in := ingest.New(b.blobs(), classifier,
				ingest.WithLogger(slog.Default().With("component", "ingest")),
				ingest.WithMetrics(m),
			)

			manifest, addErr := in.AddPath(cmd.Context(), prefix, root)
			if m != nil {
				if err := flushIngestMetrics(cmd.Context(), b.files, m, textfile); err != nil {
					return errors.Join(addErr, err)
				}
			}
			if addErr != nil {
				return addErr
			}
			return writeOutput(manifest)
		},
	}

	cmd.Flags().StringVar(&textfile, "metrics-textfile", "", "write ingest metrics to this file (Prometheus text format)")
	return cmd
}

func flushIngestMetrics(ctx context.Context, files *store.Store, m *metrics.Metrics, path string) error {
	stats, err := files.Stats(ctx)
	if err != nil {
		return err
	}
	m.SetFilesByLocation(string(models.LocationInline), stats.Inline.Files)
	m.SetFilesByLocation(string(models.LocationOffloaded), stats.Offloaded.Files)
	return m.WriteTextfile(path)
}
