package main

import (
	"github.com/spf13/cobra"

	"docstore/internal/config"
	"docstore/internal/store"
)

type statusView struct {
	Database    string              `json:"database" yaml:"database"`
	ObjectStore string              `json:"object_store" yaml:"object_store"`
	Inline      store.LocationStats `json:"inline" yaml:"inline"`
	Offloaded   store.LocationStats `json:"offloaded" yaml:"offloaded"`
}

func newStatusCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show row counts per storage location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			stats, err := b.files.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(statusView{
				Database:    cfg.DBPath,
				ObjectStore: b.describeObjectStore(),
				Inline:      stats.Inline,
				Offloaded:   stats.Offloaded,
			})
		},
	}
}
