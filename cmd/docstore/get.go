package main

import (
	"os"

	"github.com/spf13/cobra"

	"docstore/internal/config"
)

func newGetCmd(cfg *config.Config) *cobra.Command {
	var outputPath string
	var meta bool

	cmd := &cobra.Command{
		Use:   "get <path-key>",
		Short: "Print the bytes stored at a key",
		Args:  requireExactlyArgs(1, "path key is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackends(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if meta {
				file, err := b.files.GetFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeOutput(fileMeta{
					Path:      file.Path,
					MediaType: file.MediaType,
					UpdatedAt: formatTime(file.UpdatedAt),
					Location:  string(file.Location),
					Size:      len(file.Content),
				})
			}

			file, err := b.blobs().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outputPath != "" {
				return os.WriteFile(outputPath, file.Content, 0o644)
			}
			_, err = stdout.Write(file.Content)
			return err
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write bytes to a file instead of stdout")
	cmd.Flags().BoolVar(&meta, "meta", false, "print media type, timestamp and location instead of bytes")
	return cmd
}

// fileMeta is the --meta view of a row. Size counts inline bytes only.
type fileMeta struct {
	Path      string `json:"path" yaml:"path"`
	MediaType string `json:"media_type" yaml:"media_type"`
	UpdatedAt string `json:"updated_at" yaml:"updated_at"`
	Location  string `json:"location" yaml:"location"`
	Size      int    `json:"inline_size" yaml:"inline_size"`
}
