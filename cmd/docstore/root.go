package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docstore/internal/config"
	"docstore/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var logLevel string
	var outputFormat string

	cmd := &cobra.Command{
		Use:           "docstore",
		Short:         "Docstore stores documentation trees in SQLite with optional object storage offload",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}

			formatter, err := format.ForName(outputFormat)
			if err != nil {
				return err
			}
			outputFormatter = formatter
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "json", "structured output format (json or yaml)")

	cmd.AddCommand(
		newAddCmd(cfg),
		newGetCmd(cfg),
		newOffloadCmd(cfg),
		newStatusCmd(cfg),
		newServeCmd(cfg),
		newMigrateCmd(cfg),
		newConfigCmd(cfg),
	)

	return cmd
}
