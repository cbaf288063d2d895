package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docstore/internal/config"
)

// configPaths reports where configuration is read from and written to.
type configPaths struct {
	Global        string `json:"global" yaml:"global"`
	Project       string `json:"project" yaml:"project"`
	ProjectLoaded bool   `json:"project_loaded" yaml:"project_loaded"`
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change docstore settings",
	}

	cmd.AddCommand(newConfigGetCmd(cfg))
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigPathCmd(cfg))
	return cmd
}

func newConfigGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print one effective setting, or all of them",
		Long: `Print the effective value of a setting after config files and environment
overrides are applied. Without a key every supported setting is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				values, err := effectiveSettings(cfg)
				if err != nil {
					return err
				}
				return writeOutput(values)
			}

			value, err := cfg.Get(args[0])
			if err != nil {
				return fmt.Errorf("%w (allowed: %v)", err, config.AllowedKeys())
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting in the project or global config file",
		Args:  requireExactlyArgs(2, "key and value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathFn := config.ProjectPath
			if global {
				pathFn = config.GlobalPath
			}
			path, err := pathFn()
			if err != nil {
				return err
			}

			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			return writePlain("%s written to %s\n", args[0], path)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to ~/.docstore.toml instead of ./.docstore.toml")
	return cmd
}

func newConfigPathCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show which config files are used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			global, err := config.GlobalPath()
			if err != nil {
				return err
			}
			project, err := config.ProjectPath()
			if err != nil {
				return err
			}
			return writeOutput(configPaths{
				Global:        global,
				Project:       project,
				ProjectLoaded: cfg.TrustedProjectConfigPath != "",
			})
		},
	}
}

func effectiveSettings(cfg *config.Config) (map[string]string, error) {
	values := make(map[string]string, len(config.AllowedKeys()))
	for _, key := range config.AllowedKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, nil
}
