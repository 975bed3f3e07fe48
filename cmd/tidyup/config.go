package main

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"tidyup/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a))
	return cmd
}

func (a *app) configPath() string {
	if a.opts.ConfigPath != "" {
		return a.opts.ConfigPath
	}
	return config.DefaultPath()
}

func newConfigInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		// The file does not exist yet, so skip loading it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.output()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath()
			if _, err := config.Init(path); err != nil {
				return err
			}
			a.out.Info("Wrote default configuration to %s", path)
			return nil
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(a.cfg); err != nil {
				return err
			}
			if a.out.IsJSON() {
				return a.out.JSON(map[string]string{"path": a.configPath(), "toml": buf.String()})
			}
			a.out.Info("# %s", a.configPath())
			fmt.Fprint(a.stdout, buf.String())
			return nil
		},
	}
}
