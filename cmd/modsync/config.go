// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modsync/modsync/internal/config"
)

// newConfigCommand creates the `modsync config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modsync configuration",
		Long: `Manage modsync configuration.

Configuration is read from the first of:
  - the file named by --config
  - ./modsync.cue
  - modsync/config.cue in the user config directory
    (Linux: ~/.config, macOS: ~/Library/Application Support, Windows: %AppData%)

Environment variables prefixed with MODSYNC_ override file values, e.g.
MODSYNC_DEPLOY_DIR.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show which configuration file is used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	var local bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app, local)
		},
	}
	initCmd.Flags().BoolVar(&local, "local", false, "write ./modsync.cue instead of the user configuration")
	cfgCmd.AddCommand(initCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail("load configuration", err)
	}

	file := cfg.File
	if file == "" {
		file = SubtitleStyle.Render("(using defaults)")
	}
	fmt.Fprintf(app.stdout, "// %s: %s\n", KeyStyle.Render("config file"), file)
	fmt.Fprintf(app.stdout, "// %s: %s\n\n", KeyStyle.Render("basedir"), cfg.BaseDir)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func showConfigPath(app *App) error {
	path, err := config.Resolve(config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if err != nil {
		return app.fail("resolve configuration", err)
	}
	if path == "" {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no configuration file, using defaults)"))
	} else {
		fmt.Fprintln(app.stdout, path)
	}

	if dir, err := config.ConfigDir(); err == nil {
		fmt.Fprintf(app.stdout, "%s: %s\n", KeyStyle.Render("user config"), filepath.Join(dir, config.UserFileName))
	}
	return nil
}

func initConfig(app *App, local bool) error {
	path := config.LocalFileName
	if !local {
		dir, err := config.ConfigDir()
		if err != nil {
			return app.fail("locate configuration directory", err)
		}
		path = filepath.Join(dir, config.UserFileName)
	}

	written, err := config.WriteDefault(path)
	if err != nil {
		return app.fail("write configuration", err)
	}
	if !written {
		fmt.Fprintf(app.stdout, "%s %s already exists\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
