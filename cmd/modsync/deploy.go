// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/modsync/modsync/internal/config"
	"github.com/modsync/modsync/internal/deploy"
	"github.com/modsync/modsync/internal/report"
)

var kindArgs = []string{"ears", "wars", "modules"}

func newDeployCommand(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "deploy <ears|wars|modules> [names...]",
		Short: "Deploy archives or build module directories",
		Long: `Deploy archives or build module directories.

For ears and wars, names are artifact ids. Each matching archive in the
source directory is staged, compared with the deployed version and copied
into the deploy directory when it is newer. For modules, names are module
names from the configuration; their jars and module.xml descriptors are
written below the modules directory.

Without names, the names configured for the kind are used, or every
archive of that kind found in the source directory.`,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: kindArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), app, args, false, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml, toml)")
	return cmd
}

func newCheckCommand(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "check <ears|wars|modules> [names...]",
		Short: "Show what a deployment would do without changing anything",
		Long: `Show what a deployment would do without changing anything.

The same decisions as 'modsync deploy' are computed against the source and
deploy directories, but nothing is staged, copied or removed.`,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: kindArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), app, args, true, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml, toml)")
	return cmd
}

func runDeploy(ctx context.Context, app *App, args []string, checkOnly bool, output string) error {
	format, err := report.ParseFormat(output)
	if err != nil {
		return app.fail("parse flags", err)
	}
	kind, err := deploy.ParseKind(args[0])
	if err != nil {
		return app.fail("parse arguments", err)
	}
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail("load configuration", err)
	}
	if checkOnly {
		cfg.Reconcile.CheckOnly = true
	}

	req := deploy.Request{Kind: kind, Names: args[1:]}
	if err := reportRun(ctx, app, cfg, req, format); err != nil {
		return app.fail("deploy "+kind.String()+"s", err)
	}
	return nil
}

// reportRun runs one deployment and prints its report, also when the run
// failed part way. The report file is best effort.
func reportRun(ctx context.Context, app *App, cfg *config.Config, req deploy.Request, format report.Format) error {
	summary, runErr := app.Deploy.Run(ctx, cfg, req)
	if summary != nil {
		rep := report.New(summary, app.now())
		if err := rep.Encode(app.stdout, format); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
		if cfg.Report != "" {
			if err := rep.WriteFile(cfg.Report); err != nil {
				slog.Warn("failed to write report", "path", cfg.Report, "error", err)
			} else {
				slog.Debug("wrote report", "path", cfg.Report)
			}
		}
	}
	return runErr
}
