// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/modsync/modsync/internal/deploy"
	"github.com/modsync/modsync/internal/report"
	"github.com/modsync/modsync/internal/watch"
)

// errRemoteWatch is returned when watch is asked to follow a remote source.
var errRemoteWatch = errors.New("watch needs a local source directory")

func newWatchCommand(app *App) *cobra.Command {
	var (
		output   string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <ears|wars|modules> [names...]",
		Short: "Deploy, then deploy again whenever the source directory changes",
		Long: `Deploy, then deploy again whenever the source directory changes.

The deployment runs once at startup exactly like 'modsync deploy'. After
that the source directory is watched for archives of the requested kind
(jars for modules) and every change triggers another run once the
directory has been quiet for the debounce period. A failed run is logged
and watching continues. Stop with Ctrl+C.

A remote source (source.url) cannot be watched.`,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: kindArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), app, args, output, debounce)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml, toml)")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before deploying after a change")
	return cmd
}

func runWatch(ctx context.Context, app *App, args []string, output string, debounce time.Duration) error {
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
	if cfg.Source.URL != "" {
		return app.fail("watch "+kind.String()+"s", fmt.Errorf("%w: source.url is %s", errRemoteWatch, cfg.Source.URL))
	}

	req := deploy.Request{Kind: kind, Names: args[1:]}
	w, err := watch.New(watch.Config{
		Dir:      cfg.Source.Dir,
		Patterns: watchPatterns(kind),
		Debounce: debounce,
		OnChange: func(ctx context.Context, changed []string) error {
			slog.Info("source changed, deploying", "kind", kind, "changed", changed)
			return reportRun(ctx, app, cfg, req, format)
		},
	})
	if err != nil {
		return app.fail("watch source directory", err)
	}

	if err := reportRun(ctx, app, cfg, req, format); err != nil {
		slog.Error("deployment failed", "kind", kind, "error", err)
	}
	slog.Info("watching for changes", "dir", w.Dir(), "kind", kind)
	if err := w.Run(ctx); err != nil {
		return app.fail("watch source directory", err)
	}
	return nil
}

// watchPatterns selects the source entries a kind deploys from, including
// the contents of exploded archives.
func watchPatterns(kind deploy.Kind) []string {
	ext := kind.String()
	if kind == deploy.KindModule {
		ext = "jar"
	}
	return []string{"**/*." + ext, "**/*." + ext + "/**"}
}
