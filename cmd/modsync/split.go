// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/modsync/modsync/internal/report"
	"github.com/modsync/modsync/pkg/artifact"
)

// splitResult is one file name and how it parsed.
type splitResult struct {
	File  string         `json:"file" yaml:"file"`
	Name  *artifact.Name `json:"name,omitempty" yaml:"name,omitempty"`
	Error string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func newSplitCommand(app *App) *cobra.Command {
	var (
		output  string
		markers []string
	)

	cmd := &cobra.Command{
		Use:   "split <file>...",
		Short: "Show how artifact file names are parsed",
		Long: `Show how artifact file names are parsed.

Each argument is split into artifact id, classifier, version and type the
way deployments see it. Directory components are ignored. Classifier
markers come from the configuration plus any --marker flags.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd.Context(), app, args, markers, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml)")
	cmd.Flags().StringSliceVar(&markers, "marker", nil, "additional classifier marker (repeatable)")
	return cmd
}

func runSplit(ctx context.Context, app *App, files, markers []string, output string) error {
	format, err := report.ParseFormat(output)
	if err != nil {
		return app.fail("parse flags", err)
	}

	resolver := artifact.DefaultResolver()
	if cfg, err := app.loadConfig(ctx); err != nil {
		slog.Warn("using default classifier markers", "error", err)
	} else {
		markers = append(cfg.Markers, markers...)
	}
	for _, m := range markers {
		resolver.AddMarker(m)
	}

	results := make([]splitResult, 0, len(files))
	failed := 0
	for _, f := range files {
		r := splitResult{File: filepath.Base(f)}
		n, err := resolver.Resolve(r.File)
		if err != nil {
			r.Error = err.Error()
			failed++
		} else {
			r.Name = &n
		}
		results = append(results, r)
	}

	if err := writeSplit(app.stdout, results, format); err != nil {
		return app.fail("print results", err)
	}
	if failed > 0 {
		return app.fail("split file names", fmt.Errorf("%d of %d names could not be parsed: %w", failed, len(files), artifact.ErrUnparseable))
	}
	return nil
}

func writeSplit(w io.Writer, results []splitResult, format report.Format) error {
	switch format {
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case report.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	case report.FormatText:
	default:
		return fmt.Errorf("%w: %q", report.ErrUnknownFormat, format)
	}

	for _, r := range results {
		if r.Name == nil {
			fmt.Fprintf(w, "%s\n  %s\n", KeyStyle.Render(r.File), ErrorStyle.Render(r.Error))
			continue
		}
		fmt.Fprintln(w, KeyStyle.Render(r.File))
		fmt.Fprintf(w, "  artifactId: %s\n", r.Name.ArtifactID)
		if r.Name.Classifier != "" {
			fmt.Fprintf(w, "  classifier: %s\n", r.Name.Classifier)
		}
		fmt.Fprintf(w, "  version:    %s\n", r.Name.Version)
		fmt.Fprintf(w, "  type:       %s\n", r.Name.Type)
	}
	return nil
}
