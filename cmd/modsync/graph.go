// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/modsync/modsync/internal/modgraph"
	"github.com/modsync/modsync/internal/report"
	"github.com/modsync/modsync/pkg/moduledesc"
)

type (
	// graphModule is the printable form of one built module.
	graphModule struct {
		Name         string                  `json:"name" yaml:"name"`
		Requires     []string                `json:"requires,omitempty" yaml:"requires,omitempty"`
		Resources    []moduledesc.Resource   `json:"resources,omitempty" yaml:"resources,omitempty"`
		Dependencies []moduledesc.Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
		MainClass    string                  `json:"main_class,omitempty" yaml:"main_class,omitempty"`
	}

	graphOutput struct {
		Modules []graphModule `json:"modules" yaml:"modules"`
	}
)

func newGraphCommand(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "graph [modules...]",
		Short: "Print the module dependency graph",
		Long: `Print the module dependency graph.

The configured modules, or the named ones, are resolved exactly as
'modsync deploy modules' would resolve them, without writing anything.
Modules are listed with their dependencies first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), app, args, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml)")
	return cmd
}

func runGraph(ctx context.Context, app *App, names []string, output string) error {
	format, err := report.ParseFormat(output)
	if err != nil {
		return app.fail("parse flags", err)
	}
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return app.fail("load configuration", err)
	}
	res, err := app.Deploy.Graph(ctx, cfg, names)
	if err != nil {
		return app.fail("resolve module graph", err)
	}
	if err := writeGraph(app.stdout, graphFromResult(res), format); err != nil {
		return app.fail("print graph", err)
	}
	return nil
}

func graphFromResult(res *modgraph.Result) graphOutput {
	out := graphOutput{Modules: make([]graphModule, 0, len(res.Order))}
	for _, name := range res.Order {
		m := graphModule{Name: name, Requires: res.Graph.Dependencies(name)}
		if d := res.Descriptors[name]; d != nil {
			m.Resources = d.Resources
			m.Dependencies = d.Dependencies
			m.MainClass = d.MainClass
		}
		out.Modules = append(out.Modules, m)
	}
	return out
}

func writeGraph(w io.Writer, g graphOutput, format report.Format) error {
	switch format {
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	case report.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return err
		}
		return enc.Close()
	case report.FormatText:
	default:
		return fmt.Errorf("%w: %q", report.ErrUnknownFormat, format)
	}

	if len(g.Modules) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("(no modules configured)"))
		return nil
	}
	for _, m := range g.Modules {
		fmt.Fprintln(w, KeyStyle.Render(m.Name))
		for _, r := range m.Resources {
			if r.Artifact != "" {
				fmt.Fprintf(w, "  artifact %s\n", r.Artifact)
			} else {
				fmt.Fprintf(w, "  resource %s\n", r.Path)
			}
		}
		for _, d := range m.Dependencies {
			line := "  module   " + d.Name
			if d.Export {
				line += " (export)"
			}
			fmt.Fprintln(w, line)
		}
		if m.MainClass != "" {
			fmt.Fprintf(w, "  main     %s\n", m.MainClass)
		}
	}
	return nil
}
