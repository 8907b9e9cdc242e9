// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the modsync command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "modsync",
		Short: "Deploy versioned archives and modules into an application server",
		Long: TitleStyle.Render("modsync") + SubtitleStyle.Render(" - version-aware deployment of ears, wars and modules") + `

modsync copies versioned build artifacts from a source directory into an
application server's deployment and modules directories. An artifact is only
deployed when it is newer than what is already there; superseded versions
and their deployment markers are removed.

` + SubtitleStyle.Render("Examples:") + `
  modsync deploy ears               Deploy every configured ear
  modsync deploy wars web admin     Deploy the 'web' and 'admin' wars
  modsync deploy modules            Build the configured module directories
  modsync check ears                Show what 'deploy ears' would do
  modsync split app-2.1.0.ear       Show how a file name is parsed
  modsync graph                     Print the module dependency graph`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.setupLogging()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.flags.configPath, "config", "", "config file (default is ./modsync.cue, then the user config directory)")
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVar(&app.flags.noVersion, "noversion", false, "replace deployed artifacts without comparing versions")
	flags.BoolVar(&app.flags.delete, "delete", false, "delete a same-named target before copying")
	flags.StringVar(&app.flags.report, "report", "", "write a run report to this file (.toml, .yaml or .json)")

	root.AddCommand(newDeployCommand(app))
	root.AddCommand(newCheckCommand(app))
	root.AddCommand(newWatchCommand(app))
	root.AddCommand(newSplitCommand(app))
	root.AddCommand(newGraphCommand(app))
	root.AddCommand(newConfigCommand(app))
	root.AddCommand(newVersionCommand(app))

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the modsync version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(app.stdout, "modsync %s\n", getVersionString())
		},
	}
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
