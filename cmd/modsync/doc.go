// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for modsync.
//
// The root command wires global flags and logging; subcommands deploy
// archives and modules, preview decisions, inspect artifact file names and
// the module graph, and manage configuration. All handlers receive an App,
// the composition root holding the configuration provider and the
// deployment service.
package cmd
