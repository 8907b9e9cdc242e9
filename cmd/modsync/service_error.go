// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/modsync/modsync/internal/appserver"
	"github.com/modsync/modsync/internal/dag"
	"github.com/modsync/modsync/internal/deploy"
	"github.com/modsync/modsync/internal/issue"
	"github.com/modsync/modsync/internal/reconcile"
	"github.com/modsync/modsync/internal/remote"
	"github.com/modsync/modsync/pkg/types"
	"github.com/modsync/modsync/pkg/version"
)

// classification maps a failure onto its catalog entry, exit code and the
// suggestions shown with it.
type classification struct {
	issue       issue.Id
	code        types.ExitCode
	suggestions []string
}

// classifyError inspects err's chain. An ActionableError naming a catalog
// entry wins; otherwise the first matching rule does, so more specific
// failures are listed before the filesystem fallback.
func classifyError(err error) classification {
	if entry := issue.IssueOf(err); entry != nil {
		return classification{issue: entry.Id(), code: types.ExitFailure}
	}

	var notFound *reconcile.NotFoundError
	switch {
	case errors.As(err, &notFound) && notFound.Missing:
		return classification{issue.SourceNotFoundId, types.ExitUnresolved, []string{
			"Check source.dir in your configuration",
			"Build the project so the source directory is populated",
		}}
	case errors.Is(err, reconcile.ErrNotFound):
		return classification{issue.ArtifactNotFoundId, types.ExitUnresolved, []string{
			"Use 'modsync split <file>' to see how file names are parsed",
		}}
	case errors.Is(err, reconcile.ErrAmbiguousMatch):
		return classification{issue.AmbiguousMatchId, types.ExitUnresolved, []string{
			"Remove stale artifacts from the source directory",
		}}
	case errors.Is(err, dag.ErrCycle):
		return classification{issue.DependencyCycleId, types.ExitCycle, []string{
			"Use 'modsync graph' to inspect module dependencies",
		}}
	case errors.Is(err, version.ErrMalformed):
		return classification{issue.MalformedVersionId, types.ExitFailure, nil}
	case errors.Is(err, types.ErrInvalidModuleName):
		return classification{issue.InvalidModuleNameId, types.ExitUsage, nil}
	case errors.Is(err, appserver.ErrUnknownRuntime):
		return classification{issue.UnknownRuntimeId, types.ExitUsage, nil}
	case errors.Is(err, remote.ErrUnexpectedStatus):
		return classification{issue.RemoteFetchFailedId, types.ExitFailure, []string{
			"Check source.url and that the server is reachable",
		}}
	case errors.Is(err, fs.ErrPermission):
		return classification{issue.PermissionDeniedId, types.ExitFailure, nil}
	case errors.Is(err, reconcile.ErrFilesystem):
		return classification{issue.FilesystemFailureId, types.ExitFailure, nil}
	case errors.Is(err, deploy.ErrUnknownKind), errors.Is(err, deploy.ErrUnknownModule), errors.Is(err, deploy.ErrNotConfigured),
		errors.Is(err, errRemoteWatch):
		return classification{code: types.ExitUsage}
	case errors.Is(err, context.Canceled):
		return classification{code: types.ExitFailure}
	}
	return classification{code: types.ExitFailure}
}

// fail turns err into the ExitError a handler returns, wrapping it in an
// ActionableError unless it already carries one. The catalog entry for the
// failure, when there is one, is rendered to stderr first.
func (a *App) fail(operation string, err error) error {
	c := classifyError(err)

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		ae = issue.NewErrorContext().
			WithOperation(operation).
			WithIssue(c.issue).
			WithSuggestions(c.suggestions...).
			Wrap(err).
			Build()
		err = ae
	}

	if a.verbose() {
		fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+ae.Format(true))
	} else if ae.HasSuggestions() {
		fmt.Fprintln(a.stderr, ae.Format(false))
	}
	renderIssue(a.stderr, c.issue)

	return &ExitError{Code: c.code, Err: err}
}

// renderIssue renders the catalog entry id to w. Id zero renders nothing.
func renderIssue(w io.Writer, id issue.Id) {
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		slog.Warn("failed to render issue catalog entry", "issueID", id, "error", err)
		return
	}
	fmt.Fprint(w, rendered)
}
