// SPDX-License-Identifier: MPL-2.0

package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modsync/modsync/pkg/artifact"
)

var (
	// ErrNotFound is wrapped by NotFoundError.
	ErrNotFound = errors.New("artifact not found")
	// ErrAmbiguousMatch is wrapped by AmbiguousMatchError.
	ErrAmbiguousMatch = errors.New("ambiguous artifact match")
	// ErrFilesystem is wrapped by FilesystemError.
	ErrFilesystem = errors.New("filesystem operation failed")
)

type (
	// NotFoundError reports that no source entry satisfied a query.
	NotFoundError struct {
		Query artifact.Query
		Dir   string
		// Missing is true when Dir itself does not exist.
		Missing bool
	}

	// AmbiguousMatchError reports several source entries that do not form a
	// single release.
	AmbiguousMatchError struct {
		Query      artifact.Query
		Dir        string
		Candidates []string
	}

	// FilesystemError reports a failed copy, delete or directory operation.
	FilesystemError struct {
		Op   string
		Path string
		Err  error
	}
)

func (e *NotFoundError) Error() string {
	if e.Missing {
		return fmt.Sprintf("no artifact matching %s: directory %s does not exist", e.Query, e.Dir)
	}
	return fmt.Sprintf("no artifact matching %s in %s", e.Query, e.Dir)
}

// Unwrap returns ErrNotFound for errors.Is compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d artifacts match %s in %s: %s; exactly one deployable artifact is required",
		len(e.Candidates), e.Query, e.Dir, strings.Join(e.Candidates, ", "))
}

// Unwrap returns ErrAmbiguousMatch for errors.Is compatibility.
func (e *AmbiguousMatchError) Unwrap() error { return ErrAmbiguousMatch }

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrFilesystem and the underlying cause.
func (e *FilesystemError) Unwrap() []error { return []error{ErrFilesystem, e.Err} }

func fsError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FilesystemError{Op: op, Path: path, Err: err}
}
