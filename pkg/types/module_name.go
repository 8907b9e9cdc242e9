// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidModuleName is the sentinel error wrapped by InvalidModuleNameError.
var ErrInvalidModuleName = errors.New("invalid module name")

// moduleNamePattern accepts dot-separated segments of letters, digits,
// underscores and dashes.
var moduleNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

type (
	// ModuleName is a dotted module identifier such as
	// "com.fasterxml.jackson.core". Each segment becomes one directory level.
	ModuleName string

	// InvalidModuleNameError is returned when a ModuleName is malformed.
	InvalidModuleNameError struct {
		Value ModuleName
	}
)

// String returns the string representation of the ModuleName.
func (m ModuleName) String() string { return string(m) }

// Validate returns an error unless m is a non-empty dotted identifier.
func (m ModuleName) Validate() error {
	if !moduleNamePattern.MatchString(string(m)) {
		return &InvalidModuleNameError{Value: m}
	}
	return nil
}

// Segments returns the dot-separated parts of m.
func (m ModuleName) Segments() []string {
	return strings.Split(string(m), ".")
}

// Error implements the error interface for InvalidModuleNameError.
func (e *InvalidModuleNameError) Error() string {
	return fmt.Sprintf("invalid module name %q: must be dot-separated segments of letters, digits, '_' or '-'", e.Value)
}

// Unwrap returns ErrInvalidModuleName for errors.Is() compatibility.
func (e *InvalidModuleNameError) Unwrap() error { return ErrInvalidModuleName }
