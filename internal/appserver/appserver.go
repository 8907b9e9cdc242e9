// SPDX-License-Identifier: MPL-2.0

// Package appserver knows how each supported application server learns about
// deployments: the sentinel files it reads and writes next to a deployed
// archive, and the file that asks it to deploy.
package appserver

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/modsync/modsync/internal/fsutil"
)

const (
	// NameWildFly selects the WildFly deployment scanner conventions.
	NameWildFly = "wildfly"
	// NameNone selects a plain directory with no sentinel files.
	NameNone = "none"
)

// ErrUnknownRuntime is returned by Lookup for unsupported names.
var ErrUnknownRuntime = errors.New("unknown application server runtime")

type (
	// Runtime describes one application server.
	Runtime interface {
		// Name returns the runtime identifier used in configuration.
		Name() string
		// Sidecars returns the sentinel file names the runtime may keep next
		// to the deployed entry called name.
		Sidecars(name string) []string
		// Signal asks the runtime to (re)deploy the entry called name in dir.
		Signal(dir, name string) error
	}

	// WildFly drives the standalone deployment scanner, which reacts to
	// "<name>.dodeploy" and reports through "<name>.deployed" and
	// "<name>.failed".
	WildFly struct{}

	// None is a runtime without sentinel files.
	None struct{}
)

// Sentinel suffixes used by the WildFly deployment scanner.
const (
	SuffixDoDeploy = ".dodeploy"
	SuffixDeployed = ".deployed"
	SuffixFailed   = ".failed"
)

// Lookup returns the runtime registered under name. An empty name selects
// WildFly.
func Lookup(name string) (Runtime, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameWildFly:
		return WildFly{}, nil
	case NameNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownRuntime, name, strings.Join(Names(), ", "))
	}
}

// Names lists the supported runtime names.
func Names() []string {
	return []string{NameWildFly, NameNone}
}

// Name implements Runtime.
func (WildFly) Name() string { return NameWildFly }

// Sidecars implements Runtime.
func (WildFly) Sidecars(name string) []string {
	return []string{name + SuffixDoDeploy, name + SuffixDeployed, name + SuffixFailed}
}

// Signal implements Runtime by creating an empty "<name>.dodeploy".
func (WildFly) Signal(dir, name string) error {
	return fsutil.Touch(filepath.Join(dir, name+SuffixDoDeploy))
}

// Name implements Runtime.
func (None) Name() string { return NameNone }

// Sidecars implements Runtime.
func (None) Sidecars(string) []string { return nil }

// Signal implements Runtime.
func (None) Signal(string, string) error { return nil }

// Cleanup removes every sentinel rt keeps for name in dir. Missing files are
// ignored. It returns the sentinels that were present.
func Cleanup(dir, name string, rt Runtime) ([]string, error) {
	var removed []string
	for _, s := range rt.Sidecars(name) {
		path := filepath.Join(dir, s)
		ok, err := fsutil.Exists(path)
		if err != nil {
			return removed, err
		}
		if !ok {
			continue
		}
		if err := fsutil.Remove(path); err != nil {
			return removed, err
		}
		slog.Debug("removed deployment sentinel", "runtime", rt.Name(), "file", path)
		removed = append(removed, s)
	}
	return removed, nil
}

// IsSidecar reports whether entry is a sentinel rt would keep for some
// deployed name.
func IsSidecar(rt Runtime, entry string) bool {
	ext := filepath.Ext(entry)
	if ext == "" {
		return false
	}
	return slices.Contains(rt.Sidecars(strings.TrimSuffix(entry, ext)), entry)
}
