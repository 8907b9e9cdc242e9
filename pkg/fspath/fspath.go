// SPDX-License-Identifier: MPL-2.0

// Package fspath provides typed wrappers around path/filepath functions that
// accept and return types.FilesystemPath, plus the directory layouts modsync
// writes into: module directories and Maven-style repositories.
package fspath

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modsync/modsync/pkg/types"
)

// ModuleSlot is the slot directory every module lives in.
const ModuleSlot = "main"

// Join wraps filepath.Join, accepting and returning types.FilesystemPath.
func Join(elem ...types.FilesystemPath) types.FilesystemPath {
	strs := make([]string, len(elem))
	for i, e := range elem {
		strs[i] = string(e)
	}
	return types.FilesystemPath(filepath.Join(strs...))
}

// JoinStr wraps filepath.Join, accepting a typed base path and raw string
// segments such as file names read from a directory listing.
func JoinStr(base types.FilesystemPath, elem ...string) types.FilesystemPath {
	parts := make([]string, 1, 1+len(elem))
	parts[0] = string(base)
	parts = append(parts, elem...)
	return types.FilesystemPath(filepath.Join(parts...))
}

// Dir wraps filepath.Dir for FilesystemPath.
func Dir(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Dir(string(p)))
}

// Abs wraps filepath.Abs for FilesystemPath. Returns an error if the
// underlying OS call fails.
func Abs(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return types.FilesystemPath(abs), nil
}

// Clean wraps filepath.Clean for FilesystemPath.
func Clean(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Clean(string(p)))
}

// IsAbs wraps filepath.IsAbs for FilesystemPath.
func IsAbs(p types.FilesystemPath) bool {
	return filepath.IsAbs(string(p))
}

// ModuleDir returns the directory holding module name below root:
// one directory per dotted segment followed by the "main" slot.
func ModuleDir(root types.FilesystemPath, name types.ModuleName) types.FilesystemPath {
	return JoinStr(JoinStr(root, name.Segments()...), ModuleSlot)
}

// RepositoryDir returns the Maven repository directory of an artifact:
// the group id with dots turned into directories, then the artifact id and
// the version.
func RepositoryDir(root types.FilesystemPath, groupID, artifactID, version string) types.FilesystemPath {
	parts := strings.Split(groupID, ".")
	parts = append(parts, artifactID, version)
	return JoinStr(root, parts...)
}
