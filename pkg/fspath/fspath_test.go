// SPDX-License-Identifier: MPL-2.0

package fspath_test

import (
	"path/filepath"
	"testing"

	"github.com/modsync/modsync/pkg/fspath"
	"github.com/modsync/modsync/pkg/types"
)

func TestJoin(t *testing.T) {
	t.Parallel()

	got := fspath.Join(types.FilesystemPath("opt"), types.FilesystemPath("wildfly"))
	want := types.FilesystemPath(filepath.Join("opt", "wildfly"))
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
}

func TestJoinStr_MultipleSegments(t *testing.T) {
	t.Parallel()

	got := fspath.JoinStr(types.FilesystemPath("standalone"), "deployments", "app-1.0.ear")
	want := types.FilesystemPath(filepath.Join("standalone", "deployments", "app-1.0.ear"))
	if got != want {
		t.Errorf("JoinStr() = %q, want %q", got, want)
	}
}

func TestDirAndClean(t *testing.T) {
	t.Parallel()

	if got := fspath.Dir(types.FilesystemPath("a/b/module.xml")); got != types.FilesystemPath(filepath.Dir("a/b/module.xml")) {
		t.Errorf("Dir() = %q", got)
	}
	if got := fspath.Clean(types.FilesystemPath("a/./b/../c")); got != types.FilesystemPath(filepath.Clean("a/./b/../c")) {
		t.Errorf("Clean() = %q", got)
	}
}

func TestAbs(t *testing.T) {
	t.Parallel()

	got, err := fspath.Abs(types.FilesystemPath("."))
	if err != nil {
		t.Fatalf("Abs() error = %v", err)
	}
	if !fspath.IsAbs(got) {
		t.Errorf("Abs() = %q is not absolute", got)
	}
}

func TestModuleDir(t *testing.T) {
	t.Parallel()

	got := fspath.ModuleDir(types.FilesystemPath("modules"), types.ModuleName("com.fasterxml.jackson.core"))
	want := types.FilesystemPath(filepath.Join("modules", "com", "fasterxml", "jackson", "core", "main"))
	if got != want {
		t.Errorf("ModuleDir() = %q, want %q", got, want)
	}
}

func TestRepositoryDir(t *testing.T) {
	t.Parallel()

	got := fspath.RepositoryDir(types.FilesystemPath("repo"), "org.bedework", "bw-util-conf", "5.0.1")
	want := types.FilesystemPath(filepath.Join("repo", "org", "bedework", "bw-util-conf", "5.0.1"))
	if got != want {
		t.Errorf("RepositoryDir() = %q, want %q", got, want)
	}
}
