// SPDX-License-Identifier: MPL-2.0

package fsutil

import (
	"archive/zip"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/modsync/modsync/internal/testutil"
)

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	testutil.MustClose(t, f)
}

func TestCopy_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src", "app-1.0.ear")
	testutil.MustWriteFile(t, src, "payload")

	dst, err := CopyInto(src, filepath.Join(dir, "deploy"))
	if err != nil {
		t.Fatal(err)
	}
	if got := testutil.MustReadFile(t, dst); got != "payload" {
		t.Errorf("copied content = %q", got)
	}

	if err := Copy(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Errorf("copy over existing file error = %v, want ErrExist", err)
	}
	if err := Copy(filepath.Join(dir, "missing"), filepath.Join(dir, "x")); err == nil {
		t.Error("expected error copying a missing source")
	}
}

func TestCopy_Tree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "app-1.0.war")
	testutil.MustWriteFile(t, filepath.Join(src, "WEB-INF", "web.xml"), "<web-app/>")
	testutil.MustWriteFile(t, filepath.Join(src, "index.html"), "hi")

	dst := filepath.Join(dir, "out", "app-1.0.war")
	if err := Copy(src, dst); err != nil {
		t.Fatal(err)
	}
	same, err := SameContent(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if !same {
		t.Error("copied tree differs from source")
	}
}

func TestRemoveAndCleanDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "staging")
	testutil.WriteArtifacts(t, target, "a-1.0.jar", "b-1.0.jar")

	if err := CleanDir(target); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ListDir(t, target); len(got) != 0 {
		t.Errorf("CleanDir left %v", got)
	}
	if err := Remove(filepath.Join(dir, "never-existed")); err != nil {
		t.Errorf("Remove of missing path: %v", err)
	}
	if err := Remove(target); err != nil {
		t.Fatal(err)
	}
	if ok, _ := Exists(target); ok {
		t.Error("Remove left the directory behind")
	}
}

func TestTouch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app-1.0.ear.dodeploy")
	if err := Touch(path); err != nil {
		t.Fatal(err)
	}
	if got := testutil.MustReadFile(t, path); got != "" {
		t.Errorf("Touch wrote %q", got)
	}
	ok, err := Exists(path)
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}
}

func TestUnzip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{
		"app-1.0.ear":           "ear",
		"lib/":                  "",
		"lib/util-2.0.jar":      "jar",
		"nested/deep/readme.md": "doc",
	})

	dest := filepath.Join(dir, "expanded")
	if err := Unzip(archive, dest); err != nil {
		t.Fatal(err)
	}
	if got := testutil.MustReadFile(t, filepath.Join(dest, "lib", "util-2.0.jar")); got != "jar" {
		t.Errorf("extracted content = %q", got)
	}
	if got := testutil.ListDir(t, dest); !slices.Equal(got, []string{"app-1.0.ear", "lib", "nested"}) {
		t.Errorf("extracted entries = %v", got)
	}
}

func TestUnzip_RejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{
		"ok.txt":         "fine",
		"../escaped.txt": "bad",
	})

	dest := filepath.Join(dir, "out")
	err := Unzip(archive, dest)
	if !errors.Is(err, ErrUnsafeArchivePath) && !errors.Is(err, zip.ErrInsecurePath) {
		t.Fatalf("error = %v, want ErrUnsafeArchivePath", err)
	}
	if testutil.Exists(t, filepath.Join(dir, "escaped.txt")) {
		t.Error("escaping entry was written")
	}
	if testutil.Exists(t, filepath.Join(dest, "ok.txt")) {
		t.Error("entries were written before validation finished")
	}
}

func TestSameContent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	c := filepath.Join(dir, "c")
	d := filepath.Join(dir, "d")
	testutil.MustWriteFile(t, a, "same")
	testutil.MustWriteFile(t, b, "same")
	testutil.MustWriteFile(t, c, "diff")
	testutil.MustWriteFile(t, d, "longer content")

	tests := []struct {
		x, y string
		want bool
	}{
		{a, b, true},
		{a, c, false},
		{a, d, false},
		{a, dir, false},
	}
	for _, tt := range tests {
		got, err := SameContent(tt.x, tt.y)
		if err != nil {
			t.Fatalf("SameContent(%s, %s): %v", tt.x, tt.y, err)
		}
		if got != tt.want {
			t.Errorf("SameContent(%s, %s) = %v, want %v", filepath.Base(tt.x), filepath.Base(tt.y), got, tt.want)
		}
	}

	t1 := filepath.Join(dir, "t1")
	t2 := filepath.Join(dir, "t2")
	testutil.MustWriteFile(t, filepath.Join(t1, "x", "f"), "1")
	testutil.MustWriteFile(t, filepath.Join(t2, "x", "f"), "1")
	if same, err := SameContent(t1, t2); err != nil || !same {
		t.Errorf("identical trees: %v, %v", same, err)
	}
	testutil.MustWriteFile(t, filepath.Join(t2, "x", "g"), "2")
	if same, err := SameContent(t1, t2); err != nil || same {
		t.Errorf("different trees: %v, %v", same, err)
	}

	if _, err := SameContent(filepath.Join(dir, "missing"), a); err == nil {
		t.Error("expected error for missing path")
	}
}
