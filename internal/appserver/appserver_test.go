// SPDX-License-Identifier: MPL-2.0

package appserver

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/modsync/modsync/internal/testutil"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", NameWildFly, false},
		{"wildfly", NameWildFly, false},
		{" WildFly ", NameWildFly, false},
		{"none", NameNone, false},
		{"tomcat", "", true},
	}
	for _, tt := range tests {
		rt, err := Lookup(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownRuntime) {
				t.Errorf("Lookup(%q) error = %v, want ErrUnknownRuntime", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tt.in, err)
		}
		if rt.Name() != tt.want {
			t.Errorf("Lookup(%q).Name() = %q, want %q", tt.in, rt.Name(), tt.want)
		}
	}
}

func TestWildFly_SignalAndCleanup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteArtifacts(t, dir, "app-2.0.5.ear", "app-2.0.5.ear.deployed", "app-2.0.5.ear.failed", "other-1.0.ear.deployed")

	removed, err := Cleanup(dir, "app-2.0.5.ear", WildFly{})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(removed, []string{"app-2.0.5.ear.deployed", "app-2.0.5.ear.failed"}) {
		t.Errorf("removed = %v", removed)
	}
	if got := testutil.ListDir(t, dir); !slices.Equal(got, []string{"app-2.0.5.ear", "other-1.0.ear.deployed"}) {
		t.Errorf("remaining = %v", got)
	}

	if err := (WildFly{}).Signal(dir, "app-2.1.0.ear"); err != nil {
		t.Fatal(err)
	}
	if !testutil.Exists(t, filepath.Join(dir, "app-2.1.0.ear.dodeploy")) {
		t.Error("dodeploy marker not created")
	}
}

func TestNone(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := (None{}).Signal(dir, "app-1.0.ear"); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ListDir(t, dir); len(got) != 0 {
		t.Errorf("None.Signal wrote %v", got)
	}
	removed, err := Cleanup(dir, "app-1.0.ear", None{})
	if err != nil || removed != nil {
		t.Errorf("Cleanup = %v, %v", removed, err)
	}
}

func TestIsSidecar(t *testing.T) {
	t.Parallel()

	if !IsSidecar(WildFly{}, "app-1.0.ear.dodeploy") || !IsSidecar(WildFly{}, "app-1.0.ear.failed") {
		t.Error("sentinels not recognized")
	}
	if IsSidecar(WildFly{}, "app-1.0.ear") || IsSidecar(None{}, "app-1.0.ear.deployed") {
		t.Error("non-sentinel recognized")
	}
}
