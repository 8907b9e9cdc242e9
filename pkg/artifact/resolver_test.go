// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"slices"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Name
	}{
		{"app-2.1.0.ear", Name{ArtifactID: "app", Version: "2.1.0", Type: "ear"}},
		{"bw-calendar-engine-4.0.3.war", Name{ArtifactID: "bw-calendar-engine", Version: "4.0.3", Type: "war"}},
		{"jackson-core-2.17.0.jar", Name{ArtifactID: "jackson-core", Version: "2.17.0", Type: "jar"}},
		{"jackson-core-2.17.0-sources.jar", Name{ArtifactID: "jackson-core", Version: "2.17.0", Classifier: "sources", Type: "jar"}},
		{"foo-1.0-tests.jar", Name{ArtifactID: "foo", Version: "1.0", Classifier: "tests", Type: "jar"}},
		{"bw-util-1.0-SNAPSHOT.jar", Name{ArtifactID: "bw-util", Version: "1.0", Classifier: "SNAPSHOT", Type: "jar"}},
		{"guava-31.1-jre.jar", Name{ArtifactID: "guava", Version: "31.1", Classifier: "jre", Type: "jar"}},
		{"jquery-3.7.1-min.js", Name{ArtifactID: "jquery", Version: "3.7.1", Classifier: "min", Type: "js"}},
		{"ical4j-2.0-1.jar", Name{ArtifactID: "ical4j", Version: "2.0", Classifier: "1", Type: "jar"}},
		{"hibernate-core-5.4.0-GA.jar", Name{ArtifactID: "hibernate-core", Version: "5.4.0", Classifier: "GA", Type: "jar"}},
	}

	r := DefaultResolver()
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			got, err := r.Resolve(tt.raw)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.raw, err)
			}
			tt.want.Raw = tt.raw
			if got != tt.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	t.Parallel()

	ids := []string{"app", "bw-calendar", "jackson-databind", "a", "x-y-z"}
	versions := []string{"1", "2.1.0", "4.0.0.Final", "31.1"}
	classifiers := []string{"", "sources", "javadoc", "tests", "jakarta"}
	types := []string{"jar", "ear", "war"}

	r := DefaultResolver()
	for _, id := range ids {
		for _, v := range versions {
			for _, c := range classifiers {
				for _, typ := range types {
					want, err := FromCoordinates(id, v, c, typ)
					if err != nil {
						t.Fatalf("FromCoordinates: %v", err)
					}
					got, err := r.Resolve(want.Raw)
					if err != nil {
						t.Fatalf("Resolve(%q): %v", want.Raw, err)
					}
					if got != want {
						t.Errorf("Resolve(%q) = %+v, want %+v", want.Raw, got, want)
					}
				}
			}
		}
	}
}

func TestResolve_Unparseable(t *testing.T) {
	t.Parallel()

	r := DefaultResolver()
	for _, raw := range []string{
		"module.xml",
		"README",
		"-1.0.jar",
		"foo-1",
		"foo-1.",
		"foo-.jar",
		"app-1.0.ear-old",
	} {
		_, err := r.Resolve(raw)
		if !errors.Is(err, ErrUnparseable) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnparseable", raw, err)
		}
	}
}

// Without a marker the version boundary is the last dash, so an id followed
// by a dashed qualifier is split in the wrong place.
func TestResolve_KnownMisparse(t *testing.T) {
	t.Parallel()

	got, err := DefaultResolver().Resolve("foo-1.0-beta-2.jar")
	if err != nil {
		t.Fatal(err)
	}
	if got.ArtifactID != "foo-1.0-beta" || got.Version != "2" {
		t.Errorf("Resolve = %+v; expected the last-dash split", got)
	}

	// Knowing the id resolves the ambiguity.
	got, err = DefaultResolver().ResolveFor("foo-1.0-beta-2.jar", "foo")
	if err != nil {
		t.Fatal(err)
	}
	if got.ArtifactID != "foo" || got.Version != "1.0-beta" || got.Classifier != "2" {
		t.Errorf("ResolveFor = %+v", got)
	}
}

func TestResolve_MarkerOrder(t *testing.T) {
	t.Parallel()

	// An id containing a marker is cut at the marker, leaving no dash
	// before it.
	if _, err := DefaultResolver().Resolve("my-sources.app-1.0.jar"); !errors.Is(err, ErrUnparseable) {
		t.Errorf("Resolve of marker-bearing id error = %v, want ErrUnparseable", err)
	}

	// A marker at position zero is ignored.
	got, err := NewResolver("-x.").Resolve("-x.a-1.0.jar")
	if err != nil {
		t.Fatal(err)
	}
	if got.ArtifactID != "-x.a" || got.Version != "1.0" {
		t.Errorf("Resolve = %+v", got)
	}
}

func TestResolve_EmptyMarkersSplitsOnLastDash(t *testing.T) {
	t.Parallel()

	var r Resolver
	got, err := r.Resolve("jackson-core-2.17.0-sources.jar")
	if err != nil {
		t.Fatal(err)
	}
	want := Name{Raw: "jackson-core-2.17.0-sources.jar", ArtifactID: "jackson-core-2.17.0", Version: "sources", Type: "jar"}
	if got != want {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolver_AddMarker(t *testing.T) {
	t.Parallel()

	r := NewResolver("-sources.", "-sources.", "")
	if got := r.Markers(); !slices.Equal(got, []string{"-sources."}) {
		t.Fatalf("Markers() = %v", got)
	}

	before, err := r.Resolve("lib-1.0-linux.jar")
	if err != nil {
		t.Fatal(err)
	}
	if before.ArtifactID != "lib-1.0" {
		t.Fatalf("unexpected split before AddMarker: %+v", before)
	}

	r.AddMarker("-linux.")
	r.AddMarker("-linux.")
	if len(r.Markers()) != 2 {
		t.Errorf("Markers() = %v, want 2 entries", r.Markers())
	}

	after, err := r.Resolve("lib-1.0-linux.jar")
	if err != nil {
		t.Fatal(err)
	}
	if after.ArtifactID != "lib" || after.Version != "1.0" || after.Classifier != "linux" {
		t.Errorf("Resolve after AddMarker = %+v", after)
	}
}

func TestResolveFor(t *testing.T) {
	t.Parallel()

	r := DefaultResolver()

	tests := []struct {
		raw, id string
		want    Name
		wantErr bool
	}{
		{raw: "foo-1.0.jar", id: "foo", want: Name{Raw: "foo-1.0.jar", ArtifactID: "foo", Version: "1.0", Type: "jar"}},
		{raw: "foo-bar-1.0.jar", id: "foo-bar", want: Name{Raw: "foo-bar-1.0.jar", ArtifactID: "foo-bar", Version: "1.0", Type: "jar"}},
		{raw: "foo-bar-1.0.jar", id: "foo", want: Name{Raw: "foo-bar-1.0.jar", ArtifactID: "foo", Version: "bar", Classifier: "1.0", Type: "jar"}},
		{raw: "foobar-1.0.jar", id: "foo", wantErr: true},
		{raw: "foo.jar", id: "foo", wantErr: true},
		{raw: "foo-1", id: "foo", wantErr: true},
		{raw: "foo-1.0.jar", id: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := r.ResolveFor(tt.raw, tt.id)
		if tt.wantErr {
			if !errors.Is(err, ErrUnparseable) {
				t.Errorf("ResolveFor(%q, %q) error = %v, want ErrUnparseable", tt.raw, tt.id, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveFor(%q, %q) error: %v", tt.raw, tt.id, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveFor(%q, %q) = %+v, want %+v", tt.raw, tt.id, got, tt.want)
		}
	}
}

func TestFromCoordinates(t *testing.T) {
	t.Parallel()

	n, err := FromCoordinates("jackson-core", "2.17.0", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if n.Raw != "jackson-core-2.17.0.jar" || n.Type != DefaultType {
		t.Errorf("FromCoordinates = %+v", n)
	}

	for _, bad := range [][4]string{
		{"", "1.0", "", "jar"},
		{"a", "", "", "jar"},
		{"a/b", "1.0", "", "jar"},
		{"a", "1.0", "", "tar.gz"},
	} {
		if _, err := FromCoordinates(bad[0], bad[1], bad[2], bad[3]); !errors.Is(err, ErrUnparseable) {
			t.Errorf("FromCoordinates(%v) error = %v", bad, err)
		}
	}
}

func TestName_Relations(t *testing.T) {
	t.Parallel()

	r := DefaultResolver()
	a, _ := r.Resolve("foo-1.0.jar")
	b, _ := r.Resolve("foo-1.0-sources.jar")
	c, _ := r.Resolve("foo-2.0.jar")
	d, _ := r.Resolve("foo-1.0.war")

	if !a.SameAs(c) || a.SameAs(d) {
		t.Error("SameAs mismatch")
	}
	if !a.SameRelease(b) || a.SameRelease(c) {
		t.Error("SameRelease mismatch")
	}
	if a.Compare(b) >= 0 || a.Compare(c) >= 0 || a.Compare(a) != 0 {
		t.Error("Compare ordering mismatch")
	}
	tests, _ := r.Resolve("foo-1.0-tests.jar")
	if !tests.IsTests() || b.IsTests() {
		t.Error("IsTests mismatch")
	}
	if got := Raws([]Name{a, c}); !slices.Equal(got, []string{"foo-1.0.jar", "foo-2.0.jar"}) {
		t.Errorf("Raws = %v", got)
	}
}
