// SPDX-License-Identifier: MPL-2.0

package modgraph

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/modsync/modsync/internal/dag"
	"github.com/modsync/modsync/internal/reconcile"
	"github.com/modsync/modsync/internal/testutil"
	"github.com/modsync/modsync/pkg/artifact"
	"github.com/modsync/modsync/pkg/moduledesc"
	"github.com/modsync/modsync/pkg/types"
)

const (
	coreModule     = "com.fasterxml.jackson.core"
	databindModule = "com.fasterxml.jackson.databind"
)

func jar(module, id string, deps ...JarSpec) JarSpec {
	return JarSpec{
		ModuleName:   types.ModuleName(module),
		GroupID:      "com.fasterxml.jackson.core",
		Query:        artifact.Query{ArtifactID: id},
		Dependencies: deps,
	}
}

func newTestBuilder(t *testing.T) (b *Builder, src, modules string) {
	t.Helper()
	root := t.TempDir()
	src = filepath.Join(root, "lib")
	modules = filepath.Join(root, "modules")
	testutil.WriteArtifacts(t, src,
		"app-1.0.jar",
		"jackson-core-2.15.0.jar",
		"jackson-core-2.15.0-tests.jar",
		"jackson-databind-2.15.0.jar",
		"config-1.0.properties",
	)
	b = NewBuilder(modules, FlatDir{Dir: src})
	b.Policy.SkipIdentical = true
	return b, src, modules
}

func diamond() ModuleSpec {
	core := jar(coreModule, "jackson-core")
	return ModuleSpec{
		Name:    "org.example.app",
		Primary: &JarSpec{Query: artifact.Query{ArtifactID: "app"}},
		Jars: []JarSpec{
			jar(databindModule, "jackson-databind", core),
			core,
		},
		ModuleDependencies: []moduledesc.Dependency{{Name: coreModule}},
	}
}

func TestBuild_DiamondDependency(t *testing.T) {
	t.Parallel()

	b, _, modules := newTestBuilder(t)
	res, err := b.Build(context.Background(), diamond())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	app := res.Descriptors["org.example.app"]
	if diff := cmp.Diff([]string{coreModule, databindModule, DefaultRuntimeAPIModule}, app.DependencyNames()); diff != "" {
		t.Errorf("app dependencies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"app-1.0.jar"}, app.ResourcePaths()); diff != "" {
		t.Errorf("app resources mismatch (-want +got):\n%s", diff)
	}

	xml := testutil.MustReadFile(t, filepath.Join(modules, "org", "example", "app", "main", moduledesc.FileName))
	if n := strings.Count(xml, `<module name="`+coreModule+`"`); n != 1 {
		t.Errorf("descriptor holds %d %s dependencies, want 1:\n%s", n, coreModule, xml)
	}

	coreDecisions := 0
	for _, d := range res.Decisions {
		if d.Module == coreModule {
			coreDecisions++
		}
	}
	if coreDecisions != 1 {
		t.Errorf("%s reconciled %d times, want 1", coreModule, coreDecisions)
	}

	coreDir := filepath.Join(modules, "com", "fasterxml", "jackson", "core", "main")
	if diff := cmp.Diff([]string{"jackson-core-2.15.0.jar", moduledesc.FileName}, testutil.ListDir(t, coreDir)); diff != "" {
		t.Errorf("core module dir mismatch (-want +got):\n%s", diff)
	}

	want := []string{coreModule, databindModule, "org.example.app"}
	if diff := cmp.Diff(want, res.Order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RuntimeAPIOnce(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	spec := ModuleSpec{
		Name:               "org.example.api",
		ModuleDependencies: []moduledesc.Dependency{{Name: DefaultRuntimeAPIModule}},
	}
	res, err := b.Build(context.Background(), spec)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got := res.Descriptors["org.example.api"].DependencyNames()
	if diff := cmp.Diff([]string{DefaultRuntimeAPIModule}, got); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}

	b.IncludeRuntimeAPI = false
	res, err = b.Build(context.Background(), ModuleSpec{Name: "org.example.bare"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := res.Descriptors["org.example.bare"].DependencyNames(); len(got) != 0 {
		t.Errorf("dependencies = %v, want none", got)
	}
}

func TestBuild_Cycle(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	a := jar("mod.a", "jackson-core")
	bb := jar("mod.b", "jackson-databind", a)
	a.Dependencies = []JarSpec{bb}

	_, err := b.Build(context.Background(), ModuleSpec{Name: "mod.root", Jars: []JarSpec{a}})
	if !errors.Is(err, dag.ErrCycle) {
		t.Fatalf("Build() error = %v, want ErrCycle", err)
	}
	var ce *dag.CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not *dag.CycleError", err)
	}
	if diff := cmp.Diff([]string{"mod.a", "mod.b", "mod.a"}, ce.Cycle); diff != "" {
		t.Errorf("Cycle mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_SelfDependency(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	spec := ModuleSpec{Name: "mod.self", Jars: []JarSpec{jar("mod.self", "jackson-core")}}
	if _, err := b.Build(context.Background(), spec); !errors.Is(err, dag.ErrCycle) {
		t.Fatalf("Build() error = %v, want ErrCycle", err)
	}
}

func TestBuild_DeclaredDependencyWins(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	core := jar(coreModule, "jackson-core")
	core.Export = true
	res, err := b.Build(context.Background(), ModuleSpec{
		Name:               "org.example.app",
		Jars:               []JarSpec{core},
		ModuleDependencies: []moduledesc.Dependency{{Name: coreModule}},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []moduledesc.Dependency{
		{Name: coreModule},
		{Name: DefaultRuntimeAPIModule, Export: true},
	}
	if diff := cmp.Diff(want, res.Descriptors["org.example.app"].Dependencies); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_PinnedVersion(t *testing.T) {
	t.Parallel()

	b, src, modules := newTestBuilder(t)
	testutil.WriteArtifacts(t, src, "jackson-core-2.16.0.jar")

	pinned := jar(coreModule, "jackson-core")
	pinned.Version = "2.15.0"
	res, err := b.Build(context.Background(), pinned.Module())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if diff := cmp.Diff([]string{"jackson-core-2.15.0.jar"}, res.Descriptors[coreModule].ResourcePaths()); diff != "" {
		t.Errorf("resources mismatch (-want +got):\n%s", diff)
	}
	dir := filepath.Join(modules, "com", "fasterxml", "jackson", "core", "main")
	if diff := cmp.Diff([]string{"jackson-core-2.15.0.jar", moduledesc.FileName}, testutil.ListDir(t, dir)); diff != "" {
		t.Errorf("module dir mismatch (-want +got):\n%s", diff)
	}

	missing := jar("org.example.missing", "jackson-core")
	missing.Version = "9.9"
	if _, err := b.Build(context.Background(), missing.Module()); !errors.Is(err, reconcile.ErrNotFound) {
		t.Errorf("Build() with an absent pinned version error = %v, want ErrNotFound", err)
	}
}

func TestBuild_PinnedVersionFromRepository(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	lib := filepath.Join(root, "lib")
	repo := filepath.Join(root, "repo")
	testutil.WriteArtifacts(t, lib, "jackson-core-2.16.0.jar")
	testutil.WriteArtifacts(t, filepath.Join(repo, "com", "fasterxml", "jackson", "core", "jackson-core", "2.15.0"), "jackson-core-2.15.0.jar")

	b := NewBuilder(filepath.Join(root, "modules"), Chain{FlatDir{Dir: lib}, MavenRepository{Root: repo}})
	pinned := jar(coreModule, "jackson-core")
	pinned.Version = "2.15.0"
	res, err := b.Build(context.Background(), pinned.Module())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if diff := cmp.Diff([]string{"jackson-core-2.15.0.jar"}, res.Descriptors[coreModule].ResourcePaths()); diff != "" {
		t.Errorf("resources mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Thin(t *testing.T) {
	t.Parallel()

	b, _, modules := newTestBuilder(t)
	b.Thin = true
	res, err := b.Build(context.Background(), ModuleSpec{
		Name: coreModule,
		Primary: &JarSpec{
			GroupID: "com.fasterxml.jackson.core",
			Query:   artifact.Query{ArtifactID: "jackson-core"},
		},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []moduledesc.Resource{{Artifact: "com.fasterxml.jackson.core:jackson-core:2.15.0"}}
	if diff := cmp.Diff(want, res.Descriptors[coreModule].Resources); diff != "" {
		t.Errorf("Resources mismatch (-want +got):\n%s", diff)
	}
	dir := filepath.Join(modules, "com", "fasterxml", "jackson", "core", "main")
	if diff := cmp.Diff([]string{moduledesc.FileName}, testutil.ListDir(t, dir)); diff != "" {
		t.Errorf("thin module dir mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ResourcesAndMainClass(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	res, err := b.Build(context.Background(), ModuleSpec{
		Name:      "org.example.tool",
		Primary:   &JarSpec{Query: artifact.Query{ArtifactID: "app"}},
		Resources: []JarSpec{{Query: artifact.Query{ArtifactID: "config", Type: "properties"}}},
		MainClass: "org.example.Main",
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	desc := res.Descriptors["org.example.tool"]
	if diff := cmp.Diff([]string{"app-1.0.jar", "config-1.0.properties"}, desc.ResourcePaths()); diff != "" {
		t.Errorf("resources mismatch (-want +got):\n%s", diff)
	}
	if desc.MainClass != "org.example.Main" {
		t.Errorf("MainClass = %q", desc.MainClass)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	first, err := b.Build(context.Background(), diamond())
	if err != nil {
		t.Fatalf("first Build() error = %v", err)
	}
	if len(first.Changed) != 3 {
		t.Errorf("first run Changed = %v, want 3 modules", first.Changed)
	}

	second, err := b.Build(context.Background(), diamond())
	if err != nil {
		t.Fatalf("second Build() error = %v", err)
	}
	if len(second.Changed) != 0 {
		t.Errorf("second run Changed = %v, want none", second.Changed)
	}
	for _, d := range second.Decisions {
		if d.Decision.Kind != reconcile.Skip {
			t.Errorf("second run decision for %s = %s, want skip", d.Module, d.Decision)
		}
	}
}

func TestBuild_NotFound(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	_, err := b.Build(context.Background(), ModuleSpec{
		Name:    "org.example.missing",
		Primary: &JarSpec{Query: artifact.Query{ArtifactID: "absent"}},
	})
	if !errors.Is(err, reconcile.ErrNotFound) {
		t.Fatalf("Build() error = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "org.example.missing") {
		t.Errorf("error %q does not name the module", err)
	}
}

func TestBuild_CheckOnly(t *testing.T) {
	t.Parallel()

	b, _, modules := newTestBuilder(t)
	b.Policy.CheckOnly = true
	res, err := b.Build(context.Background(), diamond())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(res.Descriptors) != 3 {
		t.Errorf("Descriptors = %d, want 3", len(res.Descriptors))
	}
	if testutil.Exists(t, modules) {
		t.Errorf("check-only run created %s", modules)
	}
}

func TestBuild_InvalidModuleName(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	_, err := b.Build(context.Background(), ModuleSpec{Name: "bad..name"})
	if !errors.Is(err, types.ErrInvalidModuleName) {
		t.Fatalf("Build() error = %v, want ErrInvalidModuleName", err)
	}
}

func TestBuild_Canceled(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Build(ctx, diamond()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuildAll_SharesModules(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBuilder(t)
	core := jar(coreModule, "jackson-core")
	specs := []ModuleSpec{
		{Name: "org.example.one", Jars: []JarSpec{core}},
		{Name: "org.example.two", Jars: []JarSpec{core}},
	}
	res, err := b.BuildAll(context.Background(), specs)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if len(res.Decisions) != 1 {
		t.Errorf("Decisions = %d, want 1", len(res.Decisions))
	}
	for _, name := range []string{"org.example.one", "org.example.two"} {
		if diff := cmp.Diff([]string{coreModule}, res.Graph.Dependencies(name)); diff != "" {
			t.Errorf("%s dependencies mismatch (-want +got):\n%s", name, diff)
		}
	}
}
