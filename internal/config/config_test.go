// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/modsync/modsync/internal/issue"
	"github.com/modsync/modsync/internal/props"
	"github.com/modsync/modsync/internal/testutil"
	"github.com/modsync/modsync/pkg/moduledesc"
)

func load(t *testing.T, workDir string) (*Config, error) {
	t.Helper()
	return NewProvider().Load(context.Background(), LoadOptions{
		WorkDir:       workDir,
		ConfigDirPath: filepath.Join(t.TempDir(), "user"),
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	cfg, err := load(t, work)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.File != "" {
		t.Errorf("File = %q, want empty", cfg.File)
	}
	if cfg.BaseDir != work {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, work)
	}
	if want := filepath.Join(work, "target"); cfg.Source.Dir != want {
		t.Errorf("Source.Dir = %q, want %q", cfg.Source.Dir, want)
	}
	if want := filepath.Join(work, "deployments"); cfg.DeployDir != want {
		t.Errorf("DeployDir = %q, want %q", cfg.DeployDir, want)
	}
	if cfg.Runtime != "wildfly" || !cfg.Cleanup || !cfg.IncludeRuntimeAPI {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RuntimeAPIModule != "javax.api" {
		t.Errorf("RuntimeAPIModule = %q", cfg.RuntimeAPIModule)
	}
	if p := cfg.Policy(); p.OnEqual != "redeploy" || !p.SkipIdentical || p.Delete {
		t.Errorf("Policy() = %+v", p)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(work, LocalFileName), `
properties: {
	"app.version": "1.2"
	env:           "prod"
}
deploy_dir: "${basedir}/dep-${app.version}"
runtime:    "none"
markers: ["${env}.marker"]
reconcile: {
	delete:         true
	equal_versions: "skip"
}
ears: {
	names: ["calendar"]
	allow: ["cal*"]
}
modules: [{
	name: "org.example.mail"
	artifact: {artifact_id: "mail-core", version: "${app.version}"}
	jar_dependencies: [{
		artifact_id: "jackson-core"
		module:      "com.fasterxml.jackson.core"
		export:      true
	}]
	module_dependencies: [{name: "javax.mail.api", export: true}]
	main_class: "org.example.Main"
}]
`)

	cfg, err := load(t, work)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.File != filepath.Join(work, LocalFileName) {
		t.Errorf("File = %q", cfg.File)
	}
	if want := filepath.Join(work, "dep-1.2"); cfg.DeployDir != want {
		t.Errorf("DeployDir = %q, want %q", cfg.DeployDir, want)
	}
	if want := filepath.Join(work, "modules"); cfg.ModulesDir != want {
		t.Errorf("ModulesDir = %q, want default %q", cfg.ModulesDir, want)
	}
	if cfg.Runtime != "none" {
		t.Errorf("Runtime = %q", cfg.Runtime)
	}
	if diff := cmp.Diff(map[string]string{"app.version": "1.2", "env": "prod"}, cfg.Properties); diff != "" {
		t.Errorf("Properties mismatch (-want +got):\n%s", diff)
	}

	p := cfg.Policy()
	if !p.Delete || p.OnEqual != "skip" || !p.SkipIdentical {
		t.Errorf("Policy() = %+v, want delete, skip and default skip_identical", p)
	}
	if !cfg.Ears.Allows("calendar") || cfg.Ears.Allows("mail") {
		t.Errorf("Ears.Allows mismatch for %v", cfg.Ears.Allow)
	}

	mod, ok := cfg.Module("org.example.mail")
	if !ok {
		t.Fatal("Module(org.example.mail) not found")
	}
	// Module declarations expand per run.
	if mod.Artifact == nil || mod.Artifact.Version != "${app.version}" {
		t.Errorf("Artifact = %+v, want unexpanded version", mod.Artifact)
	}
	if len(mod.JarDependencies) != 1 || mod.JarDependencies[0].ArtifactID != "jackson-core" || !mod.JarDependencies[0].Export {
		t.Errorf("JarDependencies = %+v", mod.JarDependencies)
	}
	if diff := cmp.Diff([]moduledesc.Dependency{{Name: "javax.mail.api", Export: true}}, mod.ModuleDependencies); diff != "" {
		t.Errorf("ModuleDependencies mismatch (-want +got):\n%s", diff)
	}
	if mod.MainClass != "org.example.Main" {
		t.Errorf("MainClass = %q", mod.MainClass)
	}
}

func TestLoad_UserConfigDir(t *testing.T) {
	t.Parallel()

	userDir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(userDir, UserFileName), `report: "${basedir}/report.toml"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{
		WorkDir:       t.TempDir(),
		ConfigDirPath: userDir,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := filepath.Join(userDir, "report.toml"); cfg.Report != want {
		t.Errorf("Report = %q, want %q", cfg.Report, want)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MODSYNC_DEPLOY_DIR", "/srv/deployments")

	cfg, err := load(t, t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DeployDir != "/srv/deployments" {
		t.Errorf("DeployDir = %q, want env override", cfg.DeployDir)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		target  error
		substr  string
	}{
		{
			name:    "schema violation",
			content: `runtime: "jboss"`,
			substr:  "runtime",
		},
		{
			name:    "syntax error",
			content: `deploy_dir: "unterminated`,
		},
		{
			name:    "undefined property",
			content: `deploy_dir: "${nope}/x"`,
			target:  props.ErrUndefined,
		},
		{
			name: "duplicate module",
			content: `modules: [
	{name: "org.example.a", no_artifact: true},
	{name: "org.example.a", no_artifact: true},
]`,
			target: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			work := t.TempDir()
			testutil.MustWriteFile(t, filepath.Join(work, LocalFileName), tt.content)

			_, err := load(t, work)
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if got := issue.IssueOf(err); got != issue.Get(issue.ConfigLoadFailedId) {
				t.Errorf("IssueOf(err) = %v, want ConfigLoadFailed", got)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Load() error = %v, want %v", err, tt.target)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.substr)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	userDir := t.TempDir()

	got, err := Resolve(LoadOptions{WorkDir: work, ConfigDirPath: userDir})
	if err != nil || got != "" {
		t.Errorf("Resolve() with no files = %q, %v", got, err)
	}

	testutil.MustWriteFile(t, filepath.Join(userDir, UserFileName), "")
	got, _ = Resolve(LoadOptions{WorkDir: work, ConfigDirPath: userDir})
	if got != filepath.Join(userDir, UserFileName) {
		t.Errorf("Resolve() = %q, want user config", got)
	}

	testutil.MustWriteFile(t, filepath.Join(work, LocalFileName), "")
	got, _ = Resolve(LoadOptions{WorkDir: work, ConfigDirPath: userDir})
	if got != filepath.Join(work, LocalFileName) {
		t.Errorf("Resolve() = %q, want local config", got)
	}

	_, err = Resolve(LoadOptions{ConfigFilePath: filepath.Join(work, "missing.cue")})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !strings.Contains(ae.Resource, "missing.cue") {
		t.Errorf("Resolve() explicit missing file error = %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{WorkDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	path := filepath.Join(work, LocalFileName)

	written, err := WriteDefault(path)
	if err != nil || !written {
		t.Fatalf("WriteDefault() = %v, %v", written, err)
	}
	if written, _ := WriteDefault(path); written {
		t.Error("WriteDefault() overwrote an existing file")
	}

	cfg, err := load(t, work)
	if err != nil {
		t.Fatalf("Load() of generated config error = %v\n%s", err, testutil.MustReadFile(t, path))
	}
	if want := filepath.Join(work, "deployments"); cfg.DeployDir != want {
		t.Errorf("DeployDir = %q, want %q", cfg.DeployDir, want)
	}
}

func TestGenerateCUE_Modules(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Properties = map[string]string{"b": "2", "a": "1"}
	cfg.Ears.Allow = []GlobPattern{"cal*"}
	cfg.Modules = []ModuleConfig{{
		Name:       "org.example.mail",
		Artifact:   &ArtifactConfig{ArtifactID: "mail-core"},
		JarDependencies: []JarConfig{{
			ArtifactConfig: ArtifactConfig{ArtifactID: "jackson-core"},
			Module:         "com.fasterxml.jackson.core",
		}},
	}}

	work := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(work, LocalFileName), GenerateCUE(cfg))

	got, err := load(t, work)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg.Modules, got.Modules); diff != "" {
		t.Errorf("Modules mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(cfg.Properties, got.Properties); diff != "" {
		t.Errorf("Properties mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(cfg.Ears.Allow, got.Ears.Allow); diff != "" {
		t.Errorf("Ears.Allow mismatch (-want +got):\n%s", diff)
	}
}
