// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/modsync/modsync/internal/appserver"
	"github.com/modsync/modsync/internal/reconcile"
	"github.com/modsync/modsync/pkg/moduledesc"
	"github.com/modsync/modsync/pkg/types"
)

var (
	// ErrInvalidRuntimeName is returned when a RuntimeName value is not recognized.
	ErrInvalidRuntimeName = errors.New("invalid runtime name")
	// ErrInvalidEqualVersionPolicy is returned when an EqualVersionPolicy value is not recognized.
	ErrInvalidEqualVersionPolicy = errors.New("invalid equal-version policy")
	// ErrInvalidGlobPattern is the sentinel error wrapped by InvalidGlobPatternError.
	ErrInvalidGlobPattern = errors.New("invalid glob pattern")
	// ErrInvalidArtifact is the sentinel error wrapped by InvalidArtifactError.
	ErrInvalidArtifact = errors.New("invalid artifact")
	// ErrInvalidModule is the sentinel error wrapped by InvalidModuleError.
	ErrInvalidModule = errors.New("invalid module")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// RuntimeName selects the application server whose sentinel files are
	// managed. See appserver.Lookup.
	RuntimeName string

	// InvalidRuntimeNameError is returned when a RuntimeName value is not recognized.
	// It wraps ErrInvalidRuntimeName for errors.Is() compatibility.
	InvalidRuntimeNameError struct {
		Value RuntimeName
	}

	// EqualVersionPolicy selects what happens when source and deployed
	// versions are equal.
	EqualVersionPolicy string

	// InvalidEqualVersionPolicyError is returned when an EqualVersionPolicy
	// value is not recognized.
	InvalidEqualVersionPolicyError struct {
		Value EqualVersionPolicy
	}

	// GlobPattern is a doublestar pattern matched against artifact ids.
	GlobPattern string

	// InvalidGlobPatternError is returned when a GlobPattern does not compile.
	InvalidGlobPatternError struct {
		Value GlobPattern
	}

	// InvalidArtifactError is returned when an ArtifactConfig has invalid fields.
	InvalidArtifactError struct {
		ArtifactID  string
		FieldErrors []error
	}

	// InvalidModuleError is returned when a ModuleConfig has invalid fields.
	// It collects field-level validation errors of the module and its jars.
	InvalidModuleError struct {
		Name        types.ModuleName
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// SourceConfig locates the artifacts to deploy: a local directory or a
	// WebDAV collection. URL wins when both are set.
	SourceConfig struct {
		Dir string `json:"dir" mapstructure:"dir"`
		URL string `json:"url" mapstructure:"url"`
	}

	// ReconcileConfig tunes version-aware reconciliation.
	ReconcileConfig struct {
		// NoVersion replaces deployed artifacts without comparing versions.
		NoVersion bool `json:"noversion" mapstructure:"noversion"`
		// Delete clears a same-named target before copying.
		Delete bool `json:"delete" mapstructure:"delete"`
		// CheckOnly reports decisions without touching the filesystem.
		CheckOnly bool `json:"checkonly" mapstructure:"checkonly"`
		// EqualVersions applies when source and deployed versions are equal.
		EqualVersions EqualVersionPolicy `json:"equal_versions" mapstructure:"equal_versions"`
		// SkipIdentical skips an equal-version redeploy of identical content.
		SkipIdentical bool `json:"skip_identical" mapstructure:"skip_identical"`
	}

	// ArchiveConfig lists the ears or wars of a run.
	ArchiveConfig struct {
		// Names are the artifact ids deployed when none are requested.
		Names []string `json:"names" mapstructure:"names"`
		// Allow restricts which artifact ids may be deployed. Empty allows all.
		Allow []GlobPattern `json:"allow" mapstructure:"allow"`
	}

	// ArtifactConfig declares one artifact by coordinates.
	ArtifactConfig struct {
		GroupID      string `json:"group_id,omitempty" mapstructure:"group_id"`
		ArtifactID   string `json:"artifact_id" mapstructure:"artifact_id"`
		Classifier   string `json:"classifier,omitempty" mapstructure:"classifier"`
		Version      string `json:"version,omitempty" mapstructure:"version"`
		Type         string `json:"type,omitempty" mapstructure:"type"`
		IncludeTests bool   `json:"include_tests,omitempty" mapstructure:"include_tests"`
	}

	// JarConfig declares a jar dependency deployed into its own module.
	JarConfig struct {
		ArtifactConfig     `mapstructure:",squash"`
		Module             types.ModuleName        `json:"module" mapstructure:"module"`
		Export             bool                    `json:"export,omitempty" mapstructure:"export"`
		ExportFilters      []string                `json:"export_filters,omitempty" mapstructure:"export_filters"`
		ImportMeta         bool                    `json:"import_meta,omitempty" mapstructure:"import_meta"`
		JarDependencies    []JarConfig             `json:"jar_dependencies,omitempty" mapstructure:"jar_dependencies"`
		ModuleDependencies []moduledesc.Dependency `json:"module_dependencies,omitempty" mapstructure:"module_dependencies"`
	}

	// ModuleConfig declares one module.
	ModuleConfig struct {
		Name     types.ModuleName `json:"name" mapstructure:"name"`
		Artifact *ArtifactConfig  `json:"artifact,omitempty" mapstructure:"artifact"`
		// NoArtifact declares a module without a primary artifact.
		NoArtifact         bool                    `json:"no_artifact,omitempty" mapstructure:"no_artifact"`
		JarDependencies    []JarConfig             `json:"jar_dependencies,omitempty" mapstructure:"jar_dependencies"`
		JarResources       []ArtifactConfig        `json:"jar_resources,omitempty" mapstructure:"jar_resources"`
		ModuleDependencies []moduledesc.Dependency `json:"module_dependencies,omitempty" mapstructure:"module_dependencies"`
		MainClass          string                  `json:"main_class,omitempty" mapstructure:"main_class"`
	}

	// Config holds the application configuration.
	Config struct {
		Source        SourceConfig `json:"source" mapstructure:"source"`
		StagingDir    string       `json:"staging_dir" mapstructure:"staging_dir"`
		DeployDir     string       `json:"deploy_dir" mapstructure:"deploy_dir"`
		ModulesDir    string       `json:"modules_dir" mapstructure:"modules_dir"`
		RepositoryDir string       `json:"repository_dir" mapstructure:"repository_dir"`

		Runtime RuntimeName `json:"runtime" mapstructure:"runtime"`
		// Markers extend the default classifier markers.
		Markers []string `json:"markers" mapstructure:"markers"`
		// Properties seed ${name} substitution. Loaded beside viper so names
		// keep their case and dots.
		Properties map[string]string `json:"properties" mapstructure:"-"`

		Reconcile ReconcileConfig `json:"reconcile" mapstructure:"reconcile"`
		Ears      ArchiveConfig   `json:"ears" mapstructure:"ears"`
		Wars      ArchiveConfig   `json:"wars" mapstructure:"wars"`

		// Explode unzips archive files into the staging directory.
		Explode bool `json:"explode" mapstructure:"explode"`
		// Cleanup removes temporary download directories at run end.
		Cleanup bool `json:"cleanup" mapstructure:"cleanup"`

		IncludeRuntimeAPI bool             `json:"include_runtime_api" mapstructure:"include_runtime_api"`
		RuntimeAPIModule  types.ModuleName `json:"runtime_api_module" mapstructure:"runtime_api_module"`
		BuildThin         bool             `json:"build_thin" mapstructure:"build_thin"`
		Modules           []ModuleConfig   `json:"modules" mapstructure:"modules"`

		// Report is the path of the TOML run report. Empty disables it.
		Report  string `json:"report" mapstructure:"report"`
		Verbose bool   `json:"verbose" mapstructure:"verbose"`

		// File is the configuration file the values were loaded from, empty
		// when only defaults apply.
		File string `json:"-" mapstructure:"-"`
		// BaseDir is the directory ${basedir} expands to.
		BaseDir string `json:"-" mapstructure:"-"`
	}
)

// String returns the string representation of the RuntimeName.
func (r RuntimeName) String() string { return string(r) }

// IsValid returns whether the RuntimeName names a known runtime.
func (r RuntimeName) IsValid() (bool, []error) {
	if _, err := appserver.Lookup(string(r)); err != nil {
		return false, []error{&InvalidRuntimeNameError{Value: r}}
	}
	return true, nil
}

// Error implements the error interface for InvalidRuntimeNameError.
func (e *InvalidRuntimeNameError) Error() string {
	return fmt.Sprintf("invalid runtime %q (valid: %s)", e.Value, strings.Join(appserver.Names(), ", "))
}

// Unwrap returns ErrInvalidRuntimeName for errors.Is() compatibility.
func (e *InvalidRuntimeNameError) Unwrap() error { return ErrInvalidRuntimeName }

// String returns the string representation of the EqualVersionPolicy.
func (p EqualVersionPolicy) String() string { return string(p) }

// IsValid returns whether the policy is "redeploy", "skip" or empty.
func (p EqualVersionPolicy) IsValid() (bool, []error) {
	if !reconcile.EqualPolicy(p).IsValid() {
		return false, []error{&InvalidEqualVersionPolicyError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidEqualVersionPolicyError.
func (e *InvalidEqualVersionPolicyError) Error() string {
	return fmt.Sprintf("invalid equal_versions policy %q (valid: redeploy, skip)", e.Value)
}

// Unwrap returns ErrInvalidEqualVersionPolicy for errors.Is() compatibility.
func (e *InvalidEqualVersionPolicyError) Unwrap() error { return ErrInvalidEqualVersionPolicy }

// String returns the string representation of the GlobPattern.
func (g GlobPattern) String() string { return string(g) }

// IsValid returns whether the pattern is a non-empty valid doublestar pattern.
func (g GlobPattern) IsValid() (bool, []error) {
	if strings.TrimSpace(string(g)) == "" || !doublestar.ValidatePattern(string(g)) {
		return false, []error{&InvalidGlobPatternError{Value: g}}
	}
	return true, nil
}

// Match reports whether name matches the pattern. Invalid patterns match nothing.
func (g GlobPattern) Match(name string) bool {
	ok, err := doublestar.Match(string(g), name)
	return err == nil && ok
}

// Error implements the error interface for InvalidGlobPatternError.
func (e *InvalidGlobPatternError) Error() string {
	return fmt.Sprintf("invalid glob pattern %q", e.Value)
}

// Unwrap returns ErrInvalidGlobPattern for errors.Is() compatibility.
func (e *InvalidGlobPatternError) Unwrap() error { return ErrInvalidGlobPattern }

// Allows reports whether artifactID passes the allow-list. An empty list
// allows everything.
func (a ArchiveConfig) Allows(artifactID string) bool {
	if len(a.Allow) == 0 {
		return true
	}
	for _, g := range a.Allow {
		if g.Match(artifactID) {
			return true
		}
	}
	return false
}

// IsValid returns whether the ArchiveConfig has valid fields.
func (a ArchiveConfig) IsValid() (bool, []error) {
	var errs []error
	for _, g := range a.Allow {
		if valid, fieldErrs := g.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the ArtifactConfig names an artifact.
func (a ArtifactConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(a.ArtifactID) == "" {
		errs = append(errs, errors.New("artifact_id must not be empty"))
	}
	if strings.Contains(a.Type, ".") {
		errs = append(errs, fmt.Errorf("type %q must not contain '.'", a.Type))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidArtifactError{ArtifactID: a.ArtifactID, FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidArtifactError.
func (e *InvalidArtifactError) Error() string {
	return fmt.Sprintf("invalid artifact %q: %v", e.ArtifactID, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidArtifact for errors.Is() compatibility.
func (e *InvalidArtifactError) Unwrap() error { return ErrInvalidArtifact }

// IsValid returns whether the jar and its nested jars are valid.
func (j JarConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := j.ArtifactConfig.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if err := j.Module.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, dependencyErrors(j.ModuleDependencies)...)
	for _, nested := range j.JarDependencies {
		if valid, fieldErrs := nested.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the ModuleConfig has valid fields.
func (m ModuleConfig) IsValid() (bool, []error) {
	var errs []error
	if err := m.Name.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch {
	case m.Artifact != nil && m.NoArtifact:
		errs = append(errs, errors.New("artifact and no_artifact are mutually exclusive"))
	case m.Artifact == nil && !m.NoArtifact:
		errs = append(errs, errors.New("artifact is required unless no_artifact is set"))
	case m.Artifact != nil:
		if valid, fieldErrs := m.Artifact.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	for _, j := range m.JarDependencies {
		if valid, fieldErrs := j.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	for _, r := range m.JarResources {
		if valid, fieldErrs := r.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	errs = append(errs, dependencyErrors(m.ModuleDependencies)...)
	if len(errs) > 0 {
		return false, []error{&InvalidModuleError{Name: m.Name, FieldErrors: errs}}
	}
	return true, nil
}

func dependencyErrors(deps []moduledesc.Dependency) []error {
	var errs []error
	for _, d := range deps {
		if err := types.ModuleName(d.Name).Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Error implements the error interface for InvalidModuleError.
func (e *InvalidModuleError) Error() string {
	return fmt.Sprintf("invalid module %q: %v", e.Name, errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidModule for errors.Is() compatibility.
func (e *InvalidModuleError) Unwrap() error { return ErrInvalidModule }

// Module returns the module declaration named name.
func (c Config) Module(name string) (ModuleConfig, bool) {
	for _, m := range c.Modules {
		if m.Name.String() == name {
			return m, true
		}
	}
	return ModuleConfig{}, false
}

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Runtime.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Reconcile.EqualVersions.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, a := range []ArchiveConfig{c.Ears, c.Wars} {
		if valid, fieldErrs := a.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if c.RuntimeAPIModule != "" {
		if err := c.RuntimeAPIModule.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	seen := make(map[types.ModuleName]bool, len(c.Modules))
	for _, m := range c.Modules {
		if seen[m.Name] {
			errs = append(errs, fmt.Errorf("module %q declared more than once", m.Name))
		}
		seen[m.Name] = true
		if valid, fieldErrs := m.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	lines := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		lines = append(lines, "  - "+err.Error())
	}
	return fmt.Sprintf("invalid config: %d field error(s):\n%s", len(e.FieldErrors), strings.Join(lines, "\n"))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Policy returns the reconciliation policy described by the config.
func (c Config) Policy() reconcile.Policy {
	return reconcile.Policy{
		NoVersion:     c.Reconcile.NoVersion,
		OnEqual:       reconcile.EqualPolicy(c.Reconcile.EqualVersions),
		SkipIdentical: c.Reconcile.SkipIdentical,
		Delete:        c.Reconcile.Delete,
		CheckOnly:     c.Reconcile.CheckOnly,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source:     SourceConfig{Dir: "${basedir}/target"},
		StagingDir: "${basedir}/out",
		DeployDir:  "${basedir}/deployments",
		ModulesDir: "${basedir}/modules",
		Runtime:    RuntimeName(appserver.NameWildFly),
		Markers:    []string{},
		Properties: map[string]string{},
		Reconcile: ReconcileConfig{
			EqualVersions: EqualVersionPolicy(reconcile.EqualRedeploy),
			SkipIdentical: true,
		},
		Ears:              ArchiveConfig{Names: []string{}, Allow: []GlobPattern{}},
		Wars:              ArchiveConfig{Names: []string{}, Allow: []GlobPattern{}},
		Cleanup:           true,
		IncludeRuntimeAPI: true,
		RuntimeAPIModule:  "javax.api",
		Modules:           []ModuleConfig{},
	}
}
