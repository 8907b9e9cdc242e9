// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/modsync/modsync/internal/issue"
	"github.com/modsync/modsync/internal/props"
	"github.com/modsync/modsync/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "modsync"
	// LocalFileName is the project configuration file looked up in the
	// working directory.
	LocalFileName = "modsync.cue"
	// UserFileName is the configuration file inside ConfigDir.
	UserFileName = "config.cue"
	// EnvPrefix prefixes environment overrides, e.g. MODSYNC_DEPLOY_DIR.
	EnvPrefix = "MODSYNC"
	// BaseDirProperty names the property holding the configuration base
	// directory: the config file's directory, or the working directory.
	BaseDirProperty = "basedir"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the modsync user configuration directory below the
// platform's user config directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// Resolve returns the configuration file opts select, or "" when defaults
// apply. Lookup order: ConfigFilePath, ./modsync.cue, <ConfigDir>/config.cue.
func Resolve(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'modsync config init' to write a starter configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	local := LocalFileName
	if opts.WorkDir != "" {
		local = filepath.Join(opts.WorkDir, LocalFileName)
	}
	if fileExists(local) {
		return local, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	user := filepath.Join(cfgDir, UserFileName)
	if fileExists(user) {
		return user, nil
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := Resolve(opts)
	if err != nil {
		return nil, err
	}

	properties := map[string]string{}
	if path != "" {
		loaded, err := loadCUEIntoViper(v, path)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithIssue(issue.ConfigLoadFailedId).
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'modsync config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
		properties = loaded
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Properties = properties
	cfg.File = path

	base, err := baseDir(path, opts.WorkDir)
	if err != nil {
		return nil, err
	}
	cfg.BaseDir = base
	expanded, err := cfg.Expand(cfg.Scope())
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("expand configuration properties").
			WithIssue(issue.ConfigLoadFailedId).
			WithResource(path).
			WithSuggestion("Define the property under 'properties' in the configuration file").
			Wrap(err).
			BuildError()
	}

	if valid, errs := expanded.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithResource(path).
			WithSuggestion("Fix the listed fields and run the command again").
			Wrap(errors.Join(errs...)).
			BuildError()
	}
	return expanded, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source.dir", d.Source.Dir)
	v.SetDefault("source.url", d.Source.URL)
	v.SetDefault("staging_dir", d.StagingDir)
	v.SetDefault("deploy_dir", d.DeployDir)
	v.SetDefault("modules_dir", d.ModulesDir)
	v.SetDefault("repository_dir", d.RepositoryDir)
	v.SetDefault("runtime", d.Runtime)
	v.SetDefault("markers", d.Markers)
	v.SetDefault("reconcile.noversion", d.Reconcile.NoVersion)
	v.SetDefault("reconcile.delete", d.Reconcile.Delete)
	v.SetDefault("reconcile.checkonly", d.Reconcile.CheckOnly)
	v.SetDefault("reconcile.equal_versions", d.Reconcile.EqualVersions)
	v.SetDefault("reconcile.skip_identical", d.Reconcile.SkipIdentical)
	v.SetDefault("ears.names", d.Ears.Names)
	v.SetDefault("ears.allow", d.Ears.Allow)
	v.SetDefault("wars.names", d.Wars.Names)
	v.SetDefault("wars.allow", d.Wars.Allow)
	v.SetDefault("explode", d.Explode)
	v.SetDefault("cleanup", d.Cleanup)
	v.SetDefault("include_runtime_api", d.IncludeRuntimeAPI)
	v.SetDefault("runtime_api_module", d.RuntimeAPIModule)
	v.SetDefault("build_thin", d.BuildThin)
	v.SetDefault("modules", d.Modules)
	v.SetDefault("report", d.Report)
	v.SetDefault("verbose", d.Verbose)
}

// loadCUEIntoViper validates the CUE file at path against #Config and merges
// it into v. Properties are returned separately: viper folds key case and
// splits keys on dots, both of which property names rely on.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return nil, err
	}
	configMap := *res.Value

	properties := map[string]string{}
	if raw, ok := configMap["properties"].(map[string]any); ok {
		for k, val := range raw {
			properties[k] = fmt.Sprint(val)
		}
	}
	delete(configMap, "properties")

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	return properties, nil
}

func baseDir(path, workDir string) (string, error) {
	if path != "" {
		return filepath.Abs(filepath.Dir(path))
	}
	if workDir != "" {
		return filepath.Abs(workDir)
	}
	return os.Getwd()
}

// Scope returns the property scope configuration values expand against:
// the configured properties plus basedir.
func (c Config) Scope() *props.Scope {
	values := maps.Clone(c.Properties)
	if values == nil {
		values = map[string]string{}
	}
	if _, ok := values[BaseDirProperty]; !ok {
		values[BaseDirProperty] = c.BaseDir
	}
	return props.New(values)
}

// Expand returns a copy of c with ${name} references in its paths, source
// URL and report path substituted from s. Module declarations are left
// as written; they expand per run, when deployed versions are known.
func (c Config) Expand(s *props.Scope) (*Config, error) {
	out := c
	fields := []*string{
		&out.Source.Dir, &out.Source.URL, &out.StagingDir, &out.DeployDir,
		&out.ModulesDir, &out.RepositoryDir, &out.Report,
	}
	for _, f := range fields {
		expanded, err := s.Expand(*f)
		if err != nil {
			return nil, err
		}
		*f = expanded
	}
	return &out, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes a starter configuration to path unless a file already
// exists there. It reports whether the file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modsync configuration\n\n")

	sb.WriteString("source: {\n")
	fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Source.Dir)
	if cfg.Source.URL != "" {
		fmt.Fprintf(&sb, "\turl: %q\n", cfg.Source.URL)
	}
	sb.WriteString("}\n")
	fmt.Fprintf(&sb, "staging_dir: %q\n", cfg.StagingDir)
	fmt.Fprintf(&sb, "deploy_dir: %q\n", cfg.DeployDir)
	fmt.Fprintf(&sb, "modules_dir: %q\n", cfg.ModulesDir)
	if cfg.RepositoryDir != "" {
		fmt.Fprintf(&sb, "repository_dir: %q\n", cfg.RepositoryDir)
	}
	fmt.Fprintf(&sb, "runtime: %q\n", cfg.Runtime)

	if len(cfg.Markers) > 0 {
		sb.WriteString("markers: [")
		for i, m := range cfg.Markers {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q", m)
		}
		sb.WriteString("]\n")
	}

	if len(cfg.Properties) > 0 {
		sb.WriteString("\nproperties: {\n")
		for _, k := range slices.Sorted(maps.Keys(cfg.Properties)) {
			fmt.Fprintf(&sb, "\t%q: %q\n", k, cfg.Properties[k])
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\nreconcile: {\n")
	fmt.Fprintf(&sb, "\tnoversion: %v\n", cfg.Reconcile.NoVersion)
	fmt.Fprintf(&sb, "\tdelete: %v\n", cfg.Reconcile.Delete)
	fmt.Fprintf(&sb, "\tcheckonly: %v\n", cfg.Reconcile.CheckOnly)
	fmt.Fprintf(&sb, "\tequal_versions: %q\n", cfg.Reconcile.EqualVersions)
	fmt.Fprintf(&sb, "\tskip_identical: %v\n", cfg.Reconcile.SkipIdentical)
	sb.WriteString("}\n")

	for _, a := range []struct {
		name string
		cfg  ArchiveConfig
	}{{"ears", cfg.Ears}, {"wars", cfg.Wars}} {
		if len(a.cfg.Names) == 0 && len(a.cfg.Allow) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s: {\n", a.name)
		writeStringList(&sb, "names", a.cfg.Names)
		allow := make([]string, len(a.cfg.Allow))
		for i, g := range a.cfg.Allow {
			allow[i] = g.String()
		}
		writeStringList(&sb, "allow", allow)
		sb.WriteString("}\n")
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "explode: %v\n", cfg.Explode)
	fmt.Fprintf(&sb, "cleanup: %v\n", cfg.Cleanup)
	fmt.Fprintf(&sb, "include_runtime_api: %v\n", cfg.IncludeRuntimeAPI)
	fmt.Fprintf(&sb, "runtime_api_module: %q\n", cfg.RuntimeAPIModule)
	fmt.Fprintf(&sb, "build_thin: %v\n", cfg.BuildThin)
	if cfg.Report != "" {
		fmt.Fprintf(&sb, "report: %q\n", cfg.Report)
	}

	if len(cfg.Modules) > 0 {
		// CUE accepts JSON, so nested module declarations render as JSON.
		data, err := json.MarshalIndent(cfg.Modules, "", "\t")
		if err == nil {
			fmt.Fprintf(&sb, "\nmodules: %s\n", data)
		}
	}

	return sb.String()
}

func writeStringList(sb *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(sb, "\t%s: [", name)
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%q", v)
	}
	sb.WriteString("]\n")
}
