// SPDX-License-Identifier: MPL-2.0

// Package deploy drives one deployment run: it resolves the source, stages
// and reconciles application archives against the deploy directory, builds
// module directories, and signals the application server.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/modsync/modsync/internal/appserver"
	"github.com/modsync/modsync/internal/config"
	"github.com/modsync/modsync/internal/props"
	"github.com/modsync/modsync/internal/reconcile"
	"github.com/modsync/modsync/internal/remote"
	"github.com/modsync/modsync/pkg/artifact"
	"github.com/modsync/modsync/pkg/version"
)

// Run kinds.
const (
	KindEar    Kind = "ear"
	KindWar    Kind = "war"
	KindModule Kind = "module"
)

// VersionsPrefix prefixes the properties recording deployed archive
// versions, e.g. "versions.calendar".
const VersionsPrefix = "versions."

var (
	// ErrUnknownKind is returned for a Kind other than ear, war or module.
	ErrUnknownKind = errors.New("unknown deployment kind")
	// ErrNotConfigured is returned when a directory the run needs is unset.
	ErrNotConfigured = errors.New("not configured")
	// ErrUnknownModule is returned when a requested module is not declared.
	ErrUnknownModule = errors.New("unknown module")
)

type (
	// Kind selects what a run deploys.
	Kind string

	// Request asks for one run. Names are artifact ids for archives and
	// module names for modules; empty selects everything configured.
	Request struct {
		Kind  Kind
		Names []string
	}

	// Options configure an Orchestrator.
	Options struct {
		SourceDir     string
		SourceURL     string
		StagingDir    string
		DeployDir     string
		ModulesDir    string
		RepositoryDir string

		Runtime appserver.Runtime
		Policy  reconcile.Policy
		Markers []string

		Ears config.ArchiveConfig
		Wars config.ArchiveConfig
		// Explode unzips archive files while staging them.
		Explode bool
		// Cleanup removes the temporary directories of a remote source.
		Cleanup bool

		Modules           []config.ModuleConfig
		Thin              bool
		IncludeRuntimeAPI bool
		RuntimeAPIModule  string

		// Properties is the scope module declarations expand against.
		Properties *props.Scope
	}

	// Fetcher lists and downloads remote artifacts. *remote.Client
	// implements it.
	Fetcher interface {
		List(ctx context.Context, url string) ([]remote.Child, error)
		Download(ctx context.Context, url string, w io.Writer) error
	}

	// Dependencies are the collaborators of an Orchestrator. Nil fields
	// get defaults.
	Dependencies struct {
		Fetcher    Fetcher
		Comparator version.Comparator
	}

	// Outcome records what happened to one archive or module.
	Outcome struct {
		Kind     Kind               `json:"kind" yaml:"kind" toml:"kind"`
		Name     string             `json:"name" yaml:"name" toml:"name"`
		Decision reconcile.Decision `json:"decision" yaml:"decision" toml:"decision"`
		Effect   reconcile.Effect   `json:"effect" yaml:"effect" toml:"effect"`
		// Modules lists the module directories written for this outcome.
		Modules []string `json:"modules,omitempty" yaml:"modules,omitempty" toml:"modules,omitempty"`
	}

	// Summary is the result of a run.
	Summary struct {
		Kind     Kind
		Outcomes []Outcome
		Deployed int
		Skipped  int
	}

	// Orchestrator runs deployments.
	Orchestrator struct {
		opts     Options
		fetcher  Fetcher
		engine   *reconcile.Engine
		resolver *artifact.Resolver
	}
)

// ParseKind accepts "ear", "war" and "module" as well as their plurals.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")); k {
	case KindEar, KindWar, KindModule:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

func (k Kind) String() string { return string(k) }

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Decision.Changes() {
		s.Deployed++
	} else {
		s.Skipped++
	}
}

// OptionsFromConfig maps an expanded configuration onto Options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	rt, err := appserver.Lookup(cfg.Runtime.String())
	if err != nil {
		return Options{}, err
	}
	return Options{
		SourceDir:         cfg.Source.Dir,
		SourceURL:         cfg.Source.URL,
		StagingDir:        cfg.StagingDir,
		DeployDir:         cfg.DeployDir,
		ModulesDir:        cfg.ModulesDir,
		RepositoryDir:     cfg.RepositoryDir,
		Runtime:           rt,
		Policy:            cfg.Policy(),
		Markers:           cfg.Markers,
		Ears:              cfg.Ears,
		Wars:              cfg.Wars,
		Explode:           cfg.Explode,
		Cleanup:           cfg.Cleanup,
		Modules:           cfg.Modules,
		Thin:              cfg.BuildThin,
		IncludeRuntimeAPI: cfg.IncludeRuntimeAPI,
		RuntimeAPIModule:  cfg.RuntimeAPIModule.String(),
		Properties:        cfg.Scope(),
	}, nil
}

// New returns an Orchestrator for opts.
func New(opts Options, deps Dependencies) *Orchestrator {
	if opts.Runtime == nil {
		opts.Runtime = appserver.None{}
	}
	if opts.Properties == nil {
		opts.Properties = props.New(nil)
	}
	if deps.Fetcher == nil {
		deps.Fetcher = remote.NewClient()
	}
	if deps.Comparator == nil {
		deps.Comparator = version.Maven{}
	}
	resolver := artifact.DefaultResolver()
	for _, m := range opts.Markers {
		resolver.AddMarker(m)
	}
	return &Orchestrator{
		opts:     opts,
		fetcher:  deps.Fetcher,
		engine:   &reconcile.Engine{Comparator: deps.Comparator, Runtime: opts.Runtime},
		resolver: resolver,
	}
}

// Run performs req. Work already committed when an error occurs is kept;
// the returned Summary then holds the outcomes up to the failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Summary, error) {
	if _, err := ParseKind(string(req.Kind)); err != nil {
		return nil, err
	}
	summary := &Summary{Kind: req.Kind}

	src, err := o.openSource(ctx)
	if err != nil {
		return summary, err
	}
	defer src.close()
	if src.empty {
		return summary, nil
	}

	ctx, err = o.withVersions(ctx)
	if err != nil {
		return summary, err
	}

	switch req.Kind {
	case KindEar:
		err = o.runArchives(ctx, src.dir, req.Kind, o.opts.Ears, req.Names, summary)
	case KindWar:
		err = o.runArchives(ctx, src.dir, req.Kind, o.opts.Wars, req.Names, summary)
	case KindModule:
		err = o.runModules(ctx, src.dir, req.Names, summary)
	}
	slog.Info("deployment run finished", "kind", req.Kind, "deployed", summary.Deployed, "skipped", summary.Skipped)
	return summary, err
}

// withVersions returns ctx carrying the configured properties plus a
// versions.<artifactId> property for every archive in the deploy directory.
func (o *Orchestrator) withVersions(ctx context.Context) (context.Context, error) {
	found := map[string][]string{}
	if o.opts.DeployDir != "" {
		idx, err := artifact.Scan(o.opts.DeployDir, o.resolver)
		if err != nil {
			return ctx, err
		}
		for _, n := range idx.Names {
			if n.Type != string(KindEar) && n.Type != string(KindWar) {
				continue
			}
			if appserver.IsSidecar(o.opts.Runtime, n.Raw) {
				continue
			}
			found[n.ArtifactID] = append(found[n.ArtifactID], n.Version)
		}
	}

	versions := make(map[string]string, len(found))
	for id, vs := range found {
		latest, err := version.Max(o.engine.Comparator, vs...)
		if err != nil {
			return ctx, fmt.Errorf("deployed %s: %w", id, err)
		}
		slog.Debug("recorded deployed version", "artifact", id, "version", latest)
		versions[VersionsPrefix+id] = latest
	}
	return props.WithScope(ctx, o.opts.Properties.Push(versions)), nil
}
