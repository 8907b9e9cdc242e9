// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"context"
	"fmt"
	"slices"

	"github.com/modsync/modsync/internal/appserver"
	"github.com/modsync/modsync/internal/config"
	"github.com/modsync/modsync/internal/modgraph"
	"github.com/modsync/modsync/internal/props"
	"github.com/modsync/modsync/internal/reconcile"
	"github.com/modsync/modsync/pkg/artifact"
	"github.com/modsync/modsync/pkg/moduledesc"
	"github.com/modsync/modsync/pkg/types"
)

// expander expands strings against a scope and keeps the first error.
type expander struct {
	scope *props.Scope
	err   error
}

func (e *expander) str(s string) string {
	if e.err != nil {
		return s
	}
	out, err := e.scope.Expand(s)
	if err != nil {
		e.err = err
	}
	return out
}

func (e *expander) strs(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = e.str(s)
	}
	return out
}

func (e *expander) module(name types.ModuleName) types.ModuleName {
	return types.ModuleName(e.str(name.String()))
}

func (e *expander) artifact(a config.ArtifactConfig) modgraph.JarSpec {
	return modgraph.JarSpec{
		GroupID: e.str(a.GroupID),
		Query: artifact.Query{
			ArtifactID:   e.str(a.ArtifactID),
			Classifier:   e.str(a.Classifier),
			Type:         e.str(a.Type),
			IncludeTests: a.IncludeTests,
		},
		Version: e.str(a.Version),
	}
}

func (e *expander) jar(j config.JarConfig) modgraph.JarSpec {
	spec := e.artifact(j.ArtifactConfig)
	spec.ModuleName = e.module(j.Module)
	spec.Export = j.Export
	spec.ExportFilters = e.strs(j.ExportFilters)
	spec.ImportMeta = j.ImportMeta
	spec.ModuleDependencies = e.deps(j.ModuleDependencies)
	for _, nested := range j.JarDependencies {
		spec.Dependencies = append(spec.Dependencies, e.jar(nested))
	}
	return spec
}

func (e *expander) deps(in []moduledesc.Dependency) []moduledesc.Dependency {
	if in == nil {
		return nil
	}
	out := make([]moduledesc.Dependency, len(in))
	for i, d := range in {
		out[i] = moduledesc.Dependency{
			Name:          e.str(d.Name),
			Export:        d.Export,
			ExportFilters: e.strs(d.ExportFilters),
			ImportMeta:    d.ImportMeta,
		}
	}
	return out
}

// ModuleSpec expands a module declaration against s.
func ModuleSpec(m config.ModuleConfig, s *props.Scope) (modgraph.ModuleSpec, error) {
	e := &expander{scope: s}
	spec := modgraph.ModuleSpec{
		Name:               e.module(m.Name),
		ModuleDependencies: e.deps(m.ModuleDependencies),
		MainClass:          e.str(m.MainClass),
	}
	if m.Artifact != nil && !m.NoArtifact {
		primary := e.artifact(*m.Artifact)
		primary.ModuleName = spec.Name
		spec.Primary = &primary
	}
	for _, j := range m.JarDependencies {
		spec.Jars = append(spec.Jars, e.jar(j))
	}
	for _, r := range m.JarResources {
		spec.Resources = append(spec.Resources, e.artifact(r))
	}
	if e.err != nil {
		return modgraph.ModuleSpec{}, fmt.Errorf("module %s: %w", m.Name, e.err)
	}
	return spec, nil
}

// ModuleSpecs expands the declarations of the named modules, or of every
// declared module when names is empty, against the scope carried by ctx.
func (o *Orchestrator) ModuleSpecs(ctx context.Context, names []string) ([]modgraph.ModuleSpec, error) {
	selected := o.opts.Modules
	if len(names) > 0 {
		selected = make([]config.ModuleConfig, 0, len(names))
		for _, name := range names {
			i := slices.IndexFunc(o.opts.Modules, func(m config.ModuleConfig) bool { return m.Name.String() == name })
			if i < 0 {
				return nil, fmt.Errorf("%w: %s", ErrUnknownModule, name)
			}
			selected = append(selected, o.opts.Modules[i])
		}
	}

	scope := props.FromContext(ctx)
	specs := make([]modgraph.ModuleSpec, 0, len(selected))
	for _, m := range selected {
		spec, err := ModuleSpec(m, scope)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Graph resolves the named modules without writing anything and returns
// the descriptors and dependency graph a deployment would produce.
func (o *Orchestrator) Graph(ctx context.Context, names []string) (*modgraph.Result, error) {
	src, err := o.openSource(ctx)
	if err != nil {
		return nil, err
	}
	defer src.close()

	ctx, err = o.withVersions(ctx)
	if err != nil {
		return nil, err
	}
	specs, err := o.ModuleSpecs(ctx, names)
	if err != nil {
		return nil, err
	}
	b := o.builder(src.dir)
	b.Policy.CheckOnly = true
	return b.BuildAll(ctx, specs)
}

func (o *Orchestrator) runModules(ctx context.Context, srcDir string, names []string, summary *Summary) error {
	if o.opts.ModulesDir == "" {
		return fmt.Errorf("modules directory: %w", ErrNotConfigured)
	}
	specs, err := o.ModuleSpecs(ctx, names)
	if err != nil {
		return err
	}

	res, err := o.builder(srcDir).BuildAll(ctx, specs)
	if res != nil {
		for _, md := range res.Decisions {
			out := Outcome{Kind: KindModule, Name: md.Module, Decision: md.Decision}
			if slices.Contains(res.Changed, md.Module) {
				out.Modules = []string{md.Module}
			}
			summary.add(out)
		}
	}
	return err
}

// builder returns a module builder reading jars from srcDir and, when
// configured, from the local repository.
func (o *Orchestrator) builder(srcDir string) *modgraph.Builder {
	locator := modgraph.Chain{modgraph.FlatDir{Dir: srcDir}}
	if o.opts.RepositoryDir != "" {
		locator = append(locator, modgraph.MavenRepository{Root: o.opts.RepositoryDir})
	}
	b := modgraph.NewBuilder(o.opts.ModulesDir, locator)
	// Module directories carry no deployment sentinels.
	b.Engine = &reconcile.Engine{Comparator: o.engine.Comparator, Runtime: appserver.None{}}
	b.Resolver = o.resolver
	b.Policy = o.opts.Policy
	b.Thin = o.opts.Thin
	b.IncludeRuntimeAPI = o.opts.IncludeRuntimeAPI
	if o.opts.RuntimeAPIModule != "" {
		b.RuntimeAPIModule = o.opts.RuntimeAPIModule
	}
	return b
}
