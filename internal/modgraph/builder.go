// SPDX-License-Identifier: MPL-2.0

// Package modgraph materializes module directories and their module.xml
// descriptors from declared modules and jar dependencies. Dependencies are
// built before the modules that need them, each module at most once per run,
// and a module that depends on itself through any path is a fatal cycle.
package modgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/modsync/modsync/internal/dag"
	"github.com/modsync/modsync/internal/reconcile"
	"github.com/modsync/modsync/pkg/artifact"
	"github.com/modsync/modsync/pkg/fspath"
	"github.com/modsync/modsync/pkg/moduledesc"
	"github.com/modsync/modsync/pkg/types"
)

// DefaultRuntimeAPIModule is the base API module every descriptor depends on
// when IncludeRuntimeAPI is set.
const DefaultRuntimeAPIModule = "javax.api"

type (
	// Builder builds module directories below ModulesRoot.
	Builder struct {
		ModulesRoot string
		Locator     Locator
		Engine      *reconcile.Engine
		Resolver    *artifact.Resolver
		Policy      reconcile.Policy
		// Thin references jars by repository coordinate instead of copying them.
		Thin bool
		// IncludeRuntimeAPI adds a dependency on RuntimeAPIModule to every
		// descriptor that does not declare it.
		IncludeRuntimeAPI bool
		RuntimeAPIModule  string
	}

	// ModuleDecision is a reconciliation decision taken for a module.
	ModuleDecision struct {
		Module   string
		Decision reconcile.Decision
	}

	// Result describes one run over a set of module specs.
	Result struct {
		// Descriptors holds the rendered descriptor of every module built.
		Descriptors map[string]*moduledesc.Descriptor
		// Order lists the modules with dependencies first.
		Order []string
		// Changed lists modules whose directory content changed, in build order.
		Changed   []string
		Decisions []ModuleDecision
		Graph     *dag.Graph
	}

	// run is the state shared by every module built in one Build call.
	run struct {
		b        *Builder
		result   *Result
		done     map[string]bool
		visiting map[string]bool
		path     []string
	}
)

// NewBuilder returns a Builder with the default engine, resolver and runtime
// API module. The runtime API module is included.
func NewBuilder(modulesRoot string, locator Locator) *Builder {
	return &Builder{
		ModulesRoot:       modulesRoot,
		Locator:           locator,
		Engine:            reconcile.New(),
		Resolver:          artifact.DefaultResolver(),
		IncludeRuntimeAPI: true,
		RuntimeAPIModule:  DefaultRuntimeAPIModule,
	}
}

// Build builds spec and every module it reaches.
func (b *Builder) Build(ctx context.Context, spec ModuleSpec) (*Result, error) {
	return b.BuildAll(ctx, []ModuleSpec{spec})
}

// BuildAll builds every spec in order. Modules shared between specs are
// built once. On error the returned Result holds what was built so far.
func (b *Builder) BuildAll(ctx context.Context, specs []ModuleSpec) (*Result, error) {
	r := &run{
		b: b,
		result: &Result{
			Descriptors: make(map[string]*moduledesc.Descriptor),
			Graph:       dag.New(),
		},
		done:     make(map[string]bool),
		visiting: make(map[string]bool),
	}
	for _, spec := range specs {
		if err := r.build(ctx, spec); err != nil {
			return r.result, err
		}
	}
	order, err := r.result.Graph.TopologicalSort()
	if err != nil {
		return r.result, err
	}
	r.result.Order = order
	return r.result, nil
}

func (b *Builder) engine() *reconcile.Engine {
	if b.Engine == nil {
		return reconcile.New()
	}
	return b.Engine
}

func (b *Builder) resolver() *artifact.Resolver {
	if b.Resolver == nil {
		return artifact.DefaultResolver()
	}
	return b.Resolver
}

func (b *Builder) runtimeAPIModule() string {
	if b.RuntimeAPIModule == "" {
		return DefaultRuntimeAPIModule
	}
	return b.RuntimeAPIModule
}

func (r *run) build(ctx context.Context, spec ModuleSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := spec.Name.Validate(); err != nil {
		return err
	}
	name := spec.Name.String()
	if r.visiting[name] {
		idx := slices.Index(r.path, name)
		cycle := append(slices.Clone(r.path[idx:]), name)
		return &dag.CycleError{Cycle: cycle}
	}
	if r.done[name] {
		slog.Debug("module already built", "module", name)
		return nil
	}

	r.visiting[name] = true
	r.path = append(r.path, name)
	defer func() {
		delete(r.visiting, name)
		r.path = r.path[:len(r.path)-1]
	}()

	r.result.Graph.AddNode(name)
	dir := fspath.ModuleDir(types.FilesystemPath(r.b.ModulesRoot), spec.Name).String()
	slog.Debug("building module", "module", name, "dir", dir)

	desc := moduledesc.New(name)
	changed := false

	if spec.Primary != nil {
		var err error
		var copied bool
		desc, copied, err = r.addJar(desc, name, dir, *spec.Primary)
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		changed = changed || copied
	}

	// Declared dependencies come first and win over a jar dependency on the
	// same module.
	for _, dep := range spec.ModuleDependencies {
		desc, _ = desc.WithDependency(dep)
	}

	for _, jar := range spec.Jars {
		if err := jar.ModuleName.Validate(); err != nil {
			return fmt.Errorf("module %s: jar dependency %s: %w", name, jar, err)
		}
		if err := r.build(ctx, jar.Module()); err != nil {
			return err
		}
		r.result.Graph.AddEdge(jar.ModuleName.String(), name)
		var added bool
		if desc, added = desc.WithDependency(jar.Dependency()); !added {
			slog.Debug("dependency already declared", "module", name, "dependency", jar.ModuleName)
		}
	}

	for _, res := range spec.Resources {
		var err error
		var copied bool
		desc, copied, err = r.addJar(desc, name, dir, res)
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		changed = changed || copied
	}

	if r.b.IncludeRuntimeAPI {
		desc, _ = desc.WithDependency(moduledesc.Dependency{Name: r.b.runtimeAPIModule(), Export: true})
	}
	if spec.MainClass != "" {
		desc = desc.WithMainClass(spec.MainClass)
	}

	if !r.b.Policy.CheckOnly {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &reconcile.FilesystemError{Op: "mkdir", Path: dir, Err: err}
		}
		written, err := desc.WriteFile(filepath.Join(dir, moduledesc.FileName))
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		if written {
			slog.Info("module descriptor written", "module", name, "dir", dir)
		}
		changed = changed || written
	}

	r.result.Descriptors[name] = desc
	if changed {
		r.result.Changed = append(r.result.Changed, name)
	}
	r.done[name] = true
	return nil
}

// addJar reconciles jar into the module directory, or references it by
// coordinate in thin mode, and records the resulting resources.
func (r *run) addJar(desc *moduledesc.Descriptor, module, dir string, jar JarSpec) (*moduledesc.Descriptor, bool, error) {
	if r.b.Locator == nil {
		return desc, false, fmt.Errorf("no artifact locator configured for %s", jar)
	}
	source, err := r.b.Locator.Index(jar, r.b.resolver())
	if err != nil {
		return desc, false, err
	}
	source = source.AtVersion(jar.Version)

	if r.b.Thin {
		v := jar.Version
		if v == "" {
			candidates, err := reconcile.Candidates(jar.Query, source)
			if err != nil {
				return desc, false, err
			}
			v = candidates[0].Version
		}
		return desc.WithArtifact(jar.Coordinate(v)), false, nil
	}

	target, err := artifact.Scan(dir, r.b.resolver())
	if err != nil {
		return desc, false, err
	}
	d, eff, err := r.b.engine().Reconcile(jar.Query, source, target, r.b.Policy)
	if err != nil {
		return desc, false, err
	}
	r.result.Decisions = append(r.result.Decisions, ModuleDecision{Module: module, Decision: d})

	resources := d.New
	if d.Kind == reconcile.Skip && len(d.Old) > 0 {
		resources = d.Old
	}
	for _, n := range resources {
		desc = desc.WithResource(n.Raw)
	}
	return desc, len(eff.Copied) > 0 || len(eff.Removed) > 0, nil
}
