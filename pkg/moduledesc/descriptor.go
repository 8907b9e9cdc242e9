// SPDX-License-Identifier: MPL-2.0

// Package moduledesc models the module.xml descriptor read by a modular
// classloader: the resources a module bundles or references, the modules it
// depends on and an optional main class.
//
// Descriptors are built through methods that return the updated value, and
// WriteFile reports whether anything on disk changed.
package moduledesc

import (
	"fmt"
	"slices"
	"strings"
)

// FileName is the descriptor file name inside a module directory.
const FileName = "module.xml"

// Namespace is the XML namespace written on the root element.
const Namespace = "urn:jboss:module:1.8"

type (
	// Dependency is a dependency on another module. Name is its identity.
	Dependency struct {
		Name   string `json:"name" yaml:"name" mapstructure:"name"`
		Export bool   `json:"export,omitempty" yaml:"export,omitempty" mapstructure:"export"`
		// ExportFilters is an ordered list of paths; a leading "!" makes the
		// entry an exclude.
		ExportFilters []string `json:"export_filters,omitempty" yaml:"export_filters,omitempty" mapstructure:"export_filters"`
		// ImportMeta imports the dependency's META-INF resources.
		ImportMeta bool `json:"import_meta,omitempty" yaml:"import_meta,omitempty" mapstructure:"import_meta"`
	}

	// Resource is one resources entry: a bundled path or, for thin modules,
	// an artifact coordinate. Exactly one field is set.
	Resource struct {
		Path     string `json:"path,omitempty" yaml:"path,omitempty"`
		Artifact string `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	}

	// Descriptor is the in-memory form of module.xml.
	Descriptor struct {
		Name         string       `json:"name" yaml:"name"`
		Resources    []Resource   `json:"resources,omitempty" yaml:"resources,omitempty"`
		Dependencies []Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
		MainClass    string       `json:"main_class,omitempty" yaml:"main_class,omitempty"`
	}
)

// Excluded reports whether filter is an exclude entry, and returns its path.
func Excluded(filter string) (path string, exclude bool) {
	if p, ok := strings.CutPrefix(filter, "!"); ok {
		return p, true
	}
	return filter, false
}

// New returns an empty descriptor for module name.
func New(name string) *Descriptor {
	return &Descriptor{Name: name}
}

// Clone returns a deep copy of d.
func (d *Descriptor) Clone() *Descriptor {
	c := &Descriptor{
		Name:      d.Name,
		Resources: slices.Clone(d.Resources),
		MainClass: d.MainClass,
	}
	for _, dep := range d.Dependencies {
		dep.ExportFilters = slices.Clone(dep.ExportFilters)
		c.Dependencies = append(c.Dependencies, dep)
	}
	return c
}

// WithResource returns a copy of d with a bundled resource path appended.
// A path already listed is not repeated.
func (d *Descriptor) WithResource(path string) *Descriptor {
	return d.withResource(Resource{Path: path})
}

// WithArtifact returns a copy of d with an artifact coordinate reference
// appended.
func (d *Descriptor) WithArtifact(coordinate string) *Descriptor {
	return d.withResource(Resource{Artifact: coordinate})
}

func (d *Descriptor) withResource(r Resource) *Descriptor {
	c := d.Clone()
	if !slices.Contains(c.Resources, r) {
		c.Resources = append(c.Resources, r)
	}
	return c
}

// WithDependency returns a copy of d with dep appended and true, or d itself
// and false when a dependency with the same name is already present. The
// first registration of a name wins.
func (d *Descriptor) WithDependency(dep Dependency) (*Descriptor, bool) {
	if d.HasDependency(dep.Name) {
		return d, false
	}
	c := d.Clone()
	dep.ExportFilters = slices.Clone(dep.ExportFilters)
	c.Dependencies = append(c.Dependencies, dep)
	return c, true
}

// WithMainClass returns a copy of d declaring class as its entry point.
func (d *Descriptor) WithMainClass(class string) *Descriptor {
	c := d.Clone()
	c.MainClass = class
	return c
}

// HasDependency reports whether d depends on module name.
func (d *Descriptor) HasDependency(name string) bool {
	return slices.ContainsFunc(d.Dependencies, func(dep Dependency) bool {
		return dep.Name == name
	})
}

// ResourcePaths returns the bundled resource paths in order.
func (d *Descriptor) ResourcePaths() []string {
	var paths []string
	for _, r := range d.Resources {
		if r.Path != "" {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

// DependencyNames returns the dependency names in order.
func (d *Descriptor) DependencyNames() []string {
	names := make([]string, len(d.Dependencies))
	for i, dep := range d.Dependencies {
		names[i] = dep.Name
	}
	return names
}

// Validate checks the descriptor can be rendered.
func (d *Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("module descriptor: empty module name")
	}
	for _, r := range d.Resources {
		if (r.Path == "") == (r.Artifact == "") {
			return fmt.Errorf("module %s: resource must set exactly one of path or artifact", d.Name)
		}
	}
	for _, dep := range d.Dependencies {
		if strings.TrimSpace(dep.Name) == "" {
			return fmt.Errorf("module %s: dependency with empty name", d.Name)
		}
	}
	return nil
}
