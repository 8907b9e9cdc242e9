// SPDX-License-Identifier: MPL-2.0

package modgraph

import (
	"fmt"

	"github.com/modsync/modsync/pkg/artifact"
	"github.com/modsync/modsync/pkg/moduledesc"
	"github.com/modsync/modsync/pkg/types"
)

type (
	// JarSpec declares a jar and the module it is deployed into. The same
	// record serves the primary artifact of a module, a jar dependency with
	// its own module and a jar resource bundled into the declaring module.
	JarSpec struct {
		// ModuleName is the module the jar lives in. Unused for jar resources.
		ModuleName types.ModuleName `json:"module_name,omitempty" yaml:"module_name,omitempty"`
		GroupID    string           `json:"group_id,omitempty" yaml:"group_id,omitempty"`
		// Query selects the jar among the files the locator offers.
		Query artifact.Query `json:"query" yaml:"query"`
		// Version pins the repository version. Optional for flat sources.
		Version string `json:"version,omitempty" yaml:"version,omitempty"`

		Export        bool     `json:"export,omitempty" yaml:"export,omitempty"`
		ExportFilters []string `json:"export_filters,omitempty" yaml:"export_filters,omitempty"`
		ImportMeta    bool     `json:"import_meta,omitempty" yaml:"import_meta,omitempty"`

		// Dependencies are jars this jar needs, each in its own module.
		Dependencies []JarSpec `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
		// ModuleDependencies are extra dependencies of this jar's module.
		ModuleDependencies []moduledesc.Dependency `json:"module_dependencies,omitempty" yaml:"module_dependencies,omitempty"`
	}

	// ModuleSpec declares one module to build.
	ModuleSpec struct {
		Name types.ModuleName `json:"name" yaml:"name"`
		// Primary is the module's own artifact; nil for a module without one.
		Primary *JarSpec `json:"primary,omitempty" yaml:"primary,omitempty"`
		// Jars are jar dependencies, each deployed into its own module.
		Jars []JarSpec `json:"jars,omitempty" yaml:"jars,omitempty"`
		// Resources are jars bundled into this module's directory.
		Resources          []JarSpec               `json:"resources,omitempty" yaml:"resources,omitempty"`
		ModuleDependencies []moduledesc.Dependency `json:"module_dependencies,omitempty" yaml:"module_dependencies,omitempty"`
		MainClass          string                  `json:"main_class,omitempty" yaml:"main_class,omitempty"`
	}
)

// Dependency returns the dependency entry a dependent module records for j.
func (j JarSpec) Dependency() moduledesc.Dependency {
	return moduledesc.Dependency{
		Name:          j.ModuleName.String(),
		Export:        j.Export,
		ExportFilters: j.ExportFilters,
		ImportMeta:    j.ImportMeta,
	}
}

// Module returns the module built for a jar dependency: the jar itself as
// primary artifact plus the jar's own dependencies.
func (j JarSpec) Module() ModuleSpec {
	primary := j
	primary.Dependencies = nil
	primary.ModuleDependencies = nil
	return ModuleSpec{
		Name:               j.ModuleName,
		Primary:            &primary,
		Jars:               j.Dependencies,
		ModuleDependencies: j.ModuleDependencies,
	}
}

// Coordinate renders the repository coordinate of j for a resolved version:
// group:artifact:version[:classifier].
func (j JarSpec) Coordinate(version string) string {
	c := fmt.Sprintf("%s:%s:%s", j.GroupID, j.Query.ArtifactID, version)
	if j.Query.Classifier != "" {
		c += ":" + j.Query.Classifier
	}
	return c
}

func (j JarSpec) String() string {
	if j.GroupID != "" {
		return j.GroupID + ":" + j.Query.String()
	}
	return j.Query.String()
}
