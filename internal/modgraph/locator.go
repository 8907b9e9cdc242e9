// SPDX-License-Identifier: MPL-2.0

package modgraph

import (
	"fmt"

	"github.com/modsync/modsync/pkg/artifact"
	"github.com/modsync/modsync/pkg/fspath"
	"github.com/modsync/modsync/pkg/types"
)

type (
	// Locator finds the directory offering a jar and indexes it.
	Locator interface {
		Index(spec JarSpec, r *artifact.Resolver) (*artifact.Index, error)
	}

	// FlatDir offers the jars of a single directory, restricted to the
	// spec's version when one is pinned.
	FlatDir struct {
		Dir string
	}

	// MavenRepository offers jars from a local Maven repository laid out as
	// <root>/<group path>/<artifactId>/<version>. Specs need a group id and
	// a version.
	MavenRepository struct {
		Root string
	}

	// Chain consults each locator in turn and returns the first index holding
	// a match at the pinned version, if any. When none matches, the first
	// index is returned so the caller reports the miss against it.
	Chain []Locator
)

// Index implements Locator.
func (f FlatDir) Index(spec JarSpec, r *artifact.Resolver) (*artifact.Index, error) {
	idx, err := artifact.Scan(f.Dir, r)
	if err != nil {
		return nil, err
	}
	return idx.AtVersion(spec.Version), nil
}

// Index implements Locator.
func (m MavenRepository) Index(spec JarSpec, r *artifact.Resolver) (*artifact.Index, error) {
	if spec.GroupID == "" || spec.Version == "" {
		return &artifact.Index{Dir: m.Root}, nil
	}
	dir := fspath.RepositoryDir(types.FilesystemPath(m.Root), spec.GroupID, spec.Query.ArtifactID, spec.Version)
	if spec.Query.ArtifactID == "" {
		return artifact.Scan(dir.String(), r)
	}
	return artifact.ScanFor(dir.String(), spec.Query.ArtifactID, r)
}

// Index implements Locator.
func (c Chain) Index(spec JarSpec, r *artifact.Resolver) (*artifact.Index, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("no artifact locations configured for %s", spec)
	}
	var first *artifact.Index
	for _, l := range c {
		idx, err := l.Index(spec, r)
		if err != nil {
			return nil, err
		}
		idx = idx.AtVersion(spec.Version)
		if len(idx.Query(spec.Query)) > 0 {
			return idx, nil
		}
		if first == nil {
			first = idx
		}
	}
	return first, nil
}
