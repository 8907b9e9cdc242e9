// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
)

type (
	// Query filters Names. Empty ArtifactID and Classifier match anything;
	// an empty Type matches "jar". Unless a Classifier is given or
	// IncludeTests is set, names classified "tests" are excluded.
	Query struct {
		ArtifactID   string `json:"artifact_id,omitempty" yaml:"artifact_id,omitempty" toml:"artifact_id,omitempty"`
		Classifier   string `json:"classifier,omitempty" yaml:"classifier,omitempty" toml:"classifier,omitempty"`
		Type         string `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
		IncludeTests bool   `json:"include_tests,omitempty" yaml:"include_tests,omitempty" toml:"include_tests,omitempty"`
	}

	// Index is the result of scanning one directory.
	Index struct {
		// Dir is the scanned directory.
		Dir string
		// Present is false when Dir did not exist at scan time.
		Present bool
		// Names holds every entry that resolved, sorted by Name.Compare.
		Names []Name
		// Unparsed lists entries that did not resolve.
		Unparsed []string
	}
)

// EffectiveType returns the type the query matches.
func (q Query) EffectiveType() string {
	if q.Type == "" {
		return DefaultType
	}
	return q.Type
}

// Matches reports whether n satisfies q.
func (q Query) Matches(n Name) bool {
	if q.ArtifactID != "" && n.ArtifactID != q.ArtifactID {
		return false
	}
	if n.Type != q.EffectiveType() {
		return false
	}
	if q.Classifier != "" {
		return n.Classifier == q.Classifier
	}
	return q.IncludeTests || !n.IsTests()
}

func (q Query) String() string {
	s := q.ArtifactID
	if s == "" {
		s = "*"
	}
	if q.Classifier != "" {
		s += ":" + q.Classifier
	}
	return s + "." + q.EffectiveType()
}

// Scan resolves every entry directly inside dir with r. Both files and
// directories are considered, since deployed archives may be exploded.
// A missing dir yields an Index with Present false and no error.
func Scan(dir string, r *Resolver) (*Index, error) {
	return scan(dir, r.Resolve)
}

// ScanFor is like Scan but only keeps entries named for artifactID, using
// the explicit identity instead of guessing. Entries for other artifacts are
// neither in Names nor in Unparsed.
func ScanFor(dir, artifactID string, r *Resolver) (*Index, error) {
	idx, err := scan(dir, func(raw string) (Name, error) {
		return r.ResolveFor(raw, artifactID)
	})
	if err != nil {
		return nil, err
	}
	idx.Unparsed = nil
	return idx, nil
}

func scan(dir string, resolve func(string) (Name, error)) (*Index, error) {
	idx := &Index{Dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return idx, nil
		}
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	idx.Present = true

	for _, e := range entries {
		n, err := resolve(e.Name())
		if err != nil {
			idx.Unparsed = append(idx.Unparsed, e.Name())
			continue
		}
		idx.Names = append(idx.Names, n)
	}
	slices.SortFunc(idx.Names, Name.Compare)

	if len(idx.Unparsed) > 0 {
		slog.Debug("ignored unversioned entries", "dir", dir, "entries", idx.Unparsed)
	}
	return idx, nil
}

// NewIndex builds an in-memory Index, mostly for callers that already hold
// the names.
func NewIndex(dir string, names ...Name) *Index {
	sorted := slices.Clone(names)
	slices.SortFunc(sorted, Name.Compare)
	return &Index{Dir: dir, Present: true, Names: sorted}
}

// Query returns the names matching q, in index order.
func (idx *Index) Query(q Query) []Name {
	var out []Name
	for _, n := range idx.Names {
		if q.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}

// All returns every resolved name.
func (idx *Index) All() []Name {
	return slices.Clone(idx.Names)
}

// Len returns the number of resolved names.
func (idx *Index) Len() int {
	return len(idx.Names)
}

// Lookup returns the name with the given raw filename.
func (idx *Index) Lookup(raw string) (Name, bool) {
	for _, n := range idx.Names {
		if n.Raw == raw {
			return n, true
		}
	}
	return Name{}, false
}

// Without returns a copy of idx with the given names removed.
func (idx *Index) Without(names ...Name) *Index {
	out := &Index{Dir: idx.Dir, Present: idx.Present, Unparsed: slices.Clone(idx.Unparsed)}
	for _, n := range idx.Names {
		if !slices.Contains(names, n) {
			out.Names = append(out.Names, n)
		}
	}
	return out
}

// AtVersion returns a copy of idx holding only the names at version v. An
// empty v returns idx itself.
func (idx *Index) AtVersion(v string) *Index {
	if v == "" {
		return idx
	}
	out := &Index{Dir: idx.Dir, Present: idx.Present, Unparsed: slices.Clone(idx.Unparsed)}
	for _, n := range idx.Names {
		if n.Version == v {
			out.Names = append(out.Names, n)
		}
	}
	return out
}
