// SPDX-License-Identifier: MPL-2.0

// Package reconcile decides whether a source artifact should be deployed,
// skipped or should replace what is already deployed, and applies that
// decision to the target directory.
package reconcile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/modsync/modsync/internal/appserver"
	"github.com/modsync/modsync/internal/fsutil"
	"github.com/modsync/modsync/pkg/artifact"
	"github.com/modsync/modsync/pkg/version"
)

// Decision kinds.
const (
	Deploy Kind = iota + 1
	Skip
	Replace
)

// Equal-version policies.
const (
	// EqualRedeploy replaces a deployed artifact of the same version, so
	// content can be updated without a version bump.
	EqualRedeploy EqualPolicy = "redeploy"
	// EqualSkip leaves a deployed artifact of the same version alone.
	EqualSkip EqualPolicy = "skip"
)

// Skip reasons.
const (
	ReasonNotLater  = "not later than deployed"
	ReasonSame      = "same version as deployed"
	ReasonIdentical = "identical to deployed"
)

type (
	// Kind is the outcome of a reconciliation.
	Kind int

	// EqualPolicy selects what happens when the source and the deployed
	// version are equal.
	EqualPolicy string

	// Policy tunes a reconciliation.
	Policy struct {
		// NoVersion replaces whatever is deployed without comparing versions.
		NoVersion bool
		// OnEqual applies when versions are equal. Empty means EqualRedeploy.
		OnEqual EqualPolicy
		// SkipIdentical turns an equal-version redeploy into a skip when the
		// deployed files have the same names and content as the source.
		SkipIdentical bool
		// Delete clears any entry with the target name before copying.
		Delete bool
		// CheckOnly decides without touching the filesystem.
		CheckOnly bool
	}

	// Decision is the result of Decide. New holds the source set; for a
	// Replace, Old holds the deployed set it supersedes.
	Decision struct {
		Kind   Kind
		Query  artifact.Query
		New    []artifact.Name
		Old    []artifact.Name
		Reason string
	}

	// Effect lists what Execute changed, as paths relative to the target.
	Effect struct {
		Removed []string
		Copied  []string
	}

	// Engine holds the collaborators a reconciliation needs.
	Engine struct {
		// Comparator orders versions. Defaults to version.Maven.
		Comparator version.Comparator
		// Runtime supplies the sentinel files removed with a deployed entry.
		// Defaults to appserver.None.
		Runtime appserver.Runtime
	}
)

func (k Kind) String() string {
	switch k {
	case Deploy:
		return "deploy"
	case Skip:
		return "skip"
	case Replace:
		return "replace"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// IsValid reports whether p is a known equal-version policy. Empty is valid.
func (p EqualPolicy) IsValid() bool {
	return p == "" || p == EqualRedeploy || p == EqualSkip
}

// Changes reports whether executing d would modify the target.
func (d Decision) Changes() bool {
	return d.Kind == Deploy || d.Kind == Replace
}

func (d Decision) String() string {
	switch d.Kind {
	case Deploy:
		return fmt.Sprintf("deploy %v", artifact.Raws(d.New))
	case Replace:
		return fmt.Sprintf("replace %v with %v (%s)", artifact.Raws(d.Old), artifact.Raws(d.New), d.Reason)
	case Skip:
		return fmt.Sprintf("skip %v: %s", artifact.Raws(d.New), d.Reason)
	default:
		return d.Kind.String()
	}
}

// New returns an Engine with default collaborators.
func New() *Engine {
	return &Engine{Comparator: version.Maven{}, Runtime: appserver.None{}}
}

func (e *Engine) comparator() version.Comparator {
	if e.Comparator == nil {
		return version.Maven{}
	}
	return e.Comparator
}

func (e *Engine) runtime() appserver.Runtime {
	if e.Runtime == nil {
		return appserver.None{}
	}
	return e.Runtime
}

// Candidates returns the source entries for desired. Several entries are
// accepted only when they share artifactId, type and version; they are then
// deployed together.
func Candidates(desired artifact.Query, source *artifact.Index) ([]artifact.Name, error) {
	found := source.Query(desired)
	if len(found) == 0 {
		return nil, &NotFoundError{Query: desired, Dir: source.Dir, Missing: !source.Present}
	}
	for _, n := range found[1:] {
		if !n.SameRelease(found[0]) {
			return nil, &AmbiguousMatchError{Query: desired, Dir: source.Dir, Candidates: artifact.Raws(found)}
		}
	}
	return found, nil
}

// Decide compares the source entries for desired with what target holds.
func (e *Engine) Decide(desired artifact.Query, source, target *artifact.Index, p Policy) (Decision, error) {
	candidates, err := Candidates(desired, source)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Query: desired, New: candidates}

	deployedQuery := desired
	deployedQuery.ArtifactID = candidates[0].ArtifactID
	deployedQuery.Type = candidates[0].Type
	deployed := target.Query(deployedQuery)
	if len(deployed) == 0 {
		d.Kind = Deploy
		return d, nil
	}
	d.Old = deployed

	if p.NoVersion {
		d.Kind = Replace
		d.Reason = "version check bypassed"
		return d, nil
	}

	versions := make([]string, len(deployed))
	for i, n := range deployed {
		versions[i] = n.Version
	}
	latest, err := version.Max(e.comparator(), versions...)
	if err != nil {
		return Decision{}, err
	}
	cmp, err := e.comparator().Compare(candidates[0].Version, latest)
	if err != nil {
		return Decision{}, err
	}

	switch {
	case cmp > 0:
		d.Kind = Replace
		d.Reason = "newer than deployed " + latest
	case cmp < 0:
		d.Kind = Skip
		d.Reason = ReasonNotLater
	case p.OnEqual == EqualSkip:
		d.Kind = Skip
		d.Reason = ReasonSame
	default:
		d.Kind = Replace
		d.Reason = "redeploy of deployed version " + latest
		if p.SkipIdentical {
			same, err := identical(candidates, source.Dir, deployed, target.Dir)
			if err != nil {
				return Decision{}, err
			}
			if same {
				d.Kind = Skip
				d.Reason = ReasonIdentical
			}
		}
	}
	return d, nil
}

// identical reports whether both sets carry the same names with the same
// content.
func identical(src []artifact.Name, srcDir string, dst []artifact.Name, dstDir string) (bool, error) {
	a, b := artifact.Raws(src), artifact.Raws(dst)
	slices.Sort(a)
	slices.Sort(b)
	if !slices.Equal(a, b) {
		return false, nil
	}
	for _, name := range a {
		same, err := fsutil.SameContent(filepath.Join(srcDir, name), filepath.Join(dstDir, name))
		if err != nil {
			return false, fsError("compare", name, err)
		}
		if !same {
			return false, nil
		}
	}
	return true, nil
}

// Execute applies d by copying from sourceDir into targetDir. For a Replace
// the superseded entries and their sentinel files are removed first, so the
// target never holds two versions of the same artifact. Skip decisions and
// CheckOnly policies change nothing.
func (e *Engine) Execute(d Decision, sourceDir, targetDir string, p Policy) (Effect, error) {
	var eff Effect
	if p.CheckOnly || !d.Changes() {
		return eff, nil
	}

	rt := e.runtime()
	if d.Kind == Replace {
		for _, old := range d.Old {
			if err := fsutil.Remove(filepath.Join(targetDir, old.Raw)); err != nil {
				return eff, fsError("delete", old.Raw, err)
			}
			eff.Removed = append(eff.Removed, old.Raw)
			removed, err := appserver.Cleanup(targetDir, old.Raw, rt)
			eff.Removed = append(eff.Removed, removed...)
			if err != nil {
				return eff, fsError("delete", old.Raw, err)
			}
		}
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return eff, fsError("mkdir", targetDir, err)
	}
	for _, n := range d.New {
		dst := filepath.Join(targetDir, n.Raw)
		removed, err := appserver.Cleanup(targetDir, n.Raw, rt)
		eff.Removed = append(eff.Removed, removed...)
		if err != nil {
			return eff, fsError("delete", n.Raw, err)
		}
		if p.Delete {
			if err := fsutil.Remove(dst); err != nil {
				return eff, fsError("delete", dst, err)
			}
		}
		if err := fsutil.Copy(filepath.Join(sourceDir, n.Raw), dst); err != nil {
			return eff, fsError("copy", n.Raw, err)
		}
		eff.Copied = append(eff.Copied, n.Raw)
	}
	return eff, nil
}

// Reconcile decides and executes in one step. Skips are logged at info level.
func (e *Engine) Reconcile(desired artifact.Query, source, target *artifact.Index, p Policy) (Decision, Effect, error) {
	d, err := e.Decide(desired, source, target, p)
	if err != nil {
		return Decision{}, Effect{}, err
	}
	if d.Kind == Skip {
		slog.Info("skipping artifact", "artifact", artifact.Raws(d.New), "reason", d.Reason, "target", target.Dir)
		return d, Effect{}, nil
	}
	slog.Debug("reconciled artifact", "decision", d.Kind, "new", artifact.Raws(d.New), "old", artifact.Raws(d.Old))

	eff, err := e.Execute(d, source.Dir, target.Dir, p)
	if err != nil {
		return d, eff, err
	}
	return d, eff, nil
}
