// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/modsync/modsync/internal/config"
	"github.com/modsync/modsync/internal/fsutil"
	"github.com/modsync/modsync/internal/reconcile"
	"github.com/modsync/modsync/pkg/artifact"
)

// ReasonNotAllowed is the skip reason of a name outside the allow-list.
const ReasonNotAllowed = "not in the allow-list"

// runArchives reconciles the requested archives of one kind. Each selected
// source entry is staged, optionally exploded, then reconciled from the
// staging directory into the deploy directory and signalled to the runtime.
func (o *Orchestrator) runArchives(ctx context.Context, srcDir string, kind Kind, archives config.ArchiveConfig, requested []string, summary *Summary) error {
	if o.opts.DeployDir == "" {
		return fmt.Errorf("deploy directory: %w", ErrNotConfigured)
	}
	checkOnly := o.opts.Policy.CheckOnly
	if !checkOnly {
		if o.opts.StagingDir == "" {
			return fmt.Errorf("staging directory: %w", ErrNotConfigured)
		}
		if err := fsutil.CleanDir(o.opts.StagingDir); err != nil {
			return &reconcile.FilesystemError{Op: "clean", Path: o.opts.StagingDir, Err: err}
		}
	}

	source, err := artifact.Scan(srcDir, o.resolver)
	if err != nil {
		return err
	}
	deployed, err := artifact.Scan(o.opts.DeployDir, o.resolver)
	if err != nil {
		return err
	}

	names := archiveNames(kind, source, requested, archives.Names)
	if len(names) == 0 {
		slog.Warn("nothing to deploy", "kind", kind, "source", srcDir)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		query := artifact.Query{ArtifactID: name, Type: kind.String()}

		if !archives.Allows(name) {
			slog.Warn("skipping archive not in the allow-list", "kind", kind, "artifact", name)
			summary.add(Outcome{
				Kind:     kind,
				Name:     name,
				Decision: reconcile.Decision{Kind: reconcile.Skip, Query: query, Reason: ReasonNotAllowed},
			})
			continue
		}

		if checkOnly {
			d, err := o.engine.Decide(query, source, deployed, o.opts.Policy)
			if err != nil {
				return fmt.Errorf("%s %s: %w", kind, name, err)
			}
			if d.Changes() {
				slog.Info("archive is deployable", "kind", kind, "artifact", artifact.Raws(d.New), "decision", d.Kind)
			}
			summary.add(Outcome{Kind: kind, Name: name, Decision: d})
			continue
		}

		out, err := o.deployArchive(query, source, deployed)
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind, name, err)
		}
		summary.add(out)
		deployed = deployed.Without(out.Decision.Old...)
	}
	return nil
}

func (o *Orchestrator) deployArchive(query artifact.Query, source, deployed *artifact.Index) (Outcome, error) {
	out := Outcome{Kind: Kind(query.Type), Name: query.ArtifactID}

	candidates, err := reconcile.Candidates(query, source)
	if err != nil {
		return out, err
	}
	staged, err := o.stage(candidates, source.Dir)
	if err != nil {
		return out, err
	}

	d, eff, err := o.engine.Reconcile(query, staged, deployed, o.opts.Policy)
	out.Decision, out.Effect = d, eff
	if err != nil || !d.Changes() {
		return out, err
	}

	for _, n := range d.New {
		if err := o.opts.Runtime.Signal(o.opts.DeployDir, n.Raw); err != nil {
			return out, &reconcile.FilesystemError{Op: "signal", Path: filepath.Join(o.opts.DeployDir, n.Raw), Err: err}
		}
	}
	slog.Info("deployed archive", "artifact", artifact.Raws(d.New), "decision", d.Kind, "runtime", o.opts.Runtime.Name())
	return out, nil
}

// stage copies names from srcDir into the staging directory. Archive files
// are unzipped into a directory of the same name when Explode is set.
func (o *Orchestrator) stage(names []artifact.Name, srcDir string) (*artifact.Index, error) {
	for _, n := range names {
		src := filepath.Join(srcDir, n.Raw)
		dst := filepath.Join(o.opts.StagingDir, n.Raw)
		if err := fsutil.Remove(dst); err != nil {
			return nil, &reconcile.FilesystemError{Op: "delete", Path: dst, Err: err}
		}

		info, err := os.Stat(src)
		if err != nil {
			return nil, &reconcile.FilesystemError{Op: "stat", Path: src, Err: err}
		}
		if o.opts.Explode && info.Mode().IsRegular() {
			slog.Debug("exploding archive", "archive", n.Raw, "dir", o.opts.StagingDir)
			err = fsutil.Unzip(src, dst)
		} else {
			err = fsutil.Copy(src, dst)
		}
		if err != nil {
			return nil, &reconcile.FilesystemError{Op: "stage", Path: src, Err: err}
		}
	}
	return artifact.NewIndex(o.opts.StagingDir, names...), nil
}

// archiveNames returns the artifact ids a run processes: the requested
// names, else the configured ones, else every id of kind in the source.
func archiveNames(kind Kind, source *artifact.Index, requested, configured []string) []string {
	names := slices.Clone(requested)
	if len(names) == 0 {
		names = slices.Clone(configured)
	}
	if len(names) == 0 {
		for _, n := range source.Query(artifact.Query{Type: kind.String()}) {
			names = append(names, n.ArtifactID)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}
