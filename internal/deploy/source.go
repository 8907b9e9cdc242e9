// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modsync/modsync/internal/fsutil"
)

// source is the local directory a run reads artifacts from. A remote source
// is materialized into temporary directories owned by the run.
type source struct {
	dir     string
	empty   bool
	temps   []string
	cleanup bool
}

// openSource returns the local source directory, downloading the remote
// collection first when a source URL is configured.
func (o *Orchestrator) openSource(ctx context.Context) (*source, error) {
	if o.opts.SourceURL == "" {
		if o.opts.SourceDir == "" {
			return nil, fmt.Errorf("source directory: %w", ErrNotConfigured)
		}
		return &source{dir: o.opts.SourceDir}, nil
	}

	src := &source{cleanup: o.opts.Cleanup}
	if err := o.fetch(ctx, src); err != nil {
		src.close()
		return nil, err
	}
	return src, nil
}

// fetch downloads every file of the remote collection as
// <displayName>.zip and expands it into the source directory.
func (o *Orchestrator) fetch(ctx context.Context, src *source) error {
	downloads, err := src.tempDir("modsync-download-")
	if err != nil {
		return err
	}
	expanded, err := src.tempDir("modsync-expand-")
	if err != nil {
		return err
	}
	src.dir = expanded

	children, err := o.fetcher.List(ctx, o.opts.SourceURL)
	if err != nil {
		return err
	}

	fetched := 0
	for _, child := range children {
		if child.IsCollection {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Debug("fetching remote artifact", "url", child.URI)

		zipPath := filepath.Join(downloads, filepath.Base(child.DisplayName)+".zip")
		if err := o.download(ctx, child.URI, zipPath); err != nil {
			return err
		}
		if err := fsutil.Unzip(zipPath, expanded); err != nil {
			return err
		}
		fetched++
	}

	if fetched == 0 {
		slog.Warn("no files at remote source", "url", o.opts.SourceURL)
		src.empty = true
	}
	return nil
}

func (o *Orchestrator) download(ctx context.Context, url, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return o.fetcher.Download(ctx, url, f)
}

func (s *source) tempDir(pattern string) (string, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temporary directory: %w", err)
	}
	s.temps = append(s.temps, dir)
	return dir, nil
}

// close removes the temporary directories when cleanup is enabled.
// Failures are logged, not returned.
func (s *source) close() {
	if !s.cleanup {
		for _, dir := range s.temps {
			slog.Info("kept temporary directory", "dir", dir)
		}
		return
	}
	for _, dir := range s.temps {
		if err := fsutil.Remove(dir); err != nil {
			slog.Warn("failed to remove temporary directory", "dir", dir, "error", err)
		}
	}
}
