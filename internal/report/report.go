// SPDX-License-Identifier: MPL-2.0

// Package report records the outcome of a deployment run so it can be
// printed or kept beside the deployment for later inspection.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/modsync/modsync/internal/deploy"
	"github.com/modsync/modsync/pkg/artifact"
)

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for a format other than the ones above.
var ErrUnknownFormat = errors.New("unknown report format")

type (
	// Format selects how a Report is encoded.
	Format string

	// Entry is one archive or module decision.
	Entry struct {
		Kind     string   `json:"kind" yaml:"kind" toml:"kind"`
		Name     string   `json:"name" yaml:"name" toml:"name"`
		Decision string   `json:"decision" yaml:"decision" toml:"decision"`
		Reason   string   `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
		New      []string `json:"new,omitempty" yaml:"new,omitempty" toml:"new,omitempty"`
		Old      []string `json:"old,omitempty" yaml:"old,omitempty" toml:"old,omitempty"`
		Removed  []string `json:"removed,omitempty" yaml:"removed,omitempty" toml:"removed,omitempty"`
		Copied   []string `json:"copied,omitempty" yaml:"copied,omitempty" toml:"copied,omitempty"`
		Modules  []string `json:"modules,omitempty" yaml:"modules,omitempty" toml:"modules,omitempty"`
	}

	// Report summarizes one run.
	Report struct {
		GeneratedAt time.Time `json:"generated_at" yaml:"generated_at" toml:"generated_at"`
		Kind        string    `json:"kind" yaml:"kind" toml:"kind"`
		Deployed    int       `json:"deployed" yaml:"deployed" toml:"deployed"`
		Skipped     int       `json:"skipped" yaml:"skipped" toml:"skipped"`
		Entries     []Entry   `json:"entries" yaml:"entries" toml:"entry"`
	}
)

// ParseFormat parses a format name. The empty string selects FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	case FormatText, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatForPath picks the format of a report file from its extension.
// Files without a known extension are written as TOML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// New builds a Report from s stamped with now.
func New(s *deploy.Summary, now time.Time) *Report {
	r := &Report{GeneratedAt: now.UTC().Truncate(time.Second), Entries: []Entry{}}
	if s == nil {
		return r
	}
	r.Kind = s.Kind.String()
	r.Deployed = s.Deployed
	r.Skipped = s.Skipped
	for _, o := range s.Outcomes {
		r.Entries = append(r.Entries, Entry{
			Kind:     o.Kind.String(),
			Name:     o.Name,
			Decision: o.Decision.Kind.String(),
			Reason:   o.Decision.Reason,
			New:      artifact.Raws(o.Decision.New),
			Old:      artifact.Raws(o.Decision.Old),
			Removed:  o.Effect.Removed,
			Copied:   o.Effect.Copied,
			Modules:  o.Modules,
		})
	}
	return r
}

// Encode writes r to w in format f.
func (r *Report) Encode(w io.Writer, f Format) error {
	switch f {
	case FormatText, "":
		return r.encodeText(w)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(r); err != nil {
			return fmt.Errorf("encode toml report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func (r *Report) encodeText(w io.Writer) error {
	var sb strings.Builder
	for _, e := range r.Entries {
		target := strings.Join(e.New, ", ")
		if target == "" {
			target = e.Name
		}
		fmt.Fprintf(&sb, "%-8s %-6s %s", e.Decision, e.Kind, target)
		if len(e.Old) > 0 && e.Decision == "replace" {
			fmt.Fprintf(&sb, " (was %s)", strings.Join(e.Old, ", "))
		}
		if e.Reason != "" && e.Decision == "skip" {
			fmt.Fprintf(&sb, ": %s", e.Reason)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%d deployed, %d skipped\n", r.Deployed, r.Skipped)
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteFile writes r to path in the format its extension names.
func (r *Report) WriteFile(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()
	return r.Encode(f, FormatForPath(path))
}

// ReadFile reads a report written by WriteFile.
func ReadFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	r := &Report{}
	switch FormatForPath(path) {
	case FormatJSON:
		err = json.Unmarshal(data, r)
	case FormatYAML:
		err = yaml.Unmarshal(data, r)
	default:
		err = toml.Unmarshal(data, r)
	}
	if err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return r, nil
}
