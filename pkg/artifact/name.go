// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
)

// DefaultType is the type assumed when none is given.
const DefaultType = "jar"

// TestsClassifier marks test jars, which never satisfy a runtime dependency.
const TestsClassifier = "tests"

// ErrUnparseable is the sentinel wrapped by ParseError.
var ErrUnparseable = errors.New("unparseable artifact name")

type (
	// Name is the structured identity of a versioned filename.
	//
	// Raw always equals ArtifactID + "-" + Version + ["-" + Classifier] + "." + Type.
	// Names are values; nothing mutates them after construction.
	Name struct {
		Raw        string `json:"raw" yaml:"raw" toml:"raw"`
		ArtifactID string `json:"artifact_id" yaml:"artifact_id" toml:"artifact_id"`
		Classifier string `json:"classifier,omitempty" yaml:"classifier,omitempty" toml:"classifier,omitempty"`
		Version    string `json:"version" yaml:"version" toml:"version"`
		Type       string `json:"type" yaml:"type" toml:"type"`
	}

	// ParseError reports a filename that does not split into
	// artifactId, version and type.
	ParseError struct {
		Raw    string
		Reason string
	}
)

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot split %q: %s", e.Raw, e.Reason)
}

// Unwrap returns ErrUnparseable for errors.Is compatibility.
func (e *ParseError) Unwrap() error { return ErrUnparseable }

// FromCoordinates builds a Name from its parts. An empty typ means "jar".
func FromCoordinates(artifactID, version, classifier, typ string) (Name, error) {
	if typ == "" {
		typ = DefaultType
	}
	raw := artifactID + "-" + version
	if classifier != "" {
		raw += "-" + classifier
	}
	raw += "." + typ

	switch {
	case artifactID == "":
		return Name{}, &ParseError{Raw: raw, Reason: "empty artifact id"}
	case version == "":
		return Name{}, &ParseError{Raw: raw, Reason: "empty version"}
	case strings.ContainsAny(typ, "./\\") || strings.ContainsAny(artifactID+version+classifier, "/\\"):
		return Name{}, &ParseError{Raw: raw, Reason: "coordinates contain path separators"}
	}

	return Name{
		Raw:        raw,
		ArtifactID: artifactID,
		Classifier: classifier,
		Version:    version,
		Type:       typ,
	}, nil
}

// String returns the raw filename.
func (n Name) String() string { return n.Raw }

// IsZero reports whether n is the zero Name.
func (n Name) IsZero() bool { return n.Raw == "" }

// IsTests reports whether n is a test jar.
func (n Name) IsTests() bool { return n.Classifier == TestsClassifier }

// SameAs reports whether n and other identify the same artifact, ignoring
// version and classifier.
func (n Name) SameAs(other Name) bool {
	return n.ArtifactID == other.ArtifactID && n.Type == other.Type
}

// SameRelease reports whether n and other share artifactId, type and version.
// Such names differ only by classifier and are deployed together.
func (n Name) SameRelease(other Name) bool {
	return n.SameAs(other) && n.Version == other.Version
}

// Compare orders names by artifactId, type, version and classifier using plain
// string comparison. It gives listings a stable order and says nothing about
// which version is later.
func (n Name) Compare(other Name) int {
	return cmp.Or(
		strings.Compare(n.ArtifactID, other.ArtifactID),
		strings.Compare(n.Type, other.Type),
		strings.Compare(n.Version, other.Version),
		strings.Compare(n.Classifier, other.Classifier),
	)
}

// Raws returns the raw filenames of names.
func Raws(names []Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.Raw
	}
	return out
}
