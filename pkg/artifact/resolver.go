// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"slices"
	"strings"
)

// DefaultMarkers is the classifier-marker list used by DefaultResolver.
// Order matters: the first marker found past position zero decides where the
// version region ends.
var DefaultMarkers = []string{
	"-SNAPSHOT.",
	"-GA.",
	"-javadoc.",
	"-jre.",
	"-jakarta.",
	"-sources.",
	"-tests.",
	".0-1.",
	"-min.",
}

// Resolver splits filenames into Names. The zero value has no markers and
// splits on the last dash.
//
// A Resolver is not safe for concurrent use while markers are being added.
type Resolver struct {
	markers []string
}

// NewResolver returns a Resolver using markers in the given order.
// Duplicates and empty strings are dropped.
func NewResolver(markers ...string) *Resolver {
	r := &Resolver{}
	for _, m := range markers {
		r.AddMarker(m)
	}
	return r
}

// DefaultResolver returns a Resolver seeded with DefaultMarkers.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultMarkers...)
}

// AddMarker appends m to the marker list unless already present.
func (r *Resolver) AddMarker(m string) {
	if m == "" || slices.Contains(r.markers, m) {
		return
	}
	r.markers = append(r.markers, m)
}

// Markers returns a copy of the marker list.
func (r *Resolver) Markers() []string {
	return slices.Clone(r.markers)
}

// Resolve guesses the artifact id of raw and splits it.
//
// The first marker (in list order) that occurs after position zero bounds the
// search: the artifact id ends at the last dash before that marker. Without a
// marker the last dash in raw is used. The final dot must follow that dash.
// Inside the version region the last dash, if any, separates a trailing
// classifier.
func (r *Resolver) Resolve(raw string) (Name, error) {
	markerPos := -1
	for _, m := range r.markers {
		if p := strings.Index(raw, m); p > 0 {
			markerPos = p
			break
		}
	}

	var dash int
	if markerPos > 0 {
		dash = strings.LastIndex(raw[:markerPos], "-")
	} else {
		dash = strings.LastIndex(raw, "-")
	}
	if dash < 0 {
		return Name{}, &ParseError{Raw: raw, Reason: "no version separator"}
	}
	if dash == 0 {
		return Name{}, &ParseError{Raw: raw, Reason: "empty artifact id"}
	}
	if strings.LastIndex(raw, ".") <= dash {
		return Name{}, &ParseError{Raw: raw, Reason: "no type extension after version"}
	}

	return split(raw, raw[:dash])
}

// ResolveFor splits raw for a known artifactID. raw must start with
// artifactID followed by a dash and must carry a type extension after it.
func (r *Resolver) ResolveFor(raw, artifactID string) (Name, error) {
	if artifactID == "" {
		return Name{}, &ParseError{Raw: raw, Reason: "empty artifact id"}
	}
	if !strings.HasPrefix(raw, artifactID+"-") {
		return Name{}, &ParseError{Raw: raw, Reason: "does not start with " + artifactID + "-"}
	}
	if strings.LastIndex(raw, ".") <= len(artifactID) {
		return Name{}, &ParseError{Raw: raw, Reason: "no type extension after version"}
	}
	return split(raw, artifactID)
}

// split parses the "version[-classifier].type" remainder after artifactID.
func split(raw, artifactID string) (Name, error) {
	rest := raw[len(artifactID)+1:]
	dot := strings.LastIndex(rest, ".")

	typ := rest[dot+1:]
	region := rest[:dot]
	if typ == "" {
		return Name{}, &ParseError{Raw: raw, Reason: "empty type extension"}
	}

	ver, classifier := region, ""
	if i := strings.LastIndex(region, "-"); i >= 0 {
		ver, classifier = region[:i], region[i+1:]
		if classifier == "" {
			return Name{}, &ParseError{Raw: raw, Reason: "empty classifier"}
		}
	}
	if ver == "" {
		return Name{}, &ParseError{Raw: raw, Reason: "empty version"}
	}

	return Name{
		Raw:        raw,
		ArtifactID: artifactID,
		Classifier: classifier,
		Version:    ver,
		Type:       typ,
	}, nil
}
