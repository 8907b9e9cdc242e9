// SPDX-License-Identifier: MPL-2.0

// Package artifact turns flat versioned filenames such as "app-2.1.0.ear" or
// "jackson-core-2.17.0-sources.jar" into structured identities and indexes the
// contents of a directory by those identities.
//
// Filenames carry no explicit separator between the artifact id and the
// version, so the Resolver guesses the boundary from an ordered list of
// classifier markers ("-SNAPSHOT.", "-sources.", ...) and falls back to the
// last dash. When the caller already knows the artifact id, ResolveFor skips
// the guessing entirely.
package artifact
