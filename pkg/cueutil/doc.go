// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles a CUE document against an embedded schema and
// decodes the result:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate and decode into a Go value
//
// # Usage
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseAndDecode[map[string]any](
//	    schema,
//	    data,
//	    "#Config",
//	    cueutil.WithFilename("modsync.cue"),
//	    cueutil.WithConcrete(false),
//	)
//
// Errors carry the file name and the JSON-style path of the offending field.
package cueutil
