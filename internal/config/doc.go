// SPDX-License-Identifier: MPL-2.0

// Package config loads modsync configuration with Viper, using CUE as the file
// format.
//
// The file is looked up as --config, then ./modsync.cue, then config.cue in the
// user configuration directory. It is validated against the embedded schema
// (config_schema.cue), merged over defaults, overridden by MODSYNC_* environment
// variables and finally ${property}-expanded and checked by Config.IsValid.
package config
