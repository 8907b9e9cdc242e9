// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the user configuration directory when set.
var configDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	configDirOverride = ""
}

// SetConfigDirOverride makes ConfigDir return dir. Intended for tests, where
// the platform user config directory must not be touched.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
