// SPDX-License-Identifier: MPL-2.0

// Package config loads envinline's tool configuration using Viper with CUE as
// the file format.
//
// Settings come from, in increasing precedence: built-in defaults, the user
// config file (~/.config/envinline/envinline.cue or the platform equivalent),
// the project's envinline.cue, and ENVINLINE_* environment variables such as
// ENVINLINE_DISCOVERY_TARGET_DIR. Files are validated against the embedded
// config_schema.cue before they are merged.
package config
