// SPDX-License-Identifier: MPL-2.0

// Package hostconfig reads the host build's netlify.toml: the functions
// directory, build environment variables and the inputs given to envinline's
// plugin entry.
package hostconfig
