// SPDX-License-Identifier: MPL-2.0

// Package plugin runs envinline as a build-lifecycle plugin. It registers
// ProcessFiles under the configured build event, resolves the function files
// once, inlines them concurrently and reports the outcome to the host through
// the Utils capability.
package plugin
