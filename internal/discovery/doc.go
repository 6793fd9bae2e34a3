// SPDX-License-Identifier: MPL-2.0

// Package discovery selects the function source files that get their
// environment references inlined.
//
// Three selection modes exist:
//   - scan: walk a build output directory and keep files by extension,
//     dropping anything under an excluded directory fragment
//   - functions: enumerate a functions directory the way the host lays out
//     functions (one file or one folder per function)
//   - manifest: read declared functions from a JSON manifest
//
// Functions and manifest modes produce FunctionDescriptors which are then
// filtered by runtime, extension and dependency-cache location and
// de-duplicated by source path.
//
// File organization:
//   - discovery.go: Discovery, Mode and Resolve
//   - discovery_files.go: directory scan (Scan, ScanDir)
//   - discovery_functions.go: functions directory listing and filtering
//   - manifest.go: manifest loading
package discovery
