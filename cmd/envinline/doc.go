// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the envinline command-line interface.
//
// The root command carries the project directory and configuration flags;
// run, list and watch resolve the same invocation (tool configuration,
// netlify.toml and flags layered in that order) and differ only in what
// they do with it.
package cmd
