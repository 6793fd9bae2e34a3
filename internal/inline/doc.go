// SPDX-License-Identifier: MPL-2.0

// Package inline rewrites environment variable references in function source
// files into literal values.
//
// The package owns three pieces:
//   - Options and Normalize: which variable names are candidates for inlining
//   - Env: an immutable snapshot of the build environment
//   - Inliner: runs a Transformer over one file and writes the result in place
//
// Source rewriting itself is delegated to a Transformer. The default engine
// lexes the file, splices literals over `process.env.NAME` reads and leaves
// every other byte as it was; esbuild then checks that the result still
// parses.
package inline
