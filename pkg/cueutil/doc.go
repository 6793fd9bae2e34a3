// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates user documents against embedded CUE schemas.
//
// Both the envinline.cue settings file and JSON function manifests go
// through the same flow: compile the schema, compile the document, unify the
// document with a root definition, validate, then decode into a Go struct.
// JSON is valid CUE, so manifests need no separate parser.
//
//	//go:embed manifest_schema.cue
//	var manifestSchema []byte
//
//	result, err := cueutil.ParseAndDecode[manifestFile](
//	    manifestSchema, data, "#Manifest",
//	    cueutil.WithFilename(path),
//	)
//
// Validation failures are reported with JSON-path locations such as
// "functions[0].runtime".
package cueutil
