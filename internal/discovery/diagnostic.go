// SPDX-License-Identifier: MPL-2.0

package discovery

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"

	// CodeFunctionEntryUnrecognized marks a functions directory entry that is
	// neither a function file nor a function folder.
	CodeFunctionEntryUnrecognized = "function_entry_unrecognized"
	// CodeFunctionSkipped marks a declared function that was not eligible.
	CodeFunctionSkipped = "function_skipped"
	// CodeDuplicateSource marks a source path declared by more than one function.
	CodeDuplicateSource = "duplicate_source"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic is a non-fatal observation made while selecting files. It is
	// returned to callers rather than printed so the CLI decides how to render it.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "function_skipped").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)
