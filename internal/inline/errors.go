// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransform is the sentinel matched by TransformError.
	ErrTransform = errors.New("transform failed")
	// ErrWrite is the sentinel matched by WriteError.
	ErrWrite = errors.New("write failed")
)

type (
	// TransformError is returned when a file cannot be read or the engine
	// rejects it. The file on disk is left untouched.
	TransformError struct {
		Path string
		Err  error
	}

	// WriteError is returned when the rewritten source cannot be stored.
	WriteError struct {
		Path string
		Err  error
	}

	// EngineError carries the diagnostics reported by the transformation engine.
	EngineError struct {
		Messages []string
	}
)

// Error implements the error interface.
func (e *TransformError) Error() string {
	return fmt.Sprintf("failed to transform %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransformError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransform.
func (e *TransformError) Is(target error) bool { return target == ErrTransform }

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrWrite.
func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// Error implements the error interface.
func (e *EngineError) Error() string {
	switch len(e.Messages) {
	case 0:
		return "engine reported an unknown error"
	case 1:
		return e.Messages[0]
	default:
		return fmt.Sprintf("%d errors:\n  %s", len(e.Messages), strings.Join(e.Messages, "\n  "))
	}
}
