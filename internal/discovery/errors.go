// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
)

// ErrDiscovery is the sentinel matched by DiscoveryError.
var ErrDiscovery = errors.New("discovery failed")

// DiscoveryError is returned when function files cannot be enumerated. It is
// always fatal for the run: no partial selection accompanies it.
type DiscoveryError struct {
	// Op is the step that failed (e.g., "read directory", "list functions").
	Op string
	// Path is the directory or file involved.
	Path string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DiscoveryError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDiscovery.
func (e *DiscoveryError) Is(target error) bool { return target == ErrDiscovery }
