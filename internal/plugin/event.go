// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"errors"
	"fmt"
)

const (
	// EventPreBuild runs before the build command. It is the default.
	EventPreBuild Event = "onPreBuild"
	// EventBuild runs after the build command.
	EventBuild Event = "onBuild"
	// EventPostBuild runs after functions are bundled.
	EventPostBuild Event = "onPostBuild"
	// EventSuccess runs after a successful deploy.
	EventSuccess Event = "onSuccess"
	// EventError runs when the build fails.
	EventError Event = "onError"
	// EventEnd runs last, whatever the outcome.
	EventEnd Event = "onEnd"
)

// ErrUnknownEvent is returned when an Event value is not a lifecycle event.
var ErrUnknownEvent = errors.New("unknown build event")

type (
	// Event is a build lifecycle event name.
	Event string

	// UnknownEventError is returned when an Event value is not recognized.
	// It wraps ErrUnknownEvent for errors.Is() compatibility.
	UnknownEventError struct {
		Value Event
	}
)

// Events returns the lifecycle events in the order the host runs them.
func Events() []Event {
	return []Event{EventPreBuild, EventBuild, EventPostBuild, EventSuccess, EventError, EventEnd}
}

// String returns the string representation of the Event.
func (e Event) String() string { return string(e) }

// IsValid returns whether the Event is a lifecycle event,
// and a list of validation errors if it is not.
func (e Event) IsValid() (bool, []error) {
	for _, known := range Events() {
		if e == known {
			return true, nil
		}
	}
	return false, []error{&UnknownEventError{Value: e}}
}

// Error implements the error interface for UnknownEventError.
func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown build event %q (valid: onPreBuild, onBuild, onPostBuild, onSuccess, onError, onEnd)", e.Value)
}

// Unwrap returns ErrUnknownEvent for errors.Is() compatibility.
func (e *UnknownEventError) Unwrap() error { return ErrUnknownEvent }
