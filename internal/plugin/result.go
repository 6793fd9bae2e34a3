// SPDX-License-Identifier: MPL-2.0

package plugin

const (
	// Skipped means there was nothing to do.
	Skipped Outcome = iota
	// Succeeded means every selected file was processed.
	Succeeded
	// Failed means the build was failed through Utils.FailBuild.
	Failed
)

type (
	// Outcome is the terminal state of one hook invocation.
	Outcome int

	// Result describes one hook invocation.
	Result struct {
		// RunID correlates the log lines of one invocation.
		RunID string
		// Event is the lifecycle event that was dispatched.
		Event Event
		// Outcome is the terminal state.
		Outcome Outcome
		// Processed is the number of files handed to the inliner.
		Processed int
		// Rewritten lists the files whose content changed, sorted.
		Rewritten []string
		// Summary is the status line shown to the host.
		Summary string
		// Err is set when Outcome is Failed.
		Err *BuildFailure
	}

	// BuildFailure is the message and cause passed to Utils.FailBuild.
	BuildFailure struct {
		Message string
		Cause   error
	}
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Error returns the failure message.
func (f *BuildFailure) Error() string { return f.Message }

// Unwrap returns the underlying cause.
func (f *BuildFailure) Unwrap() error { return f.Cause }
