// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/envinline/envinline/internal/discovery"
	"github.com/envinline/envinline/internal/inline"
	"github.com/envinline/envinline/internal/issue"
	"github.com/envinline/envinline/internal/plugin"
)

// reporter is the terminal implementation of plugin.Utils. Status lines go
// to stdout. The failure message itself is returned to fang, which prints
// it; in verbose mode the matching issue guide is rendered first.
type reporter struct {
	stdout      io.Writer
	stderr      io.Writer
	verbose     bool
	colorScheme string

	statuses int
	failure  *plugin.BuildFailure
}

var _ plugin.Utils = (*reporter)(nil)

func newReporter(stdout, stderr io.Writer, verbose bool, colorScheme string) *reporter {
	return &reporter{stdout: stdout, stderr: stderr, verbose: verbose, colorScheme: colorScheme}
}

// ShowStatus prints the run summary.
func (r *reporter) ShowStatus(summary string) {
	r.statuses++
	fmt.Fprintf(r.stdout, "%s %s\n", SuccessStyle.Render("✓"), summary)
}

// FailBuild records the failure. Nothing is printed outside verbose mode.
func (r *reporter) FailBuild(message string, err error) {
	r.failure = &plugin.BuildFailure{Message: message, Cause: err}
	if !r.verbose {
		return
	}
	guide := issueFor(err)
	if guide == nil {
		return
	}
	rendered, renderErr := guide.Render(r.colorScheme)
	if renderErr != nil {
		fmt.Fprintf(r.stderr, "%s render issue guide: %v\n", WarningStyle.Render("!"), renderErr)
		return
	}
	fmt.Fprint(r.stderr, rendered)
}

// finish turns a hook result into the command's return value. A result that
// never reached ShowStatus (an event without a hook) still gets its summary
// printed.
func (r *reporter) finish(res plugin.Result) error {
	if res.Outcome == plugin.Failed {
		switch {
		case res.Err != nil:
			return &ExitError{Code: 1, Err: res.Err}
		case r.failure != nil:
			return &ExitError{Code: 1, Err: r.failure}
		default:
			return &ExitError{Code: 1}
		}
	}
	if r.statuses == 0 && res.Summary != "" {
		fmt.Fprintf(r.stdout, "%s %s\n", SubtitleStyle.Render("-"), res.Summary)
	}
	return nil
}

// issueFor maps a failure cause to the catalog entry explaining it.
func issueFor(err error) *issue.Issue {
	switch {
	case errors.Is(err, discovery.ErrNoFunctionsDir), errors.Is(err, discovery.ErrNoManifest):
		return issue.Get(issue.FunctionsDirMisconfiguredId)
	case errors.Is(err, discovery.ErrDiscovery):
		return issue.Get(issue.DiscoveryFailedId)
	case errors.Is(err, inline.ErrTransform):
		return issue.Get(issue.TransformFailedId)
	case errors.Is(err, inline.ErrWrite):
		return issue.Get(issue.WriteFailedId)
	default:
		return nil
	}
}
