// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/envinline/envinline/internal/discovery"
	"github.com/envinline/envinline/internal/inline"
	"github.com/envinline/envinline/internal/issue"
	"github.com/envinline/envinline/internal/plugin"
)

func TestIssueFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"no functions dir", &discovery.DiscoveryError{Op: "list functions", Path: "/site", Err: discovery.ErrNoFunctionsDir}, issue.FunctionsDirMisconfiguredId},
		{"no manifest", &discovery.DiscoveryError{Op: "load manifest", Path: "/site", Err: discovery.ErrNoManifest}, issue.FunctionsDirMisconfiguredId},
		{"unreadable target", &discovery.DiscoveryError{Op: "read directory", Path: "/site/api/dist", Err: errors.New("boom")}, issue.DiscoveryFailedId},
		{"transform", fmt.Errorf("fn.js: %w", inline.ErrTransform), issue.TransformFailedId},
		{"write", fmt.Errorf("fn.js: %w", inline.ErrWrite), issue.WriteFailedId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := issueFor(tt.err)
			if got == nil {
				t.Fatalf("issueFor(%v) = nil", tt.err)
			}
			if got.Id() != tt.want {
				t.Errorf("issueFor(%v) = %d, want %d", tt.err, got.Id(), tt.want)
			}
		})
	}

	if got := issueFor(errors.New("something else")); got != nil {
		t.Errorf("unrelated error mapped to issue %d", got.Id())
	}
}

func TestReporter_ShowStatus(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	rep := newReporter(&stdout, &stderr, false, "notty")

	rep.ShowStatus("Processed 2 function file(s).")
	if err := rep.finish(plugin.Result{Outcome: plugin.Succeeded, Summary: "Processed 2 function file(s)."}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if got := strings.Count(stdout.String(), "Processed 2 function file(s)."); got != 1 {
		t.Errorf("summary printed %d times:\n%s", got, stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected stderr: %q", stderr.String())
	}
}

func TestReporter_FinishPrintsUnreportedSummary(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	rep := newReporter(&stdout, &bytes.Buffer{}, false, "notty")

	err := rep.finish(plugin.Result{Outcome: plugin.Skipped, Summary: `No handler registered for event "onEnd".`})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !strings.Contains(stdout.String(), `No handler registered for event "onEnd".`) {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestReporter_FinishFailure(t *testing.T) {
	t.Parallel()

	cause := &discovery.DiscoveryError{Op: "read directory", Path: "/site/api/dist", Err: errors.New("missing")}
	failure := &plugin.BuildFailure{Message: "Failed to read files", Cause: cause}

	t.Run("result error", func(t *testing.T) {
		t.Parallel()

		rep := newReporter(&bytes.Buffer{}, &bytes.Buffer{}, false, "notty")
		err := rep.finish(plugin.Result{Outcome: plugin.Failed, Err: failure})

		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Code != 1 {
			t.Fatalf("finish = %v, want exit code 1", err)
		}
		if !errors.Is(err, discovery.ErrDiscovery) {
			t.Errorf("cause chain lost: %v", err)
		}
	})

	t.Run("recorded failure", func(t *testing.T) {
		t.Parallel()

		rep := newReporter(&bytes.Buffer{}, &bytes.Buffer{}, false, "notty")
		rep.FailBuild("Failed to read files", cause)
		err := rep.finish(plugin.Result{Outcome: plugin.Failed})

		if err == nil || err.Error() != "Failed to read files" {
			t.Errorf("finish = %v", err)
		}
	})

	t.Run("no detail", func(t *testing.T) {
		t.Parallel()

		rep := newReporter(&bytes.Buffer{}, &bytes.Buffer{}, false, "notty")
		err := rep.finish(plugin.Result{Outcome: plugin.Failed})

		var exitErr *ExitError
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			t.Fatalf("finish = %#v, want a bare exit error", err)
		}
		if err.Error() != "exit status 1" {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}

func TestReporter_FailBuildGuide(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("fn.js: %w", inline.ErrTransform)

	var quiet bytes.Buffer
	newReporter(&bytes.Buffer{}, &quiet, false, "notty").FailBuild("Failed to inline", cause)
	if quiet.Len() != 0 {
		t.Errorf("non-verbose FailBuild wrote %q", quiet.String())
	}

	var verbose bytes.Buffer
	newReporter(&bytes.Buffer{}, &verbose, true, "notty").FailBuild("Failed to inline", cause)
	if verbose.Len() == 0 {
		t.Error("verbose FailBuild rendered nothing")
	}

	var unmapped bytes.Buffer
	newReporter(&bytes.Buffer{}, &unmapped, true, "notty").FailBuild("Failed", errors.New("other"))
	if unmapped.Len() != 0 {
		t.Errorf("unmapped cause rendered %q", unmapped.String())
	}
}
