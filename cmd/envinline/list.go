// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/envinline/envinline/internal/discovery"
	"github.com/envinline/envinline/internal/inline"
	"github.com/envinline/envinline/internal/issue"

	"github.com/spf13/cobra"
)

func newListCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &inputFlagValues{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the files and variables a run would use, without rewriting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listSelection(cmd, app, root, flags)
		},
	}
	addInputFlags(cmd, flags)

	return cmd
}

func listSelection(cmd *cobra.Command, app *App, root *rootFlagValues, flags *inputFlagValues) error {
	inv, err := app.prepare(cmd.Context(), cmd, root, flags)
	if err != nil {
		return err
	}

	sel, err := inv.discovery.Resolve(cmd.Context())
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("list function files").
			WithResource(string(sel.Mode)).
			WithSuggestions(
				"Check --mode, --target-dir, --functions-dir and --manifest",
				"Run the build that produces the function files first",
			).
			WithIssue(issue.DiscoveryFailedId).
			Wrap(err).
			BuildError()
	}

	w := app.stdout
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Mode:"), sel.Mode)
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Root:"), displayPath(inv.baseDir, sel.Root))
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Event:"), inv.plugin.Event())

	fmt.Fprintf(w, "%s\n", KeyStyle.Render(fmt.Sprintf("Files (%d):", len(sel.Files))))
	if len(sel.Files) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none)"))
	}
	for _, f := range sel.Files {
		fmt.Fprintf(w, "  %s\n", displayPath(inv.baseDir, f))
	}

	names, skipped := candidateNames(inv.env, inline.NewOptions(inv.inputs.Include, inv.inputs.Exclude))
	fmt.Fprintf(w, "%s %d candidate(s)\n", KeyStyle.Render("Variables:"), len(names))
	if inv.verbose {
		for _, name := range names {
			fmt.Fprintf(w, "  %s\n", name)
		}
		if len(skipped) > 0 {
			fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("not identifiers:"), strings.Join(skipped, ", "))
		}
	}

	renderDiagnostics(app.stderr, inv.baseDir, sel.Diagnostics)
	return nil
}

// candidateNames returns the variables a run would inline, sorted, and the
// candidates skipped because their names are not identifiers.
func candidateNames(env inline.Env, opts inline.Options) (names, skipped []string) {
	defines, skipped := opts.Defines(env)
	for _, name := range env.Names() {
		if _, ok := defines["process.env."+name]; ok {
			names = append(names, name)
		}
	}
	return names, skipped
}

// renderDiagnostics writes non-fatal selection notes with their severity.
func renderDiagnostics(w io.Writer, baseDir string, diags []discovery.Diagnostic) {
	for _, diag := range diags {
		prefix := WarningStyle.Render("warning")
		if diag.Severity == discovery.SeverityError {
			prefix = ErrorStyle.Render("error")
		}
		if diag.Path != "" {
			fmt.Fprintf(w, "%s: %s (%s)\n", prefix, diag.Message, displayPath(baseDir, diag.Path))
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", prefix, diag.Message)
	}
}

// displayPath shortens path relative to baseDir when it lies inside it.
func displayPath(baseDir, path string) string {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}
