// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/envinline/envinline/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	configPath string
	projectDir string
	verbose    bool
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "envinline",
		Short: "Inline environment variables into serverless function files",
		Long: TitleStyle.Render("envinline") + SubtitleStyle.Render(" - inline environment variables into function files") + `

envinline rewrites process.env.NAME references in a project's function
files into the literal values of the build environment, so the deployed
functions no longer depend on variables being present at runtime.

Files are found by scanning the build output directory (api/dist by default),
by listing a functions directory, or by reading a function manifest.
Settings come from envinline.cue, the envinline entry of netlify.toml
and command-line flags, later sources winning.

` + SubtitleStyle.Render("Examples:") + `
  envinline run                       Inline into the default file set
  envinline run --include API_URL     Inline a single variable
  envinline list                      Show which files would be rewritten
  envinline watch                     Re-run whenever the build output changes
  envinline config init               Write a default envinline.cue`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: user config dir, then ./envinline.cue)")
	rootCmd.PersistentFlags().StringVarP(&flags.projectDir, "dir", "C", "", "project directory (default: working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newRunCommand(app, flags))
	rootCmd.AddCommand(newListCommand(app, flags))
	rootCmd.AddCommand(newWatchCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Main runs the CLI and returns the process exit code.
func Main() int {
	app := NewApp(Dependencies{})
	err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Execute runs the CLI and exits the process. It is called by main.main.
func Execute() {
	os.Exit(Main())
}

// formatErrorForDisplay uses the suggestions of an ActionableError when err
// carries one. In verbose mode the cause chain is included.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && (ae.HasSuggestions() || verbose) {
		return ae.Format(verbose)
	}
	return err.Error()
}
