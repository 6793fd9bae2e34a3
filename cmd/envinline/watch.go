// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/envinline/envinline/internal/discovery"
	"github.com/envinline/envinline/internal/plugin"
	"github.com/envinline/envinline/internal/watch"

	"github.com/spf13/cobra"
)

type watchFlagValues struct {
	inputFlagValues
	debounce time.Duration
}

func newWatchCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &watchFlagValues{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Inline once, then again whenever function files change",
		Long: `Run the inliner once, then watch the selection root (the target
directory, the functions directory or the manifest's directory) and run it
again after files stop changing. Files the inliner rewrote itself do not
trigger another run. Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return watchAndInline(cmd, app, root, flags)
		},
	}
	addInputFlags(cmd, &flags.inputFlagValues)
	cmd.Flags().DurationVar(&flags.debounce, "debounce", watch.DefaultDebounce, "quiet period before re-running")

	return cmd
}

func watchAndInline(cmd *cobra.Command, app *App, root *rootFlagValues, flags *watchFlagValues) error {
	inv, err := app.prepare(cmd.Context(), cmd, root, &flags.inputFlagValues)
	if err != nil {
		return err
	}

	runOnce := func(ctx context.Context) ([]string, error) {
		rep := newReporter(app.stdout, app.stderr, inv.verbose, inv.colorScheme)
		res := inv.plugin.Run(ctx, inv.plugin.Event(), rep)
		if res.Outcome == plugin.Failed && res.Err != nil {
			return res.Rewritten, res.Err
		}
		return res.Rewritten, nil
	}

	if _, err := runOnce(cmd.Context()); err != nil {
		fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("!"), formatErrorForDisplay(err, inv.verbose))
	}

	patterns := make([]string, 0, len(inv.cfg.Discovery.Extensions))
	for _, ext := range inv.cfg.Discovery.Extensions {
		patterns = append(patterns, "**/*"+ext)
	}
	if inv.discovery.Mode() != discovery.ModeScan {
		// Listings and manifests can change the selection without touching
		// a source file.
		patterns = append(patterns, "**/*.json")
	}

	w, err := watch.New(watch.Config{
		Root:     inv.discovery.Root(),
		Patterns: patterns,
		Ignore:   inv.cfg.Discovery.Ignore,
		Debounce: flags.debounce,
		Logger:   inv.logger,
		OnChange: func(ctx context.Context, _ []string) ([]string, error) {
			return runOnce(ctx)
		},
	})
	if err != nil {
		return err
	}

	inv.logger.Info("watching for changes", "root", displayPath(inv.baseDir, w.Root()))
	return w.Run(cmd.Context())
}
