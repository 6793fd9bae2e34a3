// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/envinline/envinline/internal/plugin"

	"github.com/spf13/cobra"
)

type runFlagValues struct {
	inputFlagValues
	event string
}

func newRunCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &runFlagValues{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Inline environment variables into the selected function files",
		Long: `Dispatch a build lifecycle event to the inliner.

The inliner is registered on one event (onPreBuild unless configured
otherwise). Dispatching any other event does nothing. By default run
dispatches the registered event, so the files are rewritten.

Exit status is 1 when the build fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInline(cmd, app, root, flags)
		},
	}

	addInputFlags(cmd, &flags.inputFlagValues)
	cmd.Flags().StringVar(&flags.event, "event", "", "lifecycle event to dispatch (default: the registered build event)")

	return cmd
}

func runInline(cmd *cobra.Command, app *App, root *rootFlagValues, flags *runFlagValues) error {
	ctx := cmd.Context()
	inv, err := app.prepare(ctx, cmd, root, &flags.inputFlagValues)
	if err != nil {
		return err
	}

	event := inv.plugin.Event()
	if flags.event != "" {
		event = plugin.Event(flags.event)
		if err := validateEvent(event); err != nil {
			return err
		}
	}

	rep := newReporter(app.stdout, app.stderr, inv.verbose, inv.colorScheme)
	return rep.finish(inv.plugin.Run(ctx, event, rep))
}
