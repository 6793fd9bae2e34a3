// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/envinline/envinline/internal/discovery"
	"github.com/envinline/envinline/internal/inline"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	msgReadFailed     = "Failed to read files from target directory for inlining:\n"
	msgListFailed     = "Failed to list functions from the configured functions directory:\n"
	msgInlineFailed   = "Failed to inline function files due to the following error:\n"
	msgNoFunctions    = "Skipped processing because the project had no functions."
	msgProcessedFiles = "Processed %d function file(s)."
	msgNoHandler      = "No handler registered for event %q."
)

// PackageNames are the [[plugins]] package names envinline answers to.
var PackageNames = []string{"envinline", "netlify-plugin-inline-functions-env"}

type (
	// Inputs are the plugin inputs as the host passes them. Include and
	// Exclude stay loosely typed until ProcessFiles normalizes them.
	Inputs struct {
		Verbose    bool
		Include    any
		Exclude    any
		BuildEvent string
	}

	// Utils is the host capability used to report the outcome.
	Utils interface {
		// FailBuild stops the host build with message and its cause.
		FailBuild(message string, err error)
		// ShowStatus shows a one-line summary.
		ShowStatus(summary string)
	}

	// Resolver selects the files to inline.
	Resolver interface {
		Resolve(ctx context.Context) (discovery.Selection, error)
	}

	// Dependencies are the collaborators of a Plugin.
	Dependencies struct {
		// Resolver selects the files. Required.
		Resolver Resolver
		// Engine transforms sources. Defaults to the splicing engine.
		Engine inline.Transformer
		// Env is the variable snapshot taken at invocation start.
		Env inline.Env
		// Logger receives progress output. Defaults to a discarding logger.
		Logger *log.Logger
		// Concurrency bounds concurrent transforms; 0 is unbounded.
		Concurrency int
	}

	// HookFunc handles one lifecycle event.
	HookFunc func(ctx context.Context, utils Utils) Result

	// Plugin is one configured plugin instance.
	Plugin struct {
		inputs Inputs
		deps   Dependencies
	}
)

// New creates a Plugin. An empty BuildEvent selects onPreBuild.
func New(inputs Inputs, deps Dependencies) *Plugin {
	if inputs.BuildEvent == "" {
		inputs.BuildEvent = string(EventPreBuild)
	}
	if deps.Engine == nil {
		deps.Engine = inline.NewSpliceTransformer()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	return &Plugin{inputs: inputs, deps: deps}
}

// Event returns the event ProcessFiles is registered under.
func (p *Plugin) Event() Event {
	return Event(p.inputs.BuildEvent)
}

// Hooks returns the handler registry: ProcessFiles under the build event.
func (p *Plugin) Hooks() map[Event]HookFunc {
	return map[Event]HookFunc{p.Event(): p.ProcessFiles}
}

// Run dispatches event. An event without a registered hook is a no-op that
// reports Skipped without touching utils.
func (p *Plugin) Run(ctx context.Context, event Event, utils Utils) Result {
	hook, ok := p.Hooks()[event]
	if !ok {
		return Result{
			RunID:   uuid.NewString(),
			Event:   event,
			Outcome: Skipped,
			Summary: fmt.Sprintf(msgNoHandler, event),
		}
	}
	return hook(ctx, utils)
}

// ProcessFiles resolves the function files once, inlines each of them
// concurrently and reports the outcome through utils. The first failure is
// reported; files already rewritten keep their new content.
func (p *Plugin) ProcessFiles(ctx context.Context, utils Utils) Result {
	res := Result{RunID: uuid.NewString(), Event: p.Event()}
	logger := p.deps.Logger.With("run", res.RunID)
	verbose := p.inputs.Verbose

	if verbose {
		logger.Info("build env contains the following environment variables", "names", p.deps.Env.Names())
	}

	sel, err := p.deps.Resolver.Resolve(ctx)
	if err != nil {
		prefix := msgListFailed
		if sel.Mode == discovery.ModeScan {
			prefix = msgReadFailed
		}
		return p.fail(res, utils, prefix+err.Error(), err)
	}
	for _, d := range sel.Diagnostics {
		if d.Severity == discovery.SeverityError {
			logger.Warn(d.Message, "code", d.Code, "path", d.Path)
			continue
		}
		logger.Debug(d.Message, "code", d.Code, "path", d.Path)
	}

	if len(sel.Files) == 0 {
		res.Outcome = Skipped
		res.Summary = msgNoFunctions
		utils.ShowStatus(res.Summary)
		return res
	}

	opts := inline.NewOptions(p.inputs.Include, p.inputs.Exclude)
	if verbose {
		logger.Info("found function files", "mode", sel.Mode, "files", sel.Files)
		logger.Info("resolved inline options", "include", opts.Include, "exclude", opts.Exclude)
	}

	inliner := inline.NewInliner(p.deps.Engine, p.deps.Env, opts, logger, verbose)
	if skipped := inliner.Skipped(); verbose && len(skipped) > 0 {
		logger.Warn("variables with non-identifier names cannot be inlined", "names", skipped)
	}

	var (
		g         errgroup.Group
		mu        sync.Mutex
		rewritten []string
	)
	if p.deps.Concurrency > 0 {
		g.SetLimit(p.deps.Concurrency)
	}
	for _, path := range sel.Files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			changed, err := inliner.InlineFile(ctx, path)
			if changed {
				mu.Lock()
				rewritten = append(rewritten, path)
				mu.Unlock()
			}
			return err
		})
	}
	err = g.Wait()

	res.Processed = len(sel.Files)
	slices.Sort(rewritten)
	res.Rewritten = rewritten
	if err != nil {
		return p.fail(res, utils, msgInlineFailed+err.Error(), err)
	}

	res.Outcome = Succeeded
	res.Summary = fmt.Sprintf(msgProcessedFiles, res.Processed)
	logger.Debug("inlining finished", "processed", res.Processed, "rewritten", len(res.Rewritten))
	utils.ShowStatus(res.Summary)
	return res
}

func (p *Plugin) fail(res Result, utils Utils, message string, cause error) Result {
	res.Outcome = Failed
	res.Summary = message
	res.Err = &BuildFailure{Message: message, Cause: cause}
	utils.FailBuild(message, cause)
	return res
}
