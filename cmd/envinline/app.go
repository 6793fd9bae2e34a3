// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/envinline/envinline/internal/config"
	"github.com/envinline/envinline/internal/discovery"
	"github.com/envinline/envinline/internal/hostconfig"
	"github.com/envinline/envinline/internal/inline"
	"github.com/envinline/envinline/internal/issue"
	"github.com/envinline/envinline/internal/plugin"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type (
	// App wires the services shared by all commands. Handlers receive it
	// instead of reaching for package-level state.
	App struct {
		Config  config.Provider
		Engine  inline.Transformer
		Environ func() []string
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies are the injection points of NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config  config.Provider
		Engine  inline.Transformer
		Environ func() []string
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// inputFlagValues are the flags that shape one invocation. They are
	// shared by run, list and watch.
	inputFlagValues struct {
		buildEvent   string
		include      []string
		exclude      []string
		mode         string
		targetDir    string
		functionsDir string
		manifest     string
	}

	// invocation is everything a command needs after all configuration
	// sources have been layered.
	invocation struct {
		baseDir     string
		cfg         *config.Config
		hostFound   bool
		discovery   *discovery.Discovery
		plugin      *plugin.Plugin
		inputs      plugin.Inputs
		env         inline.Env
		logger      *log.Logger
		verbose     bool
		colorScheme string
	}
)

// NewApp creates an App, filling omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Engine == nil {
		deps.Engine = inline.NewSpliceTransformer()
	}
	if deps.Environ == nil {
		deps.Environ = os.Environ
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		Config:  deps.Config,
		Engine:  deps.Engine,
		Environ: deps.Environ,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// addInputFlags registers the invocation flags on cmd.
func addInputFlags(cmd *cobra.Command, flags *inputFlagValues) {
	cmd.Flags().StringVar(&flags.buildEvent, "build-event", "", "lifecycle event the inliner is registered on (default onPreBuild)")
	cmd.Flags().StringSliceVar(&flags.include, "include", nil, "only inline these variables (repeatable)")
	cmd.Flags().StringSliceVar(&flags.exclude, "exclude", nil, "never inline these variables (repeatable)")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "file selection: auto, scan, functions or manifest")
	cmd.Flags().StringVar(&flags.targetDir, "target-dir", "", "directory scanned in scan mode (default api/dist)")
	cmd.Flags().StringVar(&flags.functionsDir, "functions-dir", "", "functions directory listed in functions mode")
	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "function manifest read in manifest mode")
}

// prepare layers defaults, envinline.cue, netlify.toml and flags, then
// builds the discovery and plugin for one command.
func (a *App) prepare(ctx context.Context, cmd *cobra.Command, root *rootFlagValues, flags *inputFlagValues) (*invocation, error) {
	baseDir, err := resolveProjectDir(root.projectDir)
	if err != nil {
		return nil, err
	}

	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: root.configPath, BaseDir: baseDir})
	if err != nil {
		return nil, err
	}

	host, hostFound, err := hostconfig.Load(baseDir)
	if err != nil {
		return nil, err
	}
	entry, _ := host.Plugin(plugin.PackageNames...)

	inputs := plugin.Inputs{BuildEvent: cfg.Inline.BuildEvent}
	if cfg.Inline.Include != nil {
		inputs.Include = cfg.Inline.Include
	}
	if cfg.Inline.Exclude != nil {
		inputs.Exclude = cfg.Inline.Exclude
	}
	if v, ok := entry.StringInput("buildEvent"); ok && v != "" {
		inputs.BuildEvent = v
	}
	if v, ok := entry.Input("include"); ok {
		inputs.Include = v
	}
	if v, ok := entry.Input("exclude"); ok {
		inputs.Exclude = v
	}
	if cmd.Flags().Changed("build-event") {
		inputs.BuildEvent = flags.buildEvent
	}
	if cmd.Flags().Changed("include") {
		inputs.Include = flags.include
	}
	if cmd.Flags().Changed("exclude") {
		inputs.Exclude = flags.exclude
	}

	hostVerbose, _ := entry.BoolInput("verbose")
	inputs.Verbose = root.verbose || hostVerbose || cfg.UI.Verbose

	if inputs.BuildEvent != "" {
		if err := validateEvent(plugin.Event(inputs.BuildEvent)); err != nil {
			return nil, err
		}
	}
	if flags.mode != "" {
		if valid, errs := discovery.Mode(flags.mode).IsValid(); !valid {
			return nil, fmt.Errorf("--mode: %w", errs[0])
		}
	}

	disc := discovery.New(cfg,
		discovery.WithBaseDir(baseDir),
		discovery.WithFunctionsDir(host.FunctionsDir()),
		discovery.WithMode(discovery.Mode(flags.mode)),
		discovery.WithTargetDir(flags.targetDir),
		discovery.WithFunctionsDir(flags.functionsDir),
		discovery.WithManifest(flags.manifest),
	)

	logger := newLogger(a.stderr, inputs.Verbose)
	env := inline.NewEnv(a.Environ()).WithDefaults(host.Environment())

	return &invocation{
		baseDir:   baseDir,
		cfg:       cfg,
		hostFound: hostFound,
		discovery: disc,
		plugin: plugin.New(inputs, plugin.Dependencies{
			Resolver:    disc,
			Engine:      a.Engine,
			Env:         env,
			Logger:      logger,
			Concurrency: cfg.Inline.Concurrency,
		}),
		inputs:      inputs,
		env:         env,
		logger:      logger,
		verbose:     inputs.Verbose,
		colorScheme: string(cfg.UI.ColorScheme),
	}, nil
}

// newLogger returns the stderr logger used for progress output.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

func validateEvent(event plugin.Event) error {
	if valid, errs := event.IsValid(); !valid {
		names := make([]string, 0, len(plugin.Events()))
		for _, e := range plugin.Events() {
			names = append(names, e.String())
		}
		return issue.NewErrorContext().
			WithOperation("select build event").
			WithResource(event.String()).
			WithSuggestion("Use one of: " + strings.Join(names, ", ")).
			WithIssue(issue.UnknownBuildEventId).
			Wrap(errs[0]).
			BuildError()
	}
	return nil
}

func resolveProjectDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", issue.WrapWithContext(err, "open project directory", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project directory %s is not a directory", abs)
	}
	return abs, nil
}
