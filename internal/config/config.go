// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/envinline/envinline/internal/issue"
	"github.com/envinline/envinline/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "envinline"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "envinline"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variable overrides (ENVINLINE_UI_VERBOSE).
	EnvPrefix = "ENVINLINE"
)

// ErrConfigExists is returned by CreateDefaultConfig when the file is present.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the user-level envinline configuration directory using
// platform conventions: %APPDATA% on Windows, ~/Library/Application Support
// on macOS and $XDG_CONFIG_HOME (defaulting to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FileName returns "envinline.cue".
func FileName() string {
	return ConfigFileName + "." + ConfigFileExt
}

// loadWithOptions layers defaults, the user config file, the project config
// file and ENVINLINE_* variables. It returns the last file merged, or "" when
// only defaults and the environment applied.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, "", err
	}

	v := newViper()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'envinline config init' to create a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", configLoadError(opts.ConfigFilePath, err)
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		for _, candidate := range candidatePaths(opts) {
			if !fileExists(candidate) {
				continue
			}
			if err := loadCUEIntoViper(v, candidate); err != nil {
				return nil, "", configLoadError(candidate, err)
			}
			resolvedPath = candidate
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check ENVINLINE_* environment variables for typos").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("inline.build_event", defaults.Inline.BuildEvent)
	v.SetDefault("inline.concurrency", defaults.Inline.Concurrency)
	v.SetDefault("discovery.mode", defaults.Discovery.Mode)
	v.SetDefault("discovery.target_dir", defaults.Discovery.TargetDir)
	v.SetDefault("discovery.functions_dir", defaults.Discovery.FunctionsDir)
	v.SetDefault("discovery.manifest", defaults.Discovery.Manifest)
	v.SetDefault("discovery.extensions", defaults.Discovery.Extensions)
	v.SetDefault("discovery.excluded_dirs", defaults.Discovery.ExcludedDirs)
	v.SetDefault("discovery.dependency_dir", defaults.Discovery.DependencyDir)
	v.SetDefault("discovery.runtime", defaults.Discovery.Runtime)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without a default are invisible to AutomaticEnv; a nil include
	// list must stay nil unless something sets it.
	for _, key := range []string{"inline.include", "inline.exclude", "discovery.ignore"} {
		_ = v.BindEnv(key)
	}
	return v
}

// candidatePaths lists the files merged in order: user-level first so the
// project file wins.
func candidatePaths(opts LoadOptions) []string {
	var paths []string
	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		if dir, err := ConfigDir(); err == nil {
			cfgDir = dir
		}
	}
	if cfgDir != "" {
		paths = append(paths, filepath.Join(cfgDir, FileName()))
	}
	paths = append(paths, filepath.Join(opts.BaseDir, FileName()))
	return paths
}

func configLoadError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithSuggestion("Check that the file contains valid CUE syntax").
		WithSuggestion("Compare with the output of 'envinline config show'").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// Fields are optional, so validation is non-concrete and the result is
// decoded to a map for Viper rather than to Config.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	parsed, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithConcrete(false),
		cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*parsed.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to path. An existing
// file is only replaced when force is set.
func CreateDefaultConfig(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as an envinline.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// envinline configuration file\n")
	sb.WriteString("// Fields left out keep their defaults. ENVINLINE_* variables override them.\n\n")

	sb.WriteString("inline: {\n")
	fmt.Fprintf(&sb, "\tbuild_event: %q\n", cfg.Inline.BuildEvent)
	if cfg.Inline.Include != nil {
		fmt.Fprintf(&sb, "\tinclude: %s\n", cueList(cfg.Inline.Include))
	} else {
		sb.WriteString("\t// include: [\"API_URL\"]\n")
	}
	if len(cfg.Inline.Exclude) > 0 {
		fmt.Fprintf(&sb, "\texclude: %s\n", cueList(cfg.Inline.Exclude))
	}
	fmt.Fprintf(&sb, "\tconcurrency: %d\n", cfg.Inline.Concurrency)
	sb.WriteString("}\n")

	d := cfg.Discovery
	sb.WriteString("\ndiscovery: {\n")
	fmt.Fprintf(&sb, "\tmode: %q\n", d.Mode)
	fmt.Fprintf(&sb, "\ttarget_dir: %q\n", d.TargetDir)
	if d.FunctionsDir != "" {
		fmt.Fprintf(&sb, "\tfunctions_dir: %q\n", d.FunctionsDir)
	}
	if d.Manifest != "" {
		fmt.Fprintf(&sb, "\tmanifest: %q\n", d.Manifest)
	}
	fmt.Fprintf(&sb, "\textensions: %s\n", cueList(d.Extensions))
	fmt.Fprintf(&sb, "\texcluded_dirs: %s\n", cueList(d.ExcludedDirs))
	if len(d.Ignore) > 0 {
		fmt.Fprintf(&sb, "\tignore: %s\n", cueList(d.Ignore))
	}
	fmt.Fprintf(&sb, "\tdependency_dir: %q\n", d.DependencyDir)
	fmt.Fprintf(&sb, "\truntime: %q\n", d.Runtime)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
