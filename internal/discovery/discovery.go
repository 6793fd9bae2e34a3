// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/envinline/envinline/internal/config"
)

const (
	// ModeAuto picks manifest, functions or scan mode from what is configured.
	ModeAuto Mode = "auto"
	// ModeScan walks the target directory.
	ModeScan Mode = "scan"
	// ModeFunctions lists the functions directory.
	ModeFunctions Mode = "functions"
	// ModeManifest reads a function manifest.
	ModeManifest Mode = "manifest"
)

var (
	// ErrInvalidMode is returned when a Mode value is not recognized.
	ErrInvalidMode = errors.New("invalid discovery mode")
	// ErrNoFunctionsDir is returned when functions mode runs without a
	// configured functions directory.
	ErrNoFunctionsDir = errors.New("no functions directory configured")
	// ErrNoManifest is returned when manifest mode runs without a manifest path.
	ErrNoManifest = errors.New("no function manifest configured")
)

type (
	// Mode selects how function files are found.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	// It wraps ErrInvalidMode for errors.Is() compatibility.
	InvalidModeError struct {
		Value Mode
	}

	// Discovery resolves the set of files to inline for one run.
	Discovery struct {
		settings config.DiscoveryConfig
		baseDir  string
	}

	// Option customizes a Discovery.
	Option func(*Discovery)

	// Selection is the outcome of Resolve.
	Selection struct {
		// Mode is the mode that produced the selection (never ModeAuto).
		Mode Mode
		// Root is the scanned directory, functions directory or manifest path.
		Root string
		// Files are the de-duplicated source paths.
		Files []string
		// Diagnostics are non-fatal observations made while selecting.
		Diagnostics []Diagnostic
	}
)

// New creates a Discovery from the discovery section of cfg. A nil cfg uses
// the defaults. Relative paths resolve against the base directory, which
// defaults to the working directory.
func New(cfg *config.Config, opts ...Option) *Discovery {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	d := &Discovery{settings: cfg.Discovery}
	for _, opt := range opts {
		opt(d)
	}
	if d.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			d.baseDir = wd
		}
	}
	return d
}

// WithBaseDir sets the directory relative paths resolve against.
func WithBaseDir(dir string) Option {
	return func(d *Discovery) { d.baseDir = dir }
}

// WithMode forces a mode. An empty value keeps the configured one.
func WithMode(m Mode) Option {
	return func(d *Discovery) {
		if m != "" {
			d.settings.Mode = string(m)
		}
	}
}

// WithTargetDir overrides the directory scanned in scan mode.
func WithTargetDir(dir string) Option {
	return func(d *Discovery) {
		if dir != "" {
			d.settings.TargetDir = dir
		}
	}
}

// WithFunctionsDir overrides the functions directory.
func WithFunctionsDir(dir string) Option {
	return func(d *Discovery) {
		if dir != "" {
			d.settings.FunctionsDir = dir
		}
	}
}

// WithManifest overrides the manifest path.
func WithManifest(path string) Option {
	return func(d *Discovery) {
		if path != "" {
			d.settings.Manifest = path
		}
	}
}

// Mode returns the mode Resolve will use. In auto mode a manifest wins over a
// functions directory, which wins over scanning the target directory.
func (d *Discovery) Mode() Mode {
	if m := Mode(d.settings.Mode); m != "" && m != ModeAuto {
		return m
	}
	switch {
	case d.settings.Manifest != "":
		return ModeManifest
	case d.settings.FunctionsDir != "":
		return ModeFunctions
	default:
		return ModeScan
	}
}

// Resolve selects the files for this run. Any enumeration failure is returned
// as a *DiscoveryError.
func (d *Discovery) Resolve(ctx context.Context) (Selection, error) {
	if err := ctx.Err(); err != nil {
		return Selection{Mode: d.Mode()}, fmt.Errorf("resolve function files canceled: %w", err)
	}

	mode := d.Mode()
	if valid, errs := mode.IsValid(); !valid {
		return Selection{Mode: mode}, &DiscoveryError{Op: "select mode", Path: d.baseDir, Err: errs[0]}
	}

	switch mode {
	case ModeScan:
		root := d.abs(d.settings.TargetDir)
		files, err := Scan(root, ScanOptions{
			Extensions:   d.settings.Extensions,
			ExcludedDirs: d.settings.ExcludedDirs,
			Ignore:       d.settings.Ignore,
		})
		if err != nil {
			return Selection{Mode: mode, Root: root}, err
		}
		return Selection{Mode: mode, Root: root, Files: files}, nil

	case ModeFunctions:
		if d.settings.FunctionsDir == "" {
			return Selection{Mode: mode}, &DiscoveryError{Op: "list functions", Path: d.baseDir, Err: ErrNoFunctionsDir}
		}
		root := d.abs(d.settings.FunctionsDir)
		descs, diags, err := ListFunctions(root)
		if err != nil {
			return Selection{Mode: mode, Root: root}, err
		}
		files, filterDiags := FilterFunctions(descs, d.eligibility())
		return Selection{Mode: mode, Root: root, Files: files, Diagnostics: append(diags, filterDiags...)}, nil

	default: // ModeManifest
		if d.settings.Manifest == "" {
			return Selection{Mode: mode}, &DiscoveryError{Op: "load manifest", Path: d.baseDir, Err: ErrNoManifest}
		}
		root := d.abs(d.settings.Manifest)
		descs, err := LoadManifest(root)
		if err != nil {
			return Selection{Mode: mode, Root: root}, err
		}
		files, diags := FilterFunctions(descs, d.eligibility())
		return Selection{Mode: mode, Root: root, Files: files, Diagnostics: diags}, nil
	}
}

// Root returns the directory a watcher should observe for the current mode.
func (d *Discovery) Root() string {
	switch d.Mode() {
	case ModeFunctions:
		return d.abs(d.settings.FunctionsDir)
	case ModeManifest:
		return filepath.Dir(d.abs(d.settings.Manifest))
	default:
		return d.abs(d.settings.TargetDir)
	}
}

func (d *Discovery) eligibility() Eligibility {
	return Eligibility{
		Runtime:       d.settings.Runtime,
		Extensions:    d.settings.Extensions,
		DependencyDir: d.settings.DependencyDir,
	}
}

func (d *Discovery) abs(path string) string {
	if filepath.IsAbs(path) || d.baseDir == "" {
		return path
	}
	return filepath.Join(d.baseDir, path)
}

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// IsValid returns whether the Mode is one of the defined modes,
// and a list of validation errors if it is not.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModeAuto, ModeScan, ModeFunctions, ModeManifest:
		return true, nil
	default:
		return false, []error{&InvalidModeError{Value: m}}
	}
}

// Error implements the error interface for InvalidModeError.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid discovery mode %q (valid: auto, scan, functions, manifest)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error {
	return ErrInvalidMode
}
