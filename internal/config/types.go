// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultBuildEvent is the lifecycle event the inliner runs on.
	DefaultBuildEvent = "onPreBuild"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConcurrency is returned for a negative concurrency limit.
	ErrInvalidConcurrency = errors.New("invalid concurrency")
	// ErrInvalidDiscoveryConfig is the sentinel error wrapped by InvalidDiscoveryConfigError.
	ErrInvalidDiscoveryConfig = errors.New("invalid discovery config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidDiscoveryConfigError collects field-level discovery errors.
	InvalidDiscoveryConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the tool configuration.
	Config struct {
		// Inline configures which variables are inlined and when.
		Inline InlineConfig `json:"inline" mapstructure:"inline"`
		// Discovery configures how function files are found.
		Discovery DiscoveryConfig `json:"discovery" mapstructure:"discovery"`
		// UI configures terminal output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// InlineConfig configures the inliner.
	InlineConfig struct {
		// BuildEvent is the lifecycle event that triggers inlining.
		BuildEvent string `json:"build_event" mapstructure:"build_event"`
		// Include lists the variables to inline. Nil means all; empty means none.
		Include []string `json:"include" mapstructure:"include"`
		// Exclude lists variables that are never inlined.
		Exclude []string `json:"exclude" mapstructure:"exclude"`
		// Concurrency bounds concurrent file transforms; 0 is unbounded.
		Concurrency int `json:"concurrency" mapstructure:"concurrency"`
	}

	// DiscoveryConfig configures file selection.
	DiscoveryConfig struct {
		// Mode is auto, scan, functions or manifest.
		Mode string `json:"mode" mapstructure:"mode"`
		// TargetDir is the directory scanned in scan mode.
		TargetDir string `json:"target_dir" mapstructure:"target_dir"`
		// FunctionsDir is the functions directory listed in functions mode.
		FunctionsDir string `json:"functions_dir" mapstructure:"functions_dir"`
		// Manifest is the function manifest read in manifest mode.
		Manifest string `json:"manifest" mapstructure:"manifest"`
		// Extensions is the allow-list of file extensions.
		Extensions []string `json:"extensions" mapstructure:"extensions"`
		// ExcludedDirs are path fragments whose files are never selected in scan mode.
		ExcludedDirs []string `json:"excluded_dirs" mapstructure:"excluded_dirs"`
		// Ignore holds doublestar patterns, relative to the scan root, to skip.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
		// DependencyDir is the dependency cache folder dropped from listings.
		DependencyDir string `json:"dependency_dir" mapstructure:"dependency_dir"`
		// Runtime is the function runtime to inline.
		Runtime string `json:"runtime" mapstructure:"runtime"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		// ColorScheme sets the color scheme.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Inline: InlineConfig{
			BuildEvent: DefaultBuildEvent,
		},
		Discovery: DiscoveryConfig{
			Mode:          "auto",
			TargetDir:     "api/dist",
			Extensions:    []string{".js"},
			ExcludedDirs:  []string{"node_modules"},
			DependencyDir: "node_modules",
			Runtime:       "js",
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// IsValid returns whether the Config has valid fields. The CUE schema covers
// files; this covers values set through flags and environment variables.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if c.Inline.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("%w: %d (must be >= 0)", ErrInvalidConcurrency, c.Inline.Concurrency))
	}
	if valid, fieldErrs := c.Discovery.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// IsValid returns whether the DiscoveryConfig has valid fields.
func (c DiscoveryConfig) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.TargetDir) == "" {
		errs = append(errs, errors.New("target_dir must be non-empty"))
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidDiscoveryConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDiscoveryConfigError.
func (e *InvalidDiscoveryConfigError) Error() string {
	return fmt.Sprintf("invalid discovery config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidDiscoveryConfig followed by the field errors.
func (e *InvalidDiscoveryConfigError) Unwrap() []error {
	return append([]error{ErrInvalidDiscoveryConfig}, e.FieldErrors...)
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so
// errors.Is matches both the section sentinel and the specific cause.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined schemes,
// and a list of validation errors if it is not.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }
