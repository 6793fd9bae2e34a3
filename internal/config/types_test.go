// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestColorScheme_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme ColorScheme
		want   bool
	}{
		{ColorSchemeAuto, true},
		{ColorSchemeDark, true},
		{ColorSchemeLight, true},
		{"", false},
		{"DARK", false},
		{"solarized", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.scheme), func(t *testing.T) {
			t.Parallel()
			isValid, errs := tt.scheme.IsValid()
			if isValid != tt.want {
				t.Errorf("ColorScheme(%q).IsValid() = %v, want %v", tt.scheme, isValid, tt.want)
			}
			if !tt.want {
				if len(errs) == 0 || !errors.Is(errs[0], ErrInvalidColorScheme) {
					t.Errorf("expected ErrInvalidColorScheme, got %v", errs)
				}
			} else if len(errs) > 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Inline.BuildEvent != "onPreBuild" {
		t.Errorf("BuildEvent = %q, want onPreBuild", cfg.Inline.BuildEvent)
	}
	if cfg.Inline.Include != nil {
		t.Errorf("Include should be nil (all variables), got %v", cfg.Inline.Include)
	}
	if cfg.Inline.Concurrency != 0 {
		t.Errorf("Concurrency = %d, want 0", cfg.Inline.Concurrency)
	}
	if cfg.Discovery.TargetDir != "api/dist" {
		t.Errorf("TargetDir = %q, want api/dist", cfg.Discovery.TargetDir)
	}
	if len(cfg.Discovery.Extensions) != 1 || cfg.Discovery.Extensions[0] != ".js" {
		t.Errorf("Extensions = %v, want [.js]", cfg.Discovery.Extensions)
	}
	if len(cfg.Discovery.ExcludedDirs) != 1 || cfg.Discovery.ExcludedDirs[0] != "node_modules" {
		t.Errorf("ExcludedDirs = %v, want [node_modules]", cfg.Discovery.ExcludedDirs)
	}
	if cfg.Discovery.Mode != "auto" || cfg.Discovery.Runtime != "js" || cfg.Discovery.DependencyDir != "node_modules" {
		t.Errorf("unexpected discovery defaults: %+v", cfg.Discovery)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("default config should be valid, got %v", errs)
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"negative concurrency", func(c *Config) { c.Inline.Concurrency = -1 }, ErrInvalidConcurrency},
		{"blank target dir", func(c *Config) { c.Discovery.TargetDir = "  " }, ErrInvalidDiscoveryConfig},
		{"extension without dot", func(c *Config) { c.Discovery.Extensions = []string{"js"} }, ErrInvalidDiscoveryConfig},
		{"bad color scheme", func(c *Config) { c.UI.ColorScheme = "neon" }, ErrInvalidColorScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			valid, errs := cfg.IsValid()
			if valid || len(errs) != 1 {
				t.Fatalf("IsValid() = %v, %v; want one error", valid, errs)
			}
			if !errors.Is(errs[0], ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig, got %v", errs[0])
			}

			var cfgErr *InvalidConfigError
			if !errors.As(errs[0], &cfgErr) {
				t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
			}
			if !errors.Is(cfgErr.FieldErrors[0], tt.wantErr) {
				t.Errorf("field error should wrap %v, got %v", tt.wantErr, cfgErr.FieldErrors[0])
			}
		})
	}
}
