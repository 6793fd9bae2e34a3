// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	// RuntimeJS tags functions written in JavaScript or TypeScript.
	RuntimeJS = "js"
	// RuntimeGo tags Go functions.
	RuntimeGo = "go"
	// RuntimeRust tags Rust functions.
	RuntimeRust = "rs"
)

// jsExtensions are the entry point extensions recognised for JS functions,
// in lookup order.
var jsExtensions = []string{".js", ".mjs", ".cjs", ".ts", ".mts", ".cts"}

// FunctionDescriptor is one declared function.
type FunctionDescriptor struct {
	// Name is the function name (file or folder name without extension).
	Name string `json:"name"`
	// Runtime is the runtime tag ("js", "go", "rs").
	Runtime string `json:"runtime"`
	// Extension is the entry point extension including the dot.
	Extension string `json:"extension"`
	// SrcFile is the path to the entry point source file.
	SrcFile string `json:"srcFile"`
}

// ListFunctions enumerates the functions in dir. Each top-level file with a
// JS extension is a function; each top-level folder is a function whose entry
// point is <name>/<name>.<ext> or <name>/index.<ext>, or a Go or Rust
// function when it holds main.go/go.mod or Cargo.toml. Entries that match
// none of these produce a warning diagnostic.
func ListFunctions(dir string) ([]FunctionDescriptor, []Diagnostic, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, &DiscoveryError{Op: "list functions", Path: dir, Err: err}
	}

	var (
		descs []FunctionDescriptor
		diags []Diagnostic
	)
	for _, entry := range entries {
		name := entry.Name()
		fullPath := filepath.Join(dir, name)

		if entry.IsDir() {
			if d, ok := functionInDir(fullPath, name); ok {
				descs = append(descs, d)
				continue
			}
		} else if entry.Type().IsRegular() {
			ext := filepath.Ext(name)
			if slices.Contains(jsExtensions, ext) {
				descs = append(descs, FunctionDescriptor{
					Name:      strings.TrimSuffix(name, ext),
					Runtime:   RuntimeJS,
					Extension: ext,
					SrcFile:   fullPath,
				})
				continue
			}
		}

		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeFunctionEntryUnrecognized,
			Message:  fmt.Sprintf("ignoring %q: not a recognised function entry", name),
			Path:     fullPath,
		})
	}
	return descs, diags, nil
}

// functionInDir resolves the entry point of a function folder.
func functionInDir(dir, name string) (FunctionDescriptor, bool) {
	for _, base := range []string{name, "index"} {
		for _, ext := range jsExtensions {
			candidate := filepath.Join(dir, base+ext)
			if isFile(candidate) {
				return FunctionDescriptor{Name: name, Runtime: RuntimeJS, Extension: ext, SrcFile: candidate}, true
			}
		}
	}

	if isFile(filepath.Join(dir, "go.mod")) || isFile(filepath.Join(dir, "main.go")) {
		return FunctionDescriptor{Name: name, Runtime: RuntimeGo, Extension: ".go", SrcFile: filepath.Join(dir, "main.go")}, true
	}
	if isFile(filepath.Join(dir, "Cargo.toml")) {
		return FunctionDescriptor{Name: name, Runtime: RuntimeRust, Extension: ".rs", SrcFile: filepath.Join(dir, "src", "main.rs")}, true
	}
	return FunctionDescriptor{}, false
}

// Eligibility describes which declared functions are inlined.
type Eligibility struct {
	// Runtime is the runtime tag to keep.
	Runtime string
	// Extensions is the allow-list of entry point extensions.
	Extensions []string
	// DependencyDir is the dependency cache folder name; sources that
	// traverse it are dropped.
	DependencyDir string
}

// IsEligible reports whether d is a function of the target runtime with an
// allowed extension whose source does not live in the dependency cache.
func (e Eligibility) IsEligible(d FunctionDescriptor) bool {
	if d.Runtime != e.Runtime || !slices.Contains(e.Extensions, d.Extension) {
		return false
	}
	if e.DependencyDir == "" {
		return true
	}
	segment := "/" + e.DependencyDir + "/"
	return !strings.Contains(filepath.ToSlash(d.SrcFile), segment)
}

// FilterFunctions keeps the eligible descriptors and returns their source
// paths, de-duplicated in first-seen order. Dropped and duplicate entries are
// reported as diagnostics.
func FilterFunctions(descs []FunctionDescriptor, e Eligibility) ([]string, []Diagnostic) {
	var (
		paths []string
		diags []Diagnostic
	)
	for _, d := range descs {
		if !e.IsEligible(d) {
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeFunctionSkipped,
				Message:  fmt.Sprintf("skipping function %q (runtime %q, extension %q)", d.Name, d.Runtime, d.Extension),
				Path:     d.SrcFile,
			})
			continue
		}
		paths = append(paths, d.SrcFile)
	}

	unique := Uniq(paths)
	if len(unique) != len(paths) {
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeDuplicateSource,
			Message:  fmt.Sprintf("%d function(s) share a source file with another function", len(paths)-len(unique)),
		})
	}
	return unique, diags
}

// Uniq returns items without duplicates, keeping the first occurrence of each.
func Uniq(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
