// SPDX-License-Identifier: MPL-2.0

package hostconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/envinline/envinline/internal/issue"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the host configuration file looked up in the project root.
const FileName = "netlify.toml"

type (
	// File is the subset of netlify.toml envinline reads.
	File struct {
		Build     BuildSection     `toml:"build"`
		Functions FunctionsSection `toml:"functions"`
		Plugins   []Plugin         `toml:"plugins"`
	}

	// BuildSection is the [build] table.
	BuildSection struct {
		Base    string `toml:"base"`
		Publish string `toml:"publish"`
		Command string `toml:"command"`
		// Functions is the legacy location of the functions directory.
		Functions   string            `toml:"functions"`
		Environment map[string]string `toml:"environment"`
	}

	// FunctionsSection is the [functions] table. Per-function sub-tables are
	// ignored.
	FunctionsSection struct {
		Directory string `toml:"directory"`
	}

	// Plugin is one [[plugins]] entry.
	Plugin struct {
		Package string         `toml:"package"`
		Inputs  map[string]any `toml:"inputs"`
	}
)

// Load reads netlify.toml from dir. A missing file is not an error: it
// returns an empty File and found == false.
func Load(dir string) (file *File, found bool, err error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &File{}, false, nil
	}
	if err != nil {
		return nil, false, invalidError(path, err)
	}

	file, err = Parse(data)
	if err != nil {
		return nil, true, invalidError(path, err)
	}
	return file, true, nil
}

// Parse decodes netlify.toml content.
func Parse(data []byte) (*File, error) {
	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, err
	}
	return &file, nil
}

func invalidError(path string, err error) error {
	return issue.NewErrorContext().
		WithOperation("read host configuration").
		WithResource(path).
		WithSuggestion("Validate the TOML syntax of " + FileName).
		WithIssue(issue.HostConfigInvalidId).
		Wrap(err).
		BuildError()
}

// FunctionsDir returns [functions] directory, falling back to the legacy
// [build] functions key. A relative directory is joined onto [build] base.
// It returns "" when neither key is set.
func (f *File) FunctionsDir() string {
	dir := f.Functions.Directory
	if dir == "" {
		dir = f.Build.Functions
	}
	if dir == "" || f.Build.Base == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(f.Build.Base, dir)
}

// Environment returns the [build.environment] variables.
func (f *File) Environment() map[string]string {
	return f.Build.Environment
}

// Plugin returns the first [[plugins]] entry whose package is one of names.
func (f *File) Plugin(names ...string) (Plugin, bool) {
	for _, p := range f.Plugins {
		for _, name := range names {
			if strings.TrimSpace(p.Package) == name {
				return p, true
			}
		}
	}
	return Plugin{}, false
}

// Input returns the raw value of an input.
func (p Plugin) Input(name string) (any, bool) {
	v, ok := p.Inputs[name]
	return v, ok
}

// BoolInput returns a boolean input. Non-boolean values are reported as unset.
func (p Plugin) BoolInput(name string) (value, ok bool) {
	v, ok := p.Inputs[name].(bool)
	return v, ok
}

// StringInput returns a string input. Non-string values are reported as unset.
func (p Plugin) StringInput(name string) (string, bool) {
	v, ok := p.Inputs[name].(string)
	return v, ok
}
