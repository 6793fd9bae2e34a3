// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ScanOptions controls a directory scan.
type ScanOptions struct {
	// Extensions is the allow-list of file extensions, including the dot.
	Extensions []string
	// ExcludedDirs are fragments that drop a file when found anywhere in its
	// full path (e.g., "node_modules").
	ExcludedDirs []string
	// Ignore are doublestar patterns matched against the slash-separated path
	// relative to the scan root.
	Ignore []string
}

// ScanDir walks root and returns every file whose extension is allowed and
// whose path contains none of the excluded fragments.
func ScanDir(root string, extensions, excludedDirs []string) ([]string, error) {
	return Scan(root, ScanOptions{Extensions: extensions, ExcludedDirs: excludedDirs})
}

// Scan walks root depth-first in lexical order and returns the matching files.
// Any unreadable directory aborts the scan with a *DiscoveryError; no partial
// result is returned.
func Scan(root string, opts ScanOptions) ([]string, error) {
	for _, pat := range opts.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, &DiscoveryError{
				Op:   "validate ignore pattern",
				Path: pat,
				Err:  doublestar.ErrBadPattern,
			}
		}
	}

	s := scanner{root: root, opts: opts}
	if err := s.traverse(root); err != nil {
		return nil, err
	}
	return s.files, nil
}

type scanner struct {
	root  string
	opts  ScanOptions
	files []string
}

func (s *scanner) traverse(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &DiscoveryError{Op: "read directory", Path: dir, Err: err}
	}

	for _, entry := range entries {
		fullPath := filepath.Join(dir, entry.Name())

		switch {
		case entry.IsDir():
			if err := s.traverse(fullPath); err != nil {
				return err
			}
		case entry.Type().IsRegular():
			if s.accepts(fullPath) {
				s.files = append(s.files, fullPath)
			}
		}
	}
	return nil
}

func (s *scanner) accepts(fullPath string) bool {
	if !slices.Contains(s.opts.Extensions, filepath.Ext(fullPath)) {
		return false
	}
	for _, dir := range s.opts.ExcludedDirs {
		if dir != "" && strings.Contains(fullPath, dir) {
			return false
		}
	}
	if len(s.opts.Ignore) == 0 {
		return true
	}

	rel, err := filepath.Rel(s.root, fullPath)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range s.opts.Ignore {
		if matched, _ := doublestar.Match(pat, rel); matched {
			return false
		}
	}
	return true
}
