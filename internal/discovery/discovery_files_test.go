// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func TestScanDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.js":                       "process.env.FOO",
		"b.ts":                       "process.env.FOO",
		"nested/c.js":                "",
		"nested/deeper/d.js":         "",
		"nested/readme.md":           "",
		"node_modules/dep/index.js":  "",
		"nested/node_modules/x.js":   "",
		"nested/node_modules_old.js": "",
	})

	files, err := ScanDir(root, []string{".js"}, []string{"node_modules"})
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	want := []string{"a.js", "nested/c.js", "nested/deeper/d.js"}
	if got := relPaths(t, root, files); !reflect.DeepEqual(got, want) {
		t.Errorf("ScanDir() = %v, want %v", got, want)
	}
}

func TestScanDir_SelectorExclusivity(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"fn/a.js":              "",
		"fn/b.mjs":             "",
		"fn/c.cjs":             "",
		"fn/vendor/d.js":       "",
		"fn/.cache/e.js":       "",
		"fn/f.json":            "",
		"fn/node_modules/g.js": "",
	})

	extensions := []string{".js", ".mjs"}
	excluded := []string{"node_modules", ".cache", "vendor"}
	files, err := ScanDir(root, extensions, excluded)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected some files")
	}

	for _, f := range files {
		if !slices.Contains(extensions, filepath.Ext(f)) {
			t.Errorf("%s has a disallowed extension", f)
		}
		for _, dir := range excluded {
			if strings.Contains(f, dir) {
				t.Errorf("%s lies under excluded fragment %q", f, dir)
			}
		}
	}
}

func TestScanDir_EmptyDirectory(t *testing.T) {
	t.Parallel()

	files, err := ScanDir(t.TempDir(), []string{".js"}, nil)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}

func TestScanDir_EmptyAllowList(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.js": ""})

	files, err := ScanDir(root, nil, nil)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("empty allow-list should select nothing, got %v", files)
	}
}

func TestScanDir_MissingRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "api", "dist")
	files, err := ScanDir(root, []string{".js"}, nil)
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
	if files != nil {
		t.Errorf("expected no partial result, got %v", files)
	}
	if !errors.Is(err, ErrDiscovery) {
		t.Errorf("error should match ErrDiscovery, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error should wrap os.ErrNotExist, got %v", err)
	}

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) || discErr.Path != root {
		t.Errorf("expected *DiscoveryError for %s, got %#v", root, err)
	}
}

func TestScanDir_RootIsFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.js": ""})

	if _, err := ScanDir(filepath.Join(root, "a.js"), []string{".js"}, nil); !errors.Is(err, ErrDiscovery) {
		t.Errorf("expected ErrDiscovery, got %v", err)
	}
}

func TestScan_IgnorePatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.js":            "",
		"a.test.js":       "",
		"sub/b.js":        "",
		"sub/b.test.js":   "",
		"fixtures/c.js":   "",
		"fixtures/x/d.js": "",
	})

	files, err := Scan(root, ScanOptions{
		Extensions: []string{".js"},
		Ignore:     []string{"**/*.test.js", "fixtures/**"},
	})
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	want := []string{"a.js", "sub/b.js"}
	if got := relPaths(t, root, files); !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}
}

func TestScan_InvalidIgnorePattern(t *testing.T) {
	t.Parallel()

	_, err := Scan(t.TempDir(), ScanOptions{Extensions: []string{".js"}, Ignore: []string{"[unterminated"}})
	if !errors.Is(err, ErrDiscovery) {
		t.Fatalf("expected ErrDiscovery, got %v", err)
	}
	if !strings.Contains(err.Error(), "[unterminated") {
		t.Errorf("error should name the pattern, got %v", err)
	}
}

func TestScanDir_UnreadableSubdirectory(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("root can read any directory")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.js": "", "locked/b.js": ""})
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	files, err := ScanDir(root, []string{".js"}, nil)
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if files != nil {
		t.Errorf("expected no partial result, got %v", files)
	}
}
