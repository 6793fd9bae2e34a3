// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/envinline/envinline/pkg/cueutil"
)

// maxManifestSize bounds manifests written by function bundlers for large sites.
const maxManifestSize int64 = 20 * 1024 * 1024

//go:embed manifest_schema.cue
var manifestSchema []byte

type (
	manifestFile struct {
		Functions []manifestEntry `json:"functions"`
	}

	manifestEntry struct {
		Name      string `json:"name"`
		Runtime   string `json:"runtime"`
		MainFile  string `json:"mainFile"`
		SrcFile   string `json:"srcFile"`
		Extension string `json:"extension"`
	}
)

// LoadManifest reads the functions declared in a JSON manifest. The document
// is validated against the embedded #Manifest schema; JSON is valid CUE, so
// the same parser handles both. Relative source paths are resolved against
// the manifest's directory, and a missing extension is taken from the source
// path.
func LoadManifest(path string) ([]FunctionDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DiscoveryError{Op: "load manifest", Path: path, Err: err}
	}

	result, err := cueutil.ParseAndDecode[manifestFile](manifestSchema, data, "#Manifest",
		cueutil.WithMaxFileSize(maxManifestSize),
		cueutil.WithFilename(path))
	if err != nil {
		return nil, &DiscoveryError{Op: "load manifest", Path: path, Err: err}
	}

	baseDir := filepath.Dir(path)
	descs := make([]FunctionDescriptor, 0, len(result.Value.Functions))
	for i, entry := range result.Value.Functions {
		src := entry.SrcFile
		if src == "" {
			src = entry.MainFile
		}
		if src == "" {
			return nil, &DiscoveryError{
				Op:   "load manifest",
				Path: path,
				Err:  fmt.Errorf("functions[%d] (%s): %w", i, entry.Name, errMissingSource),
			}
		}
		if !filepath.IsAbs(src) {
			src = filepath.Join(baseDir, filepath.FromSlash(src))
		}

		ext := entry.Extension
		if ext == "" {
			ext = filepath.Ext(src)
		}
		descs = append(descs, FunctionDescriptor{
			Name:      entry.Name,
			Runtime:   entry.Runtime,
			Extension: ext,
			SrcFile:   src,
		})
	}
	return descs, nil
}

var errMissingSource = errors.New("one of mainFile or srcFile is required")
