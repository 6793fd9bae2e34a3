// SPDX-License-Identifier: MPL-2.0

package inline

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Inliner applies one define table to any number of files. It is safe for
// concurrent use as long as each call targets a different path.
type Inliner struct {
	engine  Transformer
	defines map[string]string
	skipped []string
	logger  *log.Logger
	verbose bool
}

// NewInliner builds the define table for env and opts once, up front.
// A nil logger discards output.
func NewInliner(engine Transformer, env Env, opts Options, logger *log.Logger, verbose bool) *Inliner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	defines, skipped := opts.Defines(env)
	return &Inliner{
		engine:  engine,
		defines: defines,
		skipped: skipped,
		logger:  logger,
		verbose: verbose,
	}
}

// Defines returns the number of variables that will be substituted.
func (i *Inliner) Defines() int { return len(i.defines) }

// Skipped returns candidate names that cannot be inlined because they are
// not valid identifiers.
func (i *Inliner) Skipped() []string { return i.skipped }

// InlineFile rewrites path in place and reports whether its content changed.
//
// Files that do not mention process.env are not handed to the engine. When
// the output is byte-identical to the input, nothing is written, which keeps
// a second run over the same tree a no-op.
func (i *Inliner) InlineFile(ctx context.Context, path string) (bool, error) {
	i.logger.Info("inlining", "path", path)

	info, err := os.Stat(path)
	if err != nil {
		return false, &TransformError{Path: path, Err: err}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return false, &TransformError{Path: path, Err: err}
	}

	out := src
	if len(i.defines) > 0 && bytes.Contains(src, []byte(envObject)) {
		out, err = i.engine.Transform(ctx, src, path, i.defines)
		if err != nil {
			return false, &TransformError{Path: path, Err: err}
		}
	}

	if i.verbose {
		i.logger.Debug("transformed code", "path", path, "code", string(out))
	}

	if bytes.Equal(out, src) {
		return false, nil
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return false, &WriteError{Path: path, Err: err}
	}
	return true, nil
}
