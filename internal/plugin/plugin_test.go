// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/envinline/envinline/internal/config"
	"github.com/envinline/envinline/internal/discovery"
	"github.com/envinline/envinline/internal/inline"
)

type (
	// recordingUtils captures what the plugin reports to the host.
	recordingUtils struct {
		mu       sync.Mutex
		failures []string
		causes   []error
		statuses []string
	}

	staticResolver struct {
		sel discovery.Selection
		err error
	}

	// markingTransformer appends a marker to each source and fails for paths
	// with the given base name. It records the peak number of concurrent calls.
	markingTransformer struct {
		failOn   string
		delay    time.Duration
		inFlight atomic.Int32
		peak     atomic.Int32
	}
)

func (u *recordingUtils) FailBuild(message string, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failures = append(u.failures, message)
	u.causes = append(u.causes, err)
}

func (u *recordingUtils) ShowStatus(summary string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.statuses = append(u.statuses, summary)
}

func (r staticResolver) Resolve(context.Context) (discovery.Selection, error) {
	return r.sel, r.err
}

func (m *markingTransformer) Transform(_ context.Context, src []byte, filename string, _ map[string]string) ([]byte, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peak.Load()
		if n <= peak || m.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(m.delay)

	if filepath.Base(filename) == m.failOn {
		return nil, errors.New("unexpected token")
	}
	return append(bytes.Clone(src), []byte("/* inlined */")...), nil
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func scanPlugin(base string, inputs Inputs, env map[string]string) *Plugin {
	return New(inputs, Dependencies{
		Resolver: discovery.New(nil, discovery.WithBaseDir(base)),
		Env:      inline.EnvFromMap(env),
	})
}

func TestProcessFiles_InlinesReference(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{"api/dist/a.js": "exports.url = process.env.FOO;\n"})

	utils := &recordingUtils{}
	res := scanPlugin(base, Inputs{}, map[string]string{"FOO": "bar"}).ProcessFiles(context.Background(), utils)

	if res.Outcome != Succeeded {
		t.Fatalf("Outcome = %v, want succeeded (failures: %v)", res.Outcome, utils.failures)
	}
	if res.Processed != 1 || len(res.Rewritten) != 1 {
		t.Errorf("Processed = %d, Rewritten = %v; want 1 file each", res.Processed, res.Rewritten)
	}
	if len(utils.statuses) != 1 || utils.statuses[0] != "Processed 1 function file(s)." {
		t.Errorf("statuses = %v", utils.statuses)
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}

	out := readFile(t, filepath.Join(base, "api", "dist", "a.js"))
	if !strings.Contains(out, `"bar"`) || strings.Contains(out, "process.env.FOO") {
		t.Errorf("reference not replaced:\n%s", out)
	}
}

func TestProcessFiles_NoFunctions(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"api/dist/readme.md":             "",
		"api/dist/node_modules/dep/a.js": "process.env.FOO",
	})

	utils := &recordingUtils{}
	res := scanPlugin(base, Inputs{}, nil).ProcessFiles(context.Background(), utils)

	if res.Outcome != Skipped {
		t.Fatalf("Outcome = %v, want skipped", res.Outcome)
	}
	if len(utils.failures) != 0 {
		t.Errorf("skipping must not fail the build: %v", utils.failures)
	}
	if len(utils.statuses) != 1 || utils.statuses[0] != "Skipped processing because the project had no functions." {
		t.Errorf("statuses = %v", utils.statuses)
	}
}

func TestProcessFiles_MissingTargetDirectory(t *testing.T) {
	t.Parallel()

	utils := &recordingUtils{}
	res := scanPlugin(t.TempDir(), Inputs{}, nil).ProcessFiles(context.Background(), utils)

	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if len(utils.failures) != 1 || !strings.HasPrefix(utils.failures[0], "Failed to read files from target directory for inlining:\n") {
		t.Fatalf("failures = %q", utils.failures)
	}
	if !errors.Is(utils.causes[0], discovery.ErrDiscovery) {
		t.Errorf("cause should be a discovery error, got %v", utils.causes[0])
	}
	if !errors.Is(res.Err, os.ErrNotExist) {
		t.Errorf("Result.Err should unwrap to the cause, got %v", res.Err)
	}
	if len(utils.statuses) != 0 {
		t.Errorf("no status expected on failure, got %v", utils.statuses)
	}
}

func TestProcessFiles_MissingManifest(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	p := New(Inputs{}, Dependencies{
		Resolver: discovery.New(nil, discovery.WithBaseDir(base), discovery.WithManifest("missing.json")),
	})

	utils := &recordingUtils{}
	res := p.ProcessFiles(context.Background(), utils)

	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if !strings.HasPrefix(utils.failures[0], "Failed to list functions from the configured functions directory:\n") {
		t.Errorf("failure = %q", utils.failures[0])
	}
}

func TestProcessFiles_IncludeRestrictsSubstitution(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"api/dist/a.js": "module.exports = [process.env.FOO, process.env.BAR];\n",
	})

	inputs := Inputs{Include: []any{"FOO"}}
	res := scanPlugin(base, inputs, map[string]string{"FOO": "foo-value", "BAR": "bar-value"}).
		ProcessFiles(context.Background(), &recordingUtils{})
	if res.Outcome != Succeeded {
		t.Fatalf("Outcome = %v", res.Outcome)
	}

	out := readFile(t, filepath.Join(base, "api", "dist", "a.js"))
	if !strings.Contains(out, `"foo-value"`) {
		t.Errorf("FOO should be inlined:\n%s", out)
	}
	if !strings.Contains(out, "process.env.BAR") || strings.Contains(out, "bar-value") {
		t.Errorf("BAR should remain a reference:\n%s", out)
	}
}

func TestProcessFiles_ScalarExclude(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"api/dist/a.js": "module.exports = [process.env.FOO, process.env.SECRET];\n",
	})

	res := scanPlugin(base, Inputs{Exclude: "SECRET"}, map[string]string{"FOO": "x", "SECRET": "hunter2"}).
		ProcessFiles(context.Background(), &recordingUtils{})
	if res.Outcome != Succeeded {
		t.Fatalf("Outcome = %v", res.Outcome)
	}
	if out := readFile(t, filepath.Join(base, "api", "dist", "a.js")); strings.Contains(out, "hunter2") {
		t.Errorf("excluded variable leaked:\n%s", out)
	}
}

func TestProcessFiles_DuplicateManifestSources(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"functions/shared.js": "exports.v = process.env.FOO;\n",
		"manifest.json": `{"functions": [
			{"name": "one", "runtime": "js", "mainFile": "functions/shared.js", "bundler": "zisi"},
			{"name": "two", "runtime": "js", "mainFile": "functions/shared.js", "bundler": "esbuild"}
		]}`,
	})

	engine := &markingTransformer{}
	p := New(Inputs{}, Dependencies{
		Resolver: discovery.New(nil, discovery.WithBaseDir(base), discovery.WithManifest("manifest.json")),
		Engine:   engine,
		Env:      inline.EnvFromMap(map[string]string{"FOO": "bar"}),
	})

	utils := &recordingUtils{}
	res := p.ProcessFiles(context.Background(), utils)
	if res.Outcome != Succeeded || res.Processed != 1 {
		t.Fatalf("Outcome = %v, Processed = %d; want succeeded, 1", res.Outcome, res.Processed)
	}
	if out := readFile(t, filepath.Join(base, "functions", "shared.js")); strings.Count(out, "/* inlined */") != 1 {
		t.Errorf("shared source should be transformed exactly once:\n%s", out)
	}
}

func TestProcessFiles_FirstErrorWinsWithoutRollback(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"good1.js": "process.env.FOO",
		"bad.js":   "process.env.FOO",
		"good2.js": "process.env.FOO",
	})
	files := []string{
		filepath.Join(base, "good1.js"),
		filepath.Join(base, "bad.js"),
		filepath.Join(base, "good2.js"),
	}

	p := New(Inputs{}, Dependencies{
		Resolver: staticResolver{sel: discovery.Selection{Mode: discovery.ModeScan, Files: files}},
		Engine:   &markingTransformer{failOn: "bad.js"},
		Env:      inline.EnvFromMap(map[string]string{"FOO": "bar"}),
	})

	utils := &recordingUtils{}
	res := p.ProcessFiles(context.Background(), utils)

	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if len(utils.failures) != 1 {
		t.Fatalf("FailBuild should be called once, got %d", len(utils.failures))
	}
	if !strings.HasPrefix(utils.failures[0], "Failed to inline function files due to the following error:\n") {
		t.Errorf("failure = %q", utils.failures[0])
	}
	if !errors.Is(utils.causes[0], inline.ErrTransform) {
		t.Errorf("cause should be a transform error, got %v", utils.causes[0])
	}
	if len(res.Rewritten) != 2 {
		t.Errorf("Rewritten = %v, want 2 files", res.Rewritten)
	}
	for _, name := range []string{"good1.js", "good2.js"} {
		if !strings.Contains(readFile(t, filepath.Join(base, name)), "/* inlined */") {
			t.Errorf("%s should keep its rewritten content", name)
		}
	}
	if readFile(t, filepath.Join(base, "bad.js")) != "process.env.FOO" {
		t.Error("failed file must be left untouched")
	}
}

func TestProcessFiles_ConcurrencyLimit(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	var files []string
	for _, name := range []string{"a.js", "b.js", "c.js", "d.js", "e.js", "f.js"} {
		writeFiles(t, base, map[string]string{name: "process.env.FOO"})
		files = append(files, filepath.Join(base, name))
	}

	engine := &markingTransformer{delay: 20 * time.Millisecond}
	p := New(Inputs{}, Dependencies{
		Resolver:    staticResolver{sel: discovery.Selection{Mode: discovery.ModeScan, Files: files}},
		Engine:      engine,
		Env:         inline.EnvFromMap(map[string]string{"FOO": "bar"}),
		Concurrency: 2,
	})

	res := p.ProcessFiles(context.Background(), &recordingUtils{})
	if res.Outcome != Succeeded || res.Processed != 6 {
		t.Fatalf("Outcome = %v, Processed = %d", res.Outcome, res.Processed)
	}
	if peak := engine.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestProcessFiles_Canceled(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{"api/dist/a.js": "process.env.FOO"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	utils := &recordingUtils{}
	res := scanPlugin(base, Inputs{}, map[string]string{"FOO": "bar"}).ProcessFiles(ctx, utils)
	if res.Outcome != Failed {
		t.Fatalf("Outcome = %v, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", res.Err)
	}
	if readFile(t, filepath.Join(base, "api", "dist", "a.js")) != "process.env.FOO" {
		t.Error("no file should be rewritten after cancellation")
	}
}

func TestProcessFiles_IdempotentSecondRun(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{"api/dist/a.js": "exports.url = process.env.FOO;\n"})
	p := scanPlugin(base, Inputs{}, map[string]string{"FOO": "bar"})

	first := p.ProcessFiles(context.Background(), &recordingUtils{})
	after := readFile(t, filepath.Join(base, "api", "dist", "a.js"))
	second := p.ProcessFiles(context.Background(), &recordingUtils{})

	if len(first.Rewritten) != 1 || len(second.Rewritten) != 0 {
		t.Errorf("Rewritten = %v then %v; want 1 file then none", first.Rewritten, second.Rewritten)
	}
	if readFile(t, filepath.Join(base, "api", "dist", "a.js")) != after {
		t.Error("second run changed the file")
	}
	if second.RunID == first.RunID {
		t.Error("each run should get its own RunID")
	}
}

func TestProcessFiles_FunctionsDirectoryFromConfig(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeFiles(t, base, map[string]string{
		"netlify/functions/hello.js":       "exports.handler = () => process.env.GREETING;\n",
		"netlify/functions/typed/typed.ts": "export const x = process.env.GREETING;\n",
	})

	cfg := config.DefaultConfig()
	cfg.Discovery.FunctionsDir = "netlify/functions"
	p := New(Inputs{}, Dependencies{
		Resolver: discovery.New(cfg, discovery.WithBaseDir(base)),
		Env:      inline.EnvFromMap(map[string]string{"GREETING": "hi"}),
	})

	res := p.ProcessFiles(context.Background(), &recordingUtils{})
	if res.Outcome != Succeeded || res.Processed != 1 {
		t.Fatalf("Outcome = %v, Processed = %d", res.Outcome, res.Processed)
	}
	if !strings.Contains(readFile(t, filepath.Join(base, "netlify", "functions", "hello.js")), `"hi"`) {
		t.Error("hello.js should be inlined")
	}
	if strings.Contains(readFile(t, filepath.Join(base, "netlify", "functions", "typed", "typed.ts")), `"hi"`) {
		t.Error(".ts function is outside the default allow-list")
	}
}
