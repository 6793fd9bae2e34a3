// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a handler whenever files under a directory change.
//
// Filesystem events are collected until the tree has been quiet for the
// debounce period, then the handler receives the batch of changed paths.
// The handler reports the files it wrote itself; events for those files are
// dropped while they still hold the handler's content, so a handler that
// edits the files it watches settles after one run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid watch configuration")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")

	// Build output trees are noisy: source maps, VCS metadata, dependency
	// installs and editor temp files never carry function code.
	defaultIgnores = []string{
		"**/.git/**",
		"**/node_modules/**",
		"**/.netlify/**",
		"**/*.map",
		"**/*.swp",
		"**/*.swo",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the directory to watch recursively. Empty means the
		// working directory.
		Root string

		// Patterns select which files count as changes, as doublestar globs
		// relative to Root. Empty selects every file that is not ignored.
		Patterns []string

		// Ignore adds doublestar globs on top of DefaultIgnores.
		Ignore []string

		// Debounce is the quiet period before the handler runs. Zero or
		// negative uses DefaultDebounce.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated changed paths relative
		// to Root and returns the paths it wrote, absolute or relative to
		// Root. A nil handler only logs the batch.
		OnChange Handler

		// Logger receives watcher diagnostics. Nil discards them.
		Logger *log.Logger
	}

	// Handler reacts to one batch of changes.
	Handler func(ctx context.Context, changed []string) (written []string, err error)

	// Watcher monitors a directory tree and runs a debounced handler.
	// Run may be called once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		root     string
		ignores  []string
		debounce time.Duration
		logger   *log.Logger
		started  atomic.Bool

		// stamps holds the state of each file the handler last wrote. A
		// pending path whose state still matches is the handler's own echo.
		stampsMu sync.Mutex
		stamps   map[string]stamp
	}

	stamp struct {
		size    int64
		modTime time.Time
	}
)

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	if c.Root != "" && strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root must not be whitespace"))
	}
	if err := validatePatterns(c.Patterns, "watch"); err != nil {
		errs = append(errs, err)
	}
	if err := validatePatterns(c.Ignore, "ignore"); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// New validates cfg, resolves Root and registers every non-ignored
// directory beneath it.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", absRoot)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		root:     absRoot,
		ignores:  append(DefaultIgnores(), cfg.Ignore...),
		debounce: debounce,
		logger:   logger.With("root", absRoot),
	}

	if err := w.addTree(absRoot); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			w.logger.Warn("close watcher after setup failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Root returns the absolute directory being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Run processes events until ctx is canceled, which returns nil. Resource
// exhaustion reported by the OS ends Run with an error.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		busy    atomic.Bool
	)

	// fire runs on the timer goroutine. A busy handler defers the batch by
	// another debounce period instead of overlapping.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			w.logger.Debug("handler still running, deferring batch")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer busy.Store(false)

		mu.Lock()
		paths := slices.Collect(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		changed := w.dropEchoes(paths)
		if len(changed) == 0 {
			return
		}
		slices.Sort(changed)

		w.logger.Info("change detected", "files", len(changed))
		if w.cfg.OnChange == nil {
			return
		}
		written, err := w.cfg.OnChange(ctx, changed)
		if err != nil {
			w.logger.Error("change handler failed", "err", err)
		}
		w.remember(written)
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, ok := w.relative(evt.Name)
			if !ok || w.ignored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) && w.addNewDir(evt.Name, rel) {
				continue
			}
			if !w.selected(rel) {
				continue
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

// dropEchoes removes paths that still hold what the handler last wrote.
// Deleted paths are always kept.
func (w *Watcher) dropEchoes(paths []string) []string {
	w.stampsMu.Lock()
	defer w.stampsMu.Unlock()

	kept := paths[:0]
	for _, rel := range paths {
		info, err := os.Stat(filepath.Join(w.root, rel))
		if err == nil {
			if prev, ok := w.stamps[rel]; ok && prev.matches(info) {
				continue
			}
		}
		kept = append(kept, rel)
	}
	return kept
}

// remember stamps the files the handler wrote, replacing earlier stamps.
func (w *Watcher) remember(written []string) {
	stamps := make(map[string]stamp, len(written))
	for _, path := range written {
		if !filepath.IsAbs(path) {
			path = filepath.Join(w.root, path)
		}
		rel, ok := w.relative(path)
		if !ok {
			continue
		}
		if info, err := os.Stat(path); err == nil {
			stamps[rel] = stampOf(info)
		}
	}

	w.stampsMu.Lock()
	w.stamps = stamps
	w.stampsMu.Unlock()
}

// addTree registers dir and every non-ignored directory beneath it.
// Unreadable directories are logged and skipped.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // keep watching the rest of the tree
		}
		if !d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && rel != "." && w.ignoredDir(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %s: %w", path, addErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: register %s: %w", dir, err)
	}
	return nil
}

// addNewDir registers a directory created after startup, including any
// subdirectories already inside it. It reports whether path was a directory.
func (w *Watcher) addNewDir(path, rel string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	if w.ignoredDir(rel) {
		return true
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warn("watch new directory", "path", path, "err", err)
	}
	return true
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) ignored(rel string) bool {
	return matchAny(w.ignores, rel)
}

// ignoredDir also tests rel with a trailing slash so "dir/**" patterns
// prune the directory itself.
func (w *Watcher) ignoredDir(rel string) bool {
	return w.ignored(rel) || w.ignored(rel+"/")
}

func (w *Watcher) selected(rel string) bool {
	return len(w.cfg.Patterns) == 0 || matchAny(w.cfg.Patterns, rel)
}

// DefaultIgnores returns a copy of the patterns every Watcher ignores.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, rel); err == nil && matched {
			return true
		}
	}
	return false
}

func stampOf(info os.FileInfo) stamp {
	return stamp{size: info.Size(), modTime: info.ModTime()}
}

func (s stamp) matches(info os.FileInfo) bool {
	return s.size == info.Size() && s.modTime.Equal(info.ModTime())
}

func validatePatterns(patterns []string, label string) error {
	var errs []error
	for _, pat := range patterns {
		if strings.TrimSpace(pat) == "" {
			errs = append(errs, fmt.Errorf("empty %s pattern", label))
			continue
		}
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("invalid %s pattern %q", label, pat))
		}
	}
	return errors.Join(errs...)
}
