// Package watcher ingests documents dropped into watched directories.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Handler reacts to settled file changes.
type Handler interface {
	// Changed is called once a created or written file has been quiet for the debounce interval.
	Changed(ctx context.Context, path string)
	// Removed is called when a matching file is deleted or moved away.
	Removed(ctx context.Context, path string)
}

// Watcher watches directory trees and forwards debounced file events to a Handler.
type Watcher struct {
	roots      []string
	extensions []string
	exclude    []string
	debounce   time.Duration
	handler    Handler
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	wg      sync.WaitGroup
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithExtensions limits events to files with one of the given extensions. Empty means all files.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// WithExclude skips paths matching any of the doublestar patterns. Patterns are
// matched against the path relative to its root and against the base name.
func WithExclude(patterns []string) Option {
	return func(w *Watcher) { w.exclude = patterns }
}

// WithDebounce sets how long a file must stay quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over roots. Roots that do not exist are created on Start.
func New(roots []string, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		debounce: defaultDebounce,
		handler:  handler,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			w.roots = append(w.roots, filepath.Clean(abs))
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ValidatePatterns reports the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

// PatternError reports an invalid exclude glob.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string { return "invalid exclude pattern " + e.Pattern }

// Start begins watching. Events are processed until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := ValidatePatterns(w.exclude); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := w.addTree(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.fsw = fsw
	w.ctx = ctx
	w.done = make(chan struct{})
	w.logger.Info("watching directories", zap.Strings("roots", w.roots), zap.Strings("exclude", w.exclude))

	w.wg.Add(1)
	go w.run(ctx, fsw, w.done)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			go w.Stop()
			return
		case <-done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if w.excluded(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if w.matches(path) {
			w.schedule(path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancel(path)
		if w.matches(path) {
			w.handler.Removed(w.context(), path)
		}
	}
}

func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if err := w.addTree(fsw, dir); err != nil {
		w.logger.Warn("failed to watch new directory", zap.String("path", dir), zap.Error(err))
	}
	// files may have landed before the directory was watched
	w.walkFiles(dir, w.schedule)
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.excluded(path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

// SyncExisting schedules every matching file already present under the roots.
func (w *Watcher) SyncExisting() {
	for _, root := range w.roots {
		w.walkFiles(root, w.schedule)
	}
}

func (w *Watcher) walkFiles(root string, fn func(string)) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if w.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && w.matches(path) {
			fn(path)
		}
		return nil
	})
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if _, ok := w.pending[path]; !ok {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		ctx := w.ctx
		w.wg.Add(1)
		w.mu.Unlock()

		defer w.wg.Done()
		w.handler.Changed(ctx, path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) excluded(path string) bool {
	if len(w.exclude) == 0 {
		return false
	}
	base := filepath.Base(path)
	rel := ""
	for _, root := range w.roots {
		if r, err := filepath.Rel(root, path); err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			rel = filepath.ToSlash(r)
			break
		}
	}
	for _, p := range w.exclude {
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
		if rel != "" && rel != "." {
			if ok, _ := doublestar.Match(p, rel); ok {
				return true
			}
		}
	}
	return false
}

// Roots returns the watched root directories.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Stop stops watching, drops pending events and waits for running handlers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	close(w.done)
	w.mu.Unlock()
	w.wg.Wait()
}
