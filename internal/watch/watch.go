// Package watch calls back after files under a memory directory change,
// coalescing bursts of filesystem events into one call.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 1500 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Extensions limits which file events count; empty means all.
	Extensions []string
	// Ignore lists directory names that are not watched.
	Ignore []string
	// Exclude lists absolute paths whose events are dropped, such as the
	// snapshot the callback itself writes.
	Exclude  []string
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher monitors a directory tree and runs a callback after changes.
type Watcher struct {
	root     string
	opts     Options
	onChange func(context.Context) error
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher over root that calls onChange after changes settle.
func New(root string, opts Options, onChange func(context.Context) error) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{root: root, opts: opts, onChange: onChange, fsw: fsw, logger: logger}, nil
}

// Run watches until ctx is done. Callback errors are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watch: started", "root", w.root)

	fire := make(chan struct{}, 1)
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.schedule(fire)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch: error", "error", err)

		case <-fire:
			if err := w.onChange(ctx); err != nil {
				w.logger.Warn("watch: change handler failed", "error", err)
			}
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Debug("watch: cannot watch dir", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, ig := range w.opts.Ignore {
		if name == ig {
			return true
		}
	}
	return false
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	path := event.Name
	for _, ex := range w.opts.Exclude {
		if path == ex || strings.HasPrefix(path, ex+"-") {
			return false
		}
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipDir(filepath.Base(path)) {
				_ = w.addTree(path)
			}
			return true
		}
	}

	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if len(w.opts.Extensions) == 0 {
		return true
	}
	for _, ext := range w.opts.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	// Removing or renaming a directory takes its files with it.
	return event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) schedule(fire chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
