package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Event reports that a source file changed on disk. A removal may name a
// directory, in which case every file below it is gone too.
type Event struct {
	Path    string
	Removed bool // deleted or renamed away; otherwise written or created
}

// Watcher reports changes to source files under a root directory.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	match    Matcher
	debounce time.Duration
	logger   *slog.Logger
	events   chan Event
}

// NewWatcher starts watching root and all of its subdirectories.
func NewWatcher(root string, match Matcher, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		root:     root,
		match:    match,
		debounce: DefaultDebounce,
		logger:   logger,
		events:   make(chan Event),
	}
	if err := w.watchDirRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return w, nil
}

// Events delivers debounced changes. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run forwards events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)
	defer func() { _ = w.fsw.Close() }()

	pending := make(map[string]Event)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.collect(ev, pending)
			if len(pending) > 0 && timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			if !w.flush(ctx, pending) {
				return
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// collect folds one fsnotify event into pending. The latest event per path wins.
func (w *Watcher) collect(ev fsnotify.Event, pending map[string]Event) {
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// The path is gone, so there is no telling a directory from a file
		// with another extension. Both are reported.
		pending[ev.Name] = Event{Path: ev.Name, Removed: true}

	case ev.Op&fsnotify.Create != 0:
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			// Files may land in a new directory before it is watched.
			if err := w.watchDirRecursive(ev.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
			}
			paths, err := Discover(ev.Name, w.match)
			if err != nil {
				w.logger.Warn("failed to list new directory", "path", ev.Name, "error", err)
			}
			for _, p := range paths {
				pending[p] = Event{Path: p}
			}
			return
		}
		if w.match(ev.Name) {
			pending[ev.Name] = Event{Path: ev.Name}
		}

	case ev.Op&fsnotify.Write != 0:
		if w.match(ev.Name) {
			pending[ev.Name] = Event{Path: ev.Name}
		}
	}
}

// flush sends pending events in path order. It returns false if ctx ended first.
func (w *Watcher) flush(ctx context.Context, pending map[string]Event) bool {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		ev := pending[p]
		delete(pending, p)
		w.logger.Debug("file changed", "path", ev.Path, "removed", ev.Removed)
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func (w *Watcher) watchDirRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDir(dir, path, d) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}
