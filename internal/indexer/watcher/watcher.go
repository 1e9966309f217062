// Package watcher keeps a FileIndexer current with the filesystem. It
// watches directories with fsnotify, coalesces bursts of events per path and
// applies the last one: writes and creates re-index the file, removals and
// renames drop it.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Target is the index the watcher keeps in sync.
type Target interface {
	UpdateFile(ctx context.Context, path string) error
	RemoveFile(path string)
	IsIndexed(path string) bool
}

// Filter decides which unindexed files are worth picking up and which
// directories are not watched at all.
type Filter interface {
	Matches(root, path string) bool
	ExcludedDir(root, dir string) bool
	IsText(path string) bool
}

type action int

const (
	actionUpdate action = iota
	actionRemove
)

func (a action) String() string {
	if a == actionRemove {
		return "remove"
	}
	return "update"
}

type pendingEvent struct {
	action action
	due    time.Time
}

// root is one path passed to Watch. For a single file, file is set and dir
// is its parent.
type root struct {
	dir       string
	file      string
	recursive bool
}

type Watcher struct {
	fsw      *fsnotify.Watcher
	target   Target
	filter   Filter
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	roots   []root
	pending map[string]pendingEvent
}

func New(target Target, filter Filter, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fsw:      fsw,
		target:   target,
		filter:   filter,
		debounce: debounce,
		logger:   logger.With("component", "watcher"),
		pending:  make(map[string]pendingEvent),
	}, nil
}

// Watch registers path. A file path watches its parent directory but only
// reacts to that one file; a directory is watched alone or, when recursive,
// with all its subdirectories that are not excluded.
func (w *Watcher) Watch(path string, recursive bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watching %s: %w", abs, err)
	}
	r := root{dir: abs, recursive: recursive}
	if !info.IsDir() {
		r = root{dir: filepath.Dir(abs), file: abs}
	}

	w.mu.Lock()
	w.roots = append(w.roots, r)
	w.mu.Unlock()

	if !r.recursive {
		return w.add(r.dir)
	}
	return w.addTree(r.dir, r.dir)
}

func (w *Watcher) add(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Debug("watching directory", "dir", dir)
	return nil
}

// addTree watches dir and every subdirectory of it that rootDir's exclude
// patterns do not skip.
func (w *Watcher) addTree(rootDir, dir string) error {
	visited := make(map[string]bool)
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if w.filter.ExcludedDir(rootDir, path) {
			return filepath.SkipDir
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil || visited[resolved] {
			return filepath.SkipDir
		}
		visited[resolved] = true
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "dir", path, "error", err)
		}
		return nil
	})
}

// Run processes events until ctx is cancelled, then releases the fsnotify
// watcher. Pending events are discarded on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, time.Now())
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		case now := <-timer.C:
			if next := w.flush(ctx, now); next > 0 {
				timer.Reset(next)
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, now time.Time) {
	path := filepath.Clean(ev.Name)

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if w.target.IsIndexed(path) {
			w.queue(path, actionRemove, now)
		}
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if rootDir, ok := w.recursiveRootOf(path); ok && ev.Has(fsnotify.Create) {
				if err := w.addTree(rootDir, path); err != nil {
					w.logger.Warn("failed to watch new directory", "dir", path, "error", err)
				}
			}
			return
		}
		if w.target.IsIndexed(path) || w.wanted(path) {
			w.queue(path, actionUpdate, now)
		}
	}
}

func (w *Watcher) queue(path string, a action, now time.Time) {
	w.mu.Lock()
	w.pending[path] = pendingEvent{action: a, due: now.Add(w.debounce)}
	w.mu.Unlock()
}

// flush applies every pending event that is due at now and returns the wait
// until the next one, or zero when nothing is left.
func (w *Watcher) flush(ctx context.Context, now time.Time) time.Duration {
	w.mu.Lock()
	ready := make(map[string]action)
	var next time.Duration
	for path, p := range w.pending {
		if !p.due.After(now) {
			ready[path] = p.action
			delete(w.pending, path)
			continue
		}
		if wait := p.due.Sub(now); next == 0 || wait < next {
			next = wait
		}
	}
	w.mu.Unlock()

	for path, a := range ready {
		w.apply(ctx, path, a)
	}
	return next
}

func (w *Watcher) apply(ctx context.Context, path string, a action) {
	switch a {
	case actionRemove:
		w.target.RemoveFile(path)
	case actionUpdate:
		if err := w.target.UpdateFile(ctx, path); err != nil {
			w.logger.Warn("re-index failed", "file", path, "error", err)
			return
		}
	}
	w.logger.Info("applied file change", "file", path, "action", a)
}

func (w *Watcher) wanted(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if !within(r, path) {
			continue
		}
		if r.file != "" || w.filter.Matches(r.dir, path) {
			return w.filter.IsText(path)
		}
	}
	return false
}

func (w *Watcher) recursiveRootOf(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if r.recursive && within(r, path) {
			return r.dir, true
		}
	}
	return "", false
}

func within(r root, path string) bool {
	if r.file != "" {
		return path == r.file
	}
	if r.recursive {
		return path == r.dir || strings.HasPrefix(path, r.dir+string(filepath.Separator))
	}
	return filepath.Dir(path) == r.dir
}
