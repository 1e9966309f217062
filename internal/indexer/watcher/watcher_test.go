package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/source"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
)

type fakeTarget struct {
	mu      sync.Mutex
	indexed map[string]bool
	updates []string
	removes []string
}

func newFakeTarget(indexed ...string) *fakeTarget {
	t := &fakeTarget{indexed: make(map[string]bool)}
	for _, p := range indexed {
		t.indexed[p] = true
	}
	return t
}

func (t *fakeTarget) UpdateFile(_ context.Context, path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updates = append(t.updates, path)
	t.indexed[path] = true
	return nil
}

func (t *fakeTarget) RemoveFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removes = append(t.removes, path)
	delete(t.indexed, path)
}

func (t *fakeTarget) IsIndexed(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexed[path]
}

type acceptAll struct{}

func (acceptAll) Matches(string, string) bool     { return true }
func (acceptAll) ExcludedDir(string, string) bool { return false }
func (acceptAll) IsText(string) bool              { return true }

func newTestWatcher(t *testing.T, target Target, filter Filter) *Watcher {
	t.Helper()
	w, err := New(target, filter, 50*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.fsw.Close() })
	return w
}

func TestEventsForSamePathCoalesce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	target := newFakeTarget(path)
	w := newTestWatcher(t, target, acceptAll{})
	require.NoError(t, w.Watch(dir, false))

	now := time.Now()
	for range 5 {
		w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write}, now)
	}
	assert.Equal(t, time.Duration(0), w.flush(context.Background(), now.Add(time.Second)))
	assert.Equal(t, []string{path}, target.updates)
}

func TestLastEventWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	target := newFakeTarget(path)
	w := newTestWatcher(t, target, acceptAll{})
	require.NoError(t, w.Watch(dir, false))

	now := time.Now()
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write}, now)
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Remove}, now)
	w.flush(context.Background(), now.Add(time.Second))

	assert.Empty(t, target.updates)
	assert.Equal(t, []string{path}, target.removes)
}

func TestFlushHoldsEventsNotYetDue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	target := newFakeTarget(path)
	w := newTestWatcher(t, target, acceptAll{})
	require.NoError(t, w.Watch(dir, false))

	now := time.Now()
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Write}, now)
	next := w.flush(context.Background(), now.Add(10*time.Millisecond))

	assert.Equal(t, 40*time.Millisecond, next)
	assert.Empty(t, target.updates)
}

func TestRemovalOfUnindexedFileIsIgnored(t *testing.T) {
	dir := t.TempDir()
	target := newFakeTarget()
	w := newTestWatcher(t, target, acceptAll{})
	require.NoError(t, w.Watch(dir, false))

	now := time.Now()
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "gone.txt"), Op: fsnotify.Remove}, now)
	w.flush(context.Background(), now.Add(time.Second))

	assert.Empty(t, target.removes)
}

func TestFilesOutsideRootsAreIgnored(t *testing.T) {
	watched, other := t.TempDir(), t.TempDir()
	path := filepath.Join(other, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	target := newFakeTarget()
	w := newTestWatcher(t, target, acceptAll{})
	require.NoError(t, w.Watch(watched, true))

	now := time.Now()
	w.handle(fsnotify.Event{Name: path, Op: fsnotify.Create}, now)
	w.flush(context.Background(), now.Add(time.Second))

	assert.Empty(t, target.updates)
}

func TestWatchedFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "a.txt")
	sibling := filepath.Join(dir, "unrelated.txt")
	require.NoError(t, os.WriteFile(watched, []byte("x"), 0o644))

	target := newFakeTarget()
	w := newTestWatcher(t, target, acceptAll{})
	require.NoError(t, w.Watch(watched, false))

	require.NoError(t, os.WriteFile(sibling, []byte("y"), 0o644))
	now := time.Now()
	w.handle(fsnotify.Event{Name: sibling, Op: fsnotify.Create}, now)
	w.handle(fsnotify.Event{Name: watched, Op: fsnotify.Write}, now)
	w.flush(context.Background(), now.Add(time.Second))

	assert.Equal(t, []string{watched}, target.updates)
}

func TestExcludedDirectoriesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	head := filepath.Join(dir, ".git", "HEAD")
	dep := filepath.Join(dir, "web", "node_modules", "a.txt")
	kept := filepath.Join(dir, "src", "b.txt")
	for _, p := range []string{head, dep, kept} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("ref: refs/heads/main"), 0o644))
	}

	src, err := source.New(config.SourceConfig{Exclude: []string{".git", "**/node_modules"}})
	require.NoError(t, err)
	target := newFakeTarget()
	w := newTestWatcher(t, target, src)
	require.NoError(t, w.Watch(dir, true))

	watched := w.fsw.WatchList()
	assert.Contains(t, watched, filepath.Join(dir, "src"))
	assert.NotContains(t, watched, filepath.Join(dir, ".git"))
	assert.NotContains(t, watched, filepath.Join(dir, "web", "node_modules"))

	now := time.Now()
	for _, p := range []string{head, dep, kept} {
		w.handle(fsnotify.Event{Name: p, Op: fsnotify.Write}, now)
	}
	w.flush(context.Background(), now.Add(time.Second))

	assert.Equal(t, []string{kept}, target.updates)
}

func TestWatcherKeepsIndexCurrent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	tracked := filepath.Join(dir, "tracked.txt")
	require.NoError(t, os.WriteFile(tracked, []byte("hello world"), 0o644))

	src, err := source.New(config.SourceConfig{})
	require.NoError(t, err)
	fi := indexer.New(src)
	require.NoError(t, fi.IndexFile(context.Background(), tracked))

	w, err := New(fi, src, 20*time.Millisecond, nil)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir, true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(tracked, []byte("goodbye world"), 0o644))
	require.Eventually(t, func() bool {
		return len(fi.Search("goodbye")) == 1 && len(fi.Search("hello")) == 0
	}, 5*time.Second, 20*time.Millisecond)

	fresh := filepath.Join(dir, "fresh.txt")
	require.NoError(t, os.WriteFile(fresh, []byte("brand new"), 0o644))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]index.File{indexer.Canonical(fresh)}, fi.Search("brand"))
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(tracked))
	require.Eventually(t, func() bool {
		return !fi.IsIndexed(tracked)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
