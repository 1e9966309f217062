// Package indexer ties the tokenizer and the in-memory index to files on
// disk. FileIndexer owns one Tokenizer and one MemoryIndex; it reads files
// through a ContentReader and exposes index, update, remove, search and
// clear with file-level semantics.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/changefeed"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
)

// ContentReader returns the text content of a file, failing with
// ErrFileNotFound, ErrFileNotReadable or ErrFileNotText.
type ContentReader interface {
	ReadText(ctx context.Context, path string) (string, error)
}

// Notifier receives index mutations. It must not block.
type Notifier interface {
	Track(event changefeed.Event)
}

// Stats is a point-in-time summary of the index.
type Stats struct {
	Files int
	Terms int
}

// FileIndexer is safe for concurrent use. Mutations hold an exclusive lock
// for their whole duration, file reads included; searches share a read
// lock.
type FileIndexer struct {
	mu          sync.RWMutex
	tokenizer   tokenizer.Tokenizer
	index       *index.MemoryIndex
	reader      ContentReader
	policy      string
	readWorkers int
	metrics     *metrics.Metrics
	notifier    Notifier
	logger      *slog.Logger
}

type Option func(*FileIndexer)

func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(fi *FileIndexer) { fi.tokenizer = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(fi *FileIndexer) { fi.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(fi *FileIndexer) { fi.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(fi *FileIndexer) { fi.logger = l }
}

// WithConfig applies the batch failure policy and read concurrency.
func WithConfig(cfg config.IndexerConfig) Option {
	return func(fi *FileIndexer) {
		if cfg.BatchFailurePolicy != "" {
			fi.policy = cfg.BatchFailurePolicy
		}
		if cfg.ReadWorkers > 0 {
			fi.readWorkers = cfg.ReadWorkers
		}
	}
}

func New(reader ContentReader, opts ...Option) *FileIndexer {
	fi := &FileIndexer{
		tokenizer:   tokenizer.Whitespace{},
		index:       index.NewMemoryIndex(),
		reader:      reader,
		policy:      config.PolicyClear,
		readWorkers: 4,
		logger:      logger.WithComponent("file-indexer"),
	}
	for _, opt := range opts {
		opt(fi)
	}
	if fi.metrics == nil {
		fi.metrics = metrics.New()
	}
	return fi
}

// Canonical maps a user-supplied path onto the identity used by the index.
func Canonical(path string) index.File {
	abs, err := filepath.Abs(path)
	if err != nil {
		return index.File(filepath.Clean(path))
	}
	return index.File(abs)
}

// IndexFile reads, tokenizes and indexes one file. On a read failure the
// index is left untouched and the error is returned. A file without tokens
// is still recorded as indexed.
func (fi *FileIndexer) IndexFile(ctx context.Context, path string) error {
	file := Canonical(path)
	fi.mu.Lock()
	defer fi.mu.Unlock()
	defer fi.observe("index_file", time.Now())

	return fi.indexLocked(ctx, file)
}

// IndexFiles indexes files as one all-or-nothing batch. Contents are staged
// concurrently and committed in argument order only if every read
// succeeded. Otherwise a *errors.BatchError naming the first failing file
// in argument order is returned, and the index is cleared entirely (policy
// "clear") or left as it was before the call (policy "rollback").
func (fi *FileIndexer) IndexFiles(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	files := make([]index.File, len(paths))
	for i, p := range paths {
		files[i] = Canonical(p)
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()
	defer fi.observe("index_files", time.Now())

	contents, batchErr := fi.stage(ctx, files)
	if batchErr != nil {
		fi.abort(ctx, len(files), batchErr)
		return batchErr
	}
	for i, file := range files {
		fi.commit(ctx, file, contents[i])
	}
	logger.FromContext(ctx, fi.logger).Info("batch indexed", "files", len(files))
	return nil
}

// UpdateFile removes file from the index if present and then indexes it
// again. If the re-read fails the file stays unindexed; the old postings are
// not restored.
func (fi *FileIndexer) UpdateFile(ctx context.Context, path string) error {
	file := Canonical(path)
	fi.mu.Lock()
	defer fi.mu.Unlock()
	defer fi.observe("update_file", time.Now())

	if fi.index.Contains(file) {
		fi.removeLocked(file)
	}
	return fi.indexLocked(ctx, file)
}

// RemoveFile drops file from the index. Unknown files are ignored.
func (fi *FileIndexer) RemoveFile(path string) {
	file := Canonical(path)
	fi.mu.Lock()
	defer fi.mu.Unlock()
	defer fi.observe("remove_file", time.Now())

	if fi.index.Contains(file) {
		fi.removeLocked(file)
	}
}

func (fi *FileIndexer) Clear() {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.clearLocked("requested")
}

// Search returns the files containing keyword, sorted by path. The keyword
// is trimmed and lower-cased first, so lookups are case-insensitive.
func (fi *FileIndexer) Search(keyword string) []index.File {
	token := tokenizer.Normalize(keyword)
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	defer fi.observe("search", time.Now())

	var results []index.File
	if token != "" {
		results = fi.index.Search(token).Sorted()
	}
	if len(results) == 0 {
		fi.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
		return []index.File{}
	}
	fi.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	return results
}

// IndexedFiles returns every indexed file, sorted by path.
func (fi *FileIndexer) IndexedFiles() []index.File {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.index.IndexedFiles().Sorted()
}

func (fi *FileIndexer) IsIndexed(path string) bool {
	file := Canonical(path)
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.index.Contains(file)
}

func (fi *FileIndexer) Stats() Stats {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return Stats{Files: fi.index.FileCount(), Terms: fi.index.TermCount()}
}

// Terms returns the vocabulary with the files posted under each term.
func (fi *FileIndexer) Terms() []index.TermEntry {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.index.Snapshot()
}

func (fi *FileIndexer) Policy() string {
	return fi.policy
}

// HealthCheck reports the index as up with its current size.
func (fi *FileIndexer) HealthCheck() health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		s := fi.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d files, %d terms", s.Files, s.Terms),
		}
	}
}

func (fi *FileIndexer) indexLocked(ctx context.Context, file index.File) error {
	content, err := fi.reader.ReadText(ctx, string(file))
	if err != nil {
		fi.recordFailure(ctx, file, err)
		return err
	}
	fi.commit(ctx, file, content)
	return nil
}

// commit inserts the tokens of content under file. Tokens are lower-cased
// here as well so a case-preserving Tokenizer cannot break case-insensitive
// search.
func (fi *FileIndexer) commit(ctx context.Context, file index.File, content string) {
	tokens := fi.tokenizer.Tokenize(content)
	for _, token := range tokens {
		fi.index.Add(strings.ToLower(token), file)
	}
	if len(tokens) == 0 {
		fi.index.Track(file)
	}
	fi.metrics.FilesIndexedTotal.Inc()
	fi.refreshGauges()
	fi.notify(changefeed.Event{
		Type:       changefeed.EventFileIndexed,
		File:       string(file),
		TokenCount: len(tokens),
	})
	logger.FromContext(ctx, fi.logger).Debug("file indexed",
		"file", file,
		"token_count", len(tokens),
	)
}

// stage reads every file concurrently. Once a read fails, files later in
// argument order are skipped; files earlier in order are still read, so the
// reported failure is always the first one in argument order.
func (fi *FileIndexer) stage(ctx context.Context, files []index.File) ([]string, *apperrors.BatchError) {
	contents := make([]string, len(files))
	errs := make([]error, len(files))

	var mu sync.Mutex
	firstFailed := len(files)
	skip := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return i > firstFailed
	}
	fail := func(i int) {
		mu.Lock()
		defer mu.Unlock()
		if i < firstFailed {
			firstFailed = i
		}
	}

	var g errgroup.Group
	g.SetLimit(fi.readWorkers)
	for i, file := range files {
		if skip(i) {
			break
		}
		g.Go(func() error {
			if skip(i) {
				return nil
			}
			content, err := fi.reader.ReadText(ctx, string(file))
			if err != nil {
				errs[i] = err
				fail(i)
				return nil
			}
			contents[i] = content
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &apperrors.BatchError{Path: string(files[i]), Index: i, Cause: err}
		}
	}
	return contents, nil
}

func (fi *FileIndexer) abort(ctx context.Context, size int, be *apperrors.BatchError) {
	fi.recordFailure(ctx, index.File(be.Path), be.Cause)
	fi.metrics.BatchAbortsTotal.WithLabelValues(fi.policy).Inc()
	logger.FromContext(ctx, fi.logger).Warn("batch aborted",
		"files", size,
		"failed_file", be.Path,
		"failed_index", be.Index,
		"policy", fi.policy,
		"error", be.Cause,
	)
	fi.notify(changefeed.Event{
		Type:   changefeed.EventBatchAborted,
		File:   be.Path,
		Files:  size,
		Policy: fi.policy,
		Reason: apperrors.Kind(be.Cause),
	})
	if fi.policy == config.PolicyClear {
		fi.clearLocked("batch_aborted")
	}
}

func (fi *FileIndexer) removeLocked(file index.File) {
	fi.index.Remove(file)
	fi.metrics.FilesRemovedTotal.Inc()
	fi.refreshGauges()
	fi.notify(changefeed.Event{Type: changefeed.EventFileRemoved, File: string(file)})
	fi.logger.Debug("file removed", "file", file)
}

func (fi *FileIndexer) clearLocked(reason string) {
	files := fi.index.FileCount()
	fi.index.Clear()
	fi.refreshGauges()
	fi.notify(changefeed.Event{Type: changefeed.EventIndexCleared, Files: files, Reason: reason})
	fi.logger.Info("index cleared", "files", files, "reason", reason)
}

func (fi *FileIndexer) recordFailure(ctx context.Context, file index.File, err error) {
	kind := apperrors.Kind(err)
	fi.metrics.IndexFailuresTotal.WithLabelValues(kind).Inc()
	logger.FromContext(ctx, fi.logger).Warn("failed to read file",
		"file", file,
		"kind", kind,
		"error", err,
	)
}

func (fi *FileIndexer) refreshGauges() {
	fi.metrics.IndexedFiles.Set(float64(fi.index.FileCount()))
	fi.metrics.Terms.Set(float64(fi.index.TermCount()))
}

func (fi *FileIndexer) observe(op string, start time.Time) {
	fi.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (fi *FileIndexer) notify(event changefeed.Event) {
	if fi.notifier == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	fi.notifier.Track(event)
}
