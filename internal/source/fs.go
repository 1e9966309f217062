// Package source reads and classifies files on the local filesystem. It is
// the content provider behind the file indexer: a path is either returned as
// text or rejected as not found, not readable or not text.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

const textPlain = "text/plain"

// cacheKey invalidates itself when a file changes size or mtime.
type cacheKey struct {
	path    string
	size    int64
	modNano int64
}

type classification struct {
	mime string
	text bool
}

// FS is the filesystem content provider.
type FS struct {
	maxFileSize int64
	include     []string
	exclude     []string
	mimeCache   *lru.Cache[cacheKey, classification]
	logger      *slog.Logger
}

func New(cfg config.SourceConfig) (*FS, error) {
	size := cfg.MimeCacheSize
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[cacheKey, classification](size)
	if err != nil {
		return nil, fmt.Errorf("creating mime cache: %w", err)
	}
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = config.Default().Source.MaxFileSize
	}
	return &FS{
		maxFileSize: maxSize,
		include:     cfg.Include,
		exclude:     cfg.Exclude,
		mimeCache:   cache,
		logger:      slog.Default().With("component", "source"),
	}, nil
}

// ReadText returns the content of path if it is a readable text file. Text
// in any encoding other than UTF-8 is rejected as not readable.
func (s *FS) ReadText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := s.stat(path)
	if err != nil {
		return "", err
	}
	c, err := s.classify(path, info)
	if err != nil {
		return "", err
	}
	if !c.text {
		s.logger.Debug("rejecting non-text file", "file", path, "mime", c.mime)
		return "", apperrors.NewFileError(apperrors.ErrFileNotText, path, fmt.Errorf("detected %s", c.mime))
	}
	if info.Size() == 0 {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", readError(path, err)
	}
	if !utf8.Valid(data) {
		return "", apperrors.NewFileError(apperrors.ErrFileNotReadable, path,
			fmt.Errorf("content is not valid UTF-8 (detected %s)", c.mime))
	}
	return string(data), nil
}

// IsText reports whether path is a regular file classified as text.
func (s *FS) IsText(path string) bool {
	info, err := s.stat(path)
	if err != nil {
		return false
	}
	c, err := s.classify(path, info)
	if err != nil {
		return false
	}
	return c.text
}

// MimeType returns the detected type of path.
func (s *FS) MimeType(path string) (string, error) {
	info, err := s.stat(path)
	if err != nil {
		return "", err
	}
	c, err := s.classify(path, info)
	if err != nil {
		return "", err
	}
	return c.mime, nil
}

func (s *FS) stat(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, readError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, apperrors.NewFileError(apperrors.ErrFileNotFound, path, errors.New("not a regular file"))
	}
	if info.Size() > s.maxFileSize {
		return nil, apperrors.NewFileError(apperrors.ErrFileNotReadable, path,
			fmt.Errorf("size %d exceeds limit %d", info.Size(), s.maxFileSize))
	}
	return info, nil
}

// classify detects the MIME type of a regular file. Zero-byte files carry no
// content to sniff and are treated as plain text.
func (s *FS) classify(path string, info fs.FileInfo) (classification, error) {
	if info.Size() == 0 {
		return classification{mime: textPlain, text: true}, nil
	}
	key := cacheKey{path: path, size: info.Size(), modNano: info.ModTime().UnixNano()}
	if c, ok := s.mimeCache.Get(key); ok {
		return c, nil
	}
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return classification{}, readError(path, err)
	}
	c := classification{mime: detected.String(), text: isTextLineage(detected)}
	s.mimeCache.Add(key, c)
	return c, nil
}

// isTextLineage walks the detection tree: JSON, CSV, source code and the
// like all descend from text/plain.
func isTextLineage(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(textPlain) || strings.HasPrefix(m.String(), "text/") {
			return true
		}
	}
	return false
}

func readError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewFileError(apperrors.ErrFileNotFound, path, nil)
	}
	return apperrors.NewFileError(apperrors.ErrFileNotReadable, path, err)
}
