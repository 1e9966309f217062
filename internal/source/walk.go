package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

// Enumerate lists the text files under root as absolute paths in lexical
// order. A root that is itself a file yields that file when it is text;
// include/exclude patterns apply only to files found inside a directory.
// Without recursive, only the immediate children of root are considered.
func (s *FS) Enumerate(ctx context.Context, root string, recursive bool) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, readError(absRoot, err)
	}
	if !info.IsDir() {
		if s.IsText(absRoot) {
			return []string{absRoot}, nil
		}
		return nil, nil
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(absRoot)
		if err != nil {
			return nil, apperrors.NewFileError(apperrors.ErrFileNotReadable, absRoot, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(absRoot, entry.Name())
			if s.accept(absRoot, path) {
				files = append(files, path)
			}
		}
		return files, nil
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Debug("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != absRoot && s.excluded(absRoot, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.accept(absRoot, path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}
	return files, nil
}

// Matches reports whether path, relative to root, passes the include and
// exclude patterns. A file below an excluded directory never matches, the
// same as during a recursive walk.
func (s *FS) Matches(root, path string) bool {
	rel, ok := relSlash(root, path)
	if !ok || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	if matchAny(s.exclude, rel) {
		return false
	}
	for dir := pathpkg.Dir(rel); dir != "." && dir != "/"; dir = pathpkg.Dir(dir) {
		if s.excludedRel(dir) {
			return false
		}
	}
	return len(s.include) == 0 || matchAny(s.include, rel)
}

// ExcludedDir reports whether dir, a directory below root, is skipped by
// the exclude patterns.
func (s *FS) ExcludedDir(root, dir string) bool {
	return s.excluded(root, dir)
}

func (s *FS) accept(root, path string) bool {
	if !s.Matches(root, path) {
		return false
	}
	if !s.IsText(path) {
		s.logger.Debug("skipping non-text file", "file", path)
		return false
	}
	return true
}

func (s *FS) excluded(root, dir string) bool {
	rel, ok := relSlash(root, dir)
	if !ok || rel == "." {
		return false
	}
	return s.excludedRel(rel)
}

func (s *FS) excludedRel(rel string) bool {
	return matchAny(s.exclude, rel) || matchAny(s.exclude, rel+"/")
}

func relSlash(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
