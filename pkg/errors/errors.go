// Package errors defines the error vocabulary shared by the indexer, the
// content provider and the shell. Failures originate at the file-read
// boundary and are reported as sentinels wrapped with the offending path.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrFileNotReadable = errors.New("file not readable")
	ErrFileNotText     = errors.New("file is not a text file")
	ErrBatchAborted    = errors.New("batch aborted")
	ErrInvalidInput    = errors.New("invalid input")
)

// FileError ties a sentinel to the path that produced it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err.Error())
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError wraps sentinel with path. If cause is non-nil it is kept in
// the chain so callers can still inspect the underlying I/O error.
func NewFileError(sentinel error, path string, cause error) *FileError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &FileError{Path: path, Err: err}
}

// BatchError reports the first file, in argument order, that failed a
// multi-file indexing call.
type BatchError struct {
	Path  string
	Index int
	Cause error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s at file %d (%s): %v", ErrBatchAborted, e.Index, e.Path, e.Cause)
}

func (e *BatchError) Unwrap() []error {
	return []error{ErrBatchAborted, e.Cause}
}

// Kind returns a stable, low-cardinality label for err, suitable for metric
// labels and log fields.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBatchAborted):
		return "batch_aborted"
	case errors.Is(err, ErrFileNotFound):
		return "not_found"
	case errors.Is(err, ErrFileNotReadable):
		return "not_readable"
	case errors.Is(err, ErrFileNotText):
		return "not_text"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
