// Package shell implements the interactive command loop in front of a
// FileIndexer. The shell keeps its own working directory; relative paths in
// commands are resolved against it and never against the process cwd.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
)

// Indexer is the part of indexer.FileIndexer the shell drives.
type Indexer interface {
	IndexFiles(ctx context.Context, paths ...string) error
	UpdateFile(ctx context.Context, path string) error
	RemoveFile(path string)
	Clear()
	Search(keyword string) []index.File
	IndexedFiles() []index.File
	IsIndexed(path string) bool
	Stats() indexer.Stats
	Terms() []index.TermEntry
}

// Enumerator expands a path into the text files beneath it.
type Enumerator interface {
	Enumerate(ctx context.Context, root string, recursive bool) ([]string, error)
}

// Watcher is notified of every root the user indexes.
type Watcher interface {
	Watch(path string, recursive bool) error
}

type Option func(*Shell)

// WithInteractive prints the banner, working directory and prompt before
// each command.
func WithInteractive(on bool) Option {
	return func(s *Shell) { s.interactive = on }
}

func WithWorkingDir(dir string) Option {
	return func(s *Shell) { s.cwd = dir }
}

func WithHomeDir(dir string) Option {
	return func(s *Shell) { s.home = dir }
}

func WithWatcher(w Watcher) Option {
	return func(s *Shell) { s.watcher = w }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) { s.logger = l.With("component", "shell") }
}

type Shell struct {
	idx         Indexer
	src         Enumerator
	watcher     Watcher
	in          *bufio.Scanner
	out         io.Writer
	cwd         string
	home        string
	interactive bool
	logger      *slog.Logger
	seq         uint64
}

func New(idx Indexer, src Enumerator, in io.Reader, out io.Writer, opts ...Option) (*Shell, error) {
	s := &Shell{
		idx:    idx,
		src:    src,
		in:     bufio.NewScanner(in),
		out:    out,
		logger: slog.Default().With("component", "shell"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		s.cwd = wd
	}
	if s.home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			s.home = home
		} else {
			s.home = s.cwd
		}
	}
	abs, err := filepath.Abs(s.cwd)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	s.cwd = abs
	return s, nil
}

// Dir returns the shell's working directory.
func (s *Shell) Dir() string { return s.cwd }

// Run reads commands until exit is confirmed, input ends or ctx is
// cancelled.
func (s *Shell) Run(ctx context.Context) error {
	if s.interactive {
		fmt.Fprintln(s.out, "Welcome to the Text File Indexer!")
		fmt.Fprintln(s.out, "Type 'help' for a list of commands.")
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if s.interactive {
			fmt.Fprintf(s.out, "Working Directory: %s\n> ", s.cwd)
		}
		line, ok := s.readLine()
		if !ok {
			break
		}
		exit, err := s.Exec(ctx, line)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		if exit {
			break
		}
		if s.interactive {
			fmt.Fprintln(s.out)
		}
	}
	if s.interactive {
		fmt.Fprintln(s.out, "Thank you for using the File Indexer & Search Utility!")
	}
	return s.in.Err()
}

// Exec parses and runs one line. exit reports whether the user confirmed
// leaving the shell.
func (s *Shell) Exec(ctx context.Context, line string) (exit bool, err error) {
	cmd, ok, err := Parse(line)
	if err != nil || !ok {
		return false, err
	}
	s.seq++
	ctx = logger.WithCommandID(ctx, s.seq)
	logger.FromContext(ctx, s.logger).Debug("executing command", "command", cmd.Kind, "args", len(cmd.Args))

	switch cmd.Kind {
	case CmdHelp:
		s.help()
	case CmdIndex:
		return false, s.index(ctx, cmd.Args, cmd.Recursive)
	case CmdQuery:
		s.query(cmd.Args[0])
	case CmdUpdate:
		return false, s.update(ctx, cmd.Args)
	case CmdRemove:
		s.remove(cmd.Args)
	case CmdIndexed:
		s.indexed()
	case CmdTerms:
		s.terms()
	case CmdClear:
		s.idx.Clear()
		fmt.Fprintln(s.out, "Index cleared.")
	case CmdCd:
		return false, s.cd(cmd.Args)
	case CmdLs:
		return false, s.ls()
	case CmdPwd:
		fmt.Fprintln(s.out, s.cwd)
	case CmdExit:
		return s.confirm("Are you sure you want to exit? (y/n) "), nil
	}
	return false, nil
}

func (s *Shell) help() {
	fmt.Fprint(s.out, `Available commands:
  index [-r] <path>...  Index text files in the given files and directories.
  query <word>          List files containing the word.
  update <path>...      Re-read files that are already indexed.
  remove <path>...      Drop files from the index.
  indexed               List indexed files.
  terms                 List indexed terms with their file counts.
  clear                 Empty the index.
  cd [path]             Change the working directory (home if omitted).
  ls                    List the working directory.
  pwd                   Print the working directory.
  exit                  Leave the shell.
Quote paths that contain spaces.
`)
}

func (s *Shell) index(ctx context.Context, args []string, recursive bool) error {
	var fresh, known []string
	seen := make(map[string]bool)
	for _, arg := range args {
		root := s.resolve(arg)
		files, err := s.src.Enumerate(ctx, root, recursive)
		if err != nil {
			fmt.Fprintf(s.out, "Skipping %s: %v\n", arg, err)
			continue
		}
		if s.watcher != nil {
			if err := s.watcher.Watch(root, recursive); err != nil {
				s.logger.Warn("failed to watch path", "path", root, "error", err)
			}
		}
		for _, f := range files {
			if seen[f] {
				continue
			}
			seen[f] = true
			if s.idx.IsIndexed(f) {
				known = append(known, f)
			} else {
				fresh = append(fresh, f)
			}
		}
	}

	if len(fresh) > 0 {
		if err := s.idx.IndexFiles(ctx, fresh...); err != nil {
			return describe(err)
		}
		fmt.Fprintf(s.out, "Indexed %d file(s).\n", len(fresh))
	}

	for _, f := range known {
		if !s.confirm(fmt.Sprintf("File `%s` already indexed. Update? (y/n) ", filepath.Base(f))) {
			continue
		}
		if err := s.idx.UpdateFile(ctx, f); err != nil {
			return describe(err)
		}
		fmt.Fprintf(s.out, "Updated %s\n", f)
	}

	if len(fresh) == 0 && len(known) == 0 {
		fmt.Fprintln(s.out, "No text files found.")
	}
	return nil
}

func (s *Shell) query(keyword string) {
	word := tokenizer.Normalize(keyword)
	files := s.idx.Search(keyword)
	if len(files) == 0 {
		fmt.Fprintf(s.out, "No files found containing '%s'\n", word)
		return
	}
	fmt.Fprintf(s.out, "Files containing '%s':\n", word)
	for _, f := range files {
		fmt.Fprintf(s.out, "- %s\n", f)
	}
}

func (s *Shell) update(ctx context.Context, args []string) error {
	for _, arg := range args {
		path := s.resolve(arg)
		if err := s.idx.UpdateFile(ctx, path); err != nil {
			return describe(err)
		}
		fmt.Fprintf(s.out, "Updated %s\n", path)
	}
	return nil
}

func (s *Shell) remove(args []string) {
	for _, arg := range args {
		path := s.resolve(arg)
		if !s.idx.IsIndexed(path) {
			fmt.Fprintf(s.out, "Not indexed: %s\n", path)
			continue
		}
		s.idx.RemoveFile(path)
		fmt.Fprintf(s.out, "Removed %s\n", path)
	}
}

func (s *Shell) indexed() {
	files := s.idx.IndexedFiles()
	if len(files) == 0 {
		fmt.Fprintln(s.out, "No files indexed.")
		return
	}
	for _, f := range files {
		fmt.Fprintf(s.out, "- %s\n", f)
	}
	st := s.idx.Stats()
	fmt.Fprintf(s.out, "%d file(s), %d term(s)\n", st.Files, st.Terms)
}

func (s *Shell) terms() {
	entries := s.idx.Terms()
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No terms indexed.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%s\t%d\n", e.Term, len(e.Files))
	}
}

func (s *Shell) cd(args []string) error {
	if len(args) == 0 {
		s.cwd = s.home
		fmt.Fprintf(s.out, "Changed directory to: %s\n", s.cwd)
		return nil
	}
	target := s.resolve(args[0])
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: directory doesn't exist: %s", apperrors.ErrFileNotFound, target)
	}
	s.cwd = target
	fmt.Fprintf(s.out, "Changed directory to: %s\n", s.cwd)
	return nil
}

func (s *Shell) ls() error {
	entries, err := os.ReadDir(s.cwd)
	if err != nil {
		return fmt.Errorf("listing %s: %w", s.cwd, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintln(s.out, e.Name()+"/")
		} else {
			fmt.Fprintln(s.out, e.Name())
		}
	}
	return nil
}

func (s *Shell) resolve(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		path = filepath.Join(s.home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cwd, path)
	}
	return filepath.Clean(path)
}

func (s *Shell) confirm(prompt string) bool {
	fmt.Fprint(s.out, prompt)
	answer, ok := s.readLine()
	if !s.interactive {
		fmt.Fprintln(s.out)
	}
	return ok && strings.EqualFold(strings.TrimSpace(answer), "y")
}

func (s *Shell) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

// describe turns indexing failures into a message naming the file that
// caused them.
func describe(err error) error {
	var be *apperrors.BatchError
	if errors.As(err, &be) {
		return fmt.Errorf("indexing aborted at %s: %w", be.Path, be.Cause)
	}
	var fe *apperrors.FileError
	if errors.As(err, &fe) {
		return fmt.Errorf("%s: %w", fe.Path, fe.Err)
	}
	return err
}
