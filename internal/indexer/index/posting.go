package index

import "sort"

// File identifies an indexed document by its canonical absolute path.
type File string

// FileSet is a set of files. Posting sets and the indexed-file set share
// this representation.
type FileSet map[File]struct{}

func (s FileSet) Add(f File) {
	s[f] = struct{}{}
}

func (s FileSet) Contains(f File) bool {
	_, ok := s[f]
	return ok
}

func (s FileSet) Clone() FileSet {
	out := make(FileSet, len(s))
	for f := range s {
		out[f] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s FileSet) Sorted() []File {
	out := make([]File, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i] < out[j]
	})
	return out
}

// TermEntry is one row of an index snapshot.
type TermEntry struct {
	Term  string
	Files []File
}
