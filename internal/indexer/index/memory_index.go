// Package index implements the in-memory inverted index: a map from token to
// the set of files containing it, plus the authoritative set of indexed
// files.
//
// Removal is eager: Remove walks every posting set, deletes the file and
// prunes sets that become empty. Postings therefore never reference a file
// that is no longer indexed, and Search needs no filtering at read time.
// The cost is O(vocabulary) per removal.
//
// MemoryIndex is not safe for concurrent use; callers serialise access.
package index

import "sort"

type MemoryIndex struct {
	postings map[string]FileSet
	files    FileSet
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		postings: make(map[string]FileSet),
		files:    make(FileSet),
	}
}

// Add posts file under token and marks it indexed. Adding the same pair
// twice has no further effect.
func (m *MemoryIndex) Add(token string, file File) {
	set, ok := m.postings[token]
	if !ok {
		set = make(FileSet)
		m.postings[token] = set
	}
	set.Add(file)
	m.files.Add(file)
}

// Track marks file indexed without posting it under any token. Used for
// files that produced no tokens.
func (m *MemoryIndex) Track(file File) {
	m.files.Add(file)
}

// Remove drops file from the index. Unknown files are ignored.
func (m *MemoryIndex) Remove(file File) {
	if !m.files.Contains(file) {
		return
	}
	delete(m.files, file)
	for token, set := range m.postings {
		delete(set, file)
		if len(set) == 0 {
			delete(m.postings, token)
		}
	}
}

// Search returns a copy of the files posted under token.
func (m *MemoryIndex) Search(token string) FileSet {
	set, ok := m.postings[token]
	if !ok {
		return FileSet{}
	}
	out := make(FileSet, len(set))
	for f := range set {
		if m.files.Contains(f) {
			out[f] = struct{}{}
		}
	}
	return out
}

func (m *MemoryIndex) Clear() {
	m.postings = make(map[string]FileSet)
	m.files = make(FileSet)
}

// IndexedFiles returns a copy of the indexed-file set.
func (m *MemoryIndex) IndexedFiles() FileSet {
	return m.files.Clone()
}

func (m *MemoryIndex) Contains(file File) bool {
	return m.files.Contains(file)
}

func (m *MemoryIndex) FileCount() int {
	return len(m.files)
}

func (m *MemoryIndex) TermCount() int {
	return len(m.postings)
}

// Snapshot returns every term with its files, sorted by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(m.postings))
	for term, set := range m.postings {
		entries = append(entries, TermEntry{
			Term:  term,
			Files: set.Sorted(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
