package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fileA File = "/docs/a.txt"
	fileB File = "/docs/b.txt"
)

func TestAddAndSearch(t *testing.T) {
	m := NewMemoryIndex()
	m.Add("the", fileA)
	m.Add("fox", fileA)
	m.Add("the", fileB)

	assert.Equal(t, []File{fileA, fileB}, m.Search("the").Sorted())
	assert.Equal(t, []File{fileA}, m.Search("fox").Sorted())
	assert.Empty(t, m.Search("cat"))
	assert.Equal(t, 2, m.FileCount())
	assert.Equal(t, 2, m.TermCount())
}

func TestAddIsIdempotent(t *testing.T) {
	m := NewMemoryIndex()
	m.Add("hello", fileA)
	m.Add("hello", fileA)

	assert.Len(t, m.Search("hello"), 1)
	assert.Equal(t, 1, m.FileCount())
}

func TestRemovePrunesPostings(t *testing.T) {
	m := NewMemoryIndex()
	m.Add("shared", fileA)
	m.Add("only-a", fileA)
	m.Add("shared", fileB)

	m.Remove(fileA)

	assert.False(t, m.Contains(fileA))
	assert.Empty(t, m.Search("only-a"))
	assert.Equal(t, []File{fileB}, m.Search("shared").Sorted())
	// "only-a" had no other files, so the term is gone entirely.
	assert.Equal(t, 1, m.TermCount())
	for _, entry := range m.Snapshot() {
		assert.NotContains(t, entry.Files, fileA)
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	m := NewMemoryIndex()
	m.Add("x", fileA)

	m.Remove(fileB)

	assert.Equal(t, 1, m.FileCount())
	assert.Equal(t, []File{fileA}, m.Search("x").Sorted())
}

func TestTrackWithoutPostings(t *testing.T) {
	m := NewMemoryIndex()
	m.Track(fileA)

	assert.True(t, m.Contains(fileA))
	assert.Equal(t, 0, m.TermCount())

	m.Remove(fileA)
	assert.False(t, m.Contains(fileA))
}

func TestClear(t *testing.T) {
	m := NewMemoryIndex()
	m.Add("x", fileA)
	m.Track(fileB)

	m.Clear()

	assert.Equal(t, 0, m.FileCount())
	assert.Equal(t, 0, m.TermCount())
	assert.Empty(t, m.Search("x"))
	assert.Empty(t, m.IndexedFiles())
}

func TestResultsAreSnapshots(t *testing.T) {
	m := NewMemoryIndex()
	m.Add("x", fileA)

	got := m.Search("x")
	got.Add(fileB)
	delete(got, fileA)
	files := m.IndexedFiles()
	files.Add(fileB)

	assert.Equal(t, []File{fileA}, m.Search("x").Sorted())
	assert.Equal(t, []File{fileA}, m.IndexedFiles().Sorted())
}

func TestSnapshotSorted(t *testing.T) {
	m := NewMemoryIndex()
	m.Add("zebra", fileB)
	m.Add("apple", fileB)
	m.Add("apple", fileA)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "apple", snap[0].Term)
	assert.Equal(t, []File{fileA, fileB}, snap[0].Files)
	assert.Equal(t, "zebra", snap[1].Term)
}
