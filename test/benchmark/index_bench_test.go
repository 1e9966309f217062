// Package benchmark contains Go benchmarks for the tokenizer, the memory
// index and the file indexer, measuring throughput and allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
)

const body = "an inverted index maps every token to the files that contain it"

// memReader serves file contents from memory so the benchmarks measure the
// indexer rather than the disk.
type memReader map[string]string

func (r memReader) ReadText(_ context.Context, path string) (string, error) {
	return r[path], nil
}

func populate(mi *index.MemoryIndex, n int) {
	tokens := tokenizer.Tokenize(body)
	for i := 0; i < n; i++ {
		file := index.File(fmt.Sprintf("/corpus/file-%d.txt", i))
		for _, tok := range tokens {
			mi.Add(tok, file)
		}
	}
}

// BenchmarkMemoryIndexAdd measures per-file insert throughput into the
// in-memory inverted index.
func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := index.NewMemoryIndex()
	tokens := tokenizer.Tokenize(body)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		file := index.File(fmt.Sprintf("/corpus/file-%d.txt", i))
		for _, tok := range tokens {
			mi.Add(tok, file)
		}
	}
}

// BenchmarkMemoryIndexSearch measures single-token lookup latency over
// 10 000 files. Search copies the posting set, so cost grows with hits.
func BenchmarkMemoryIndexSearch(b *testing.B) {
	mi := index.NewMemoryIndex()
	populate(mi, 10000)

	b.Run("hit", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = mi.Search("index")
		}
	})
	b.Run("miss", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = mi.Search("absent")
		}
	})
}

// BenchmarkMemoryIndexRemove measures eager pruning of one file.
func BenchmarkMemoryIndexRemove(b *testing.B) {
	mi := index.NewMemoryIndex()
	populate(mi, b.N)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.Remove(index.File(fmt.Sprintf("/corpus/file-%d.txt", i)))
	}
}

func BenchmarkMemoryIndexSnapshot(b *testing.B) {
	mi := index.NewMemoryIndex()
	populate(mi, 5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = mi.Snapshot()
	}
}

// BenchmarkIndexFiles measures batch throughput at several batch sizes and
// read-worker counts.
func BenchmarkIndexFiles(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		reader := memReader{}
		paths := make([]string, size)
		for i := range paths {
			paths[i] = fmt.Sprintf("/corpus/file-%d.txt", i)
			reader[paths[i]] = body
		}
		for _, workers := range []int{1, 4} {
			b.Run(fmt.Sprintf("files_%d/workers_%d", size, workers), func(b *testing.B) {
				fi := indexer.New(reader, indexer.WithConfig(config.IndexerConfig{
					BatchFailurePolicy: config.PolicyClear,
					ReadWorkers:        workers,
				}))
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := fi.IndexFiles(context.Background(), paths...); err != nil {
						b.Fatal(err)
					}
					fi.Clear()
				}
			})
		}
	}
}

// BenchmarkSearchParallel measures concurrent reads through the indexer's
// shared lock.
func BenchmarkSearchParallel(b *testing.B) {
	reader := memReader{}
	paths := make([]string, 10000)
	for i := range paths {
		paths[i] = fmt.Sprintf("/corpus/file-%d.txt", i)
		reader[paths[i]] = body
	}
	fi := indexer.New(reader)
	if err := fi.IndexFiles(context.Background(), paths...); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = fi.Search("token")
		}
	})
}
