package ingestion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/wordgraph/internal/graph"
	"github.com/Benny93/wordgraph/internal/storage"
)

func TestRunPipeline(t *testing.T) {
	t.Parallel()

	t.Run("IngestsFilesInOrderWithCarryOver", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{
			"1.txt": "alpha beta",
			"2.txt": "gamma",
		})

		g := graph.NewWordGraph()
		result, err := RunPipeline(t.Context(), NewBuilder(g), []string{tmpDir}, nil, nil, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Files)
		assert.Equal(t, 3, result.Tokens)
		assert.Equal(t, 2, result.Edges)
		assert.Equal(t, 3, result.Nodes)
		assert.Equal(t, 2, result.DistinctEdges)
		assert.Equal(t, "alpha", g.Root())
		assert.True(t, g.HasEdge("beta", "gamma"), "last word of 1.txt links to first word of 2.txt")
		assert.Len(t, result.Sources, 2)
		assert.Len(t, result.Sources[filepath.Join(tmpDir, "1.txt")], 64)
	})

	t.Run("FilesAndDirectoriesMixed", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{
			"single.text":     "one two",
			"corpus/book.txt": "three",
		})

		g := graph.NewWordGraph()
		paths := []string{filepath.Join(tmpDir, "single.text"), filepath.Join(tmpDir, "corpus")}
		result, err := RunPipeline(t.Context(), NewBuilder(g), paths, nil, nil, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Files)
		assert.True(t, g.HasEdge("two", "three"))
	})

	t.Run("RecordsSources", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{"a.txt": "to seek out\nnew worlds"})

		store := storage.NewMemoryBackend()
		_, err := RunPipeline(t.Context(), NewBuilder(graph.NewWordGraph()), []string{tmpDir}, nil, store, nil)
		require.NoError(t, err)

		sources, err := store.ListSources(t.Context())
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, filepath.Join(tmpDir, "a.txt"), sources[0].Path)
		assert.Equal(t, 2, sources[0].Lines)
		assert.Equal(t, 5, sources[0].Tokens)
		assert.Equal(t, 4, sources[0].Edges)
		assert.Len(t, sources[0].SHA256, 64)
		assert.False(t, sources[0].IngestedAt.IsZero())
	})

	t.Run("ReportsProgress", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{"a.txt": "a", "b.txt": "b"})

		var phases []string
		var last float64
		progress := func(phase string, p float64) {
			phases = append(phases, phase)
			last = p
		}

		_, err := RunPipeline(t.Context(), NewBuilder(graph.NewWordGraph()), []string{tmpDir}, nil, nil, progress)
		require.NoError(t, err)

		assert.Contains(t, phases, "Walking corpus")
		assert.Contains(t, phases, "Building graph")
		assert.Equal(t, 1.0, last)
	})

	t.Run("MissingPath", func(t *testing.T) {
		t.Parallel()
		_, err := RunPipeline(t.Context(), NewBuilder(graph.NewWordGraph()), []string{"/does/not/exist"}, nil, nil, nil)
		assert.Error(t, err)
	})

	t.Run("FailureKeepsIngestedFiles", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{"a.txt": "alpha", "b.txt": "beta", "c.txt": "gamma"})

		store := rejectingStore{MemoryBackend: storage.NewMemoryBackend(), reject: "b.txt"}
		g := graph.NewWordGraph()
		result, err := RunPipeline(t.Context(), NewBuilder(g), []string{tmpDir}, nil, store, nil)
		require.ErrorContains(t, err, "recording b.txt")
		require.NotNil(t, result)

		assert.Equal(t, 2, result.Files)
		assert.Equal(t, 2, result.Tokens)
		assert.Contains(t, result.Sources, filepath.Join(tmpDir, "a.txt"))
		assert.Contains(t, result.Sources, filepath.Join(tmpDir, "b.txt"))
		assert.NotContains(t, result.Sources, filepath.Join(tmpDir, "c.txt"))
		assert.True(t, g.HasEdge("alpha", "beta"))
		assert.False(t, g.HasNode("gamma"))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		t.Parallel()
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, map[string]string{"a.txt": "a b"})

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		g := graph.NewWordGraph()
		_, err := RunPipeline(ctx, NewBuilder(g), []string{tmpDir}, nil, nil, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, g.NodeCount())
	})
}

func TestIngestEntries(t *testing.T) {
	t.Parallel()

	g := graph.NewWordGraph()
	entries := []FileEntry{
		{Path: "x", RelPath: "x", Content: []byte("new life")},
		{Path: "y", RelPath: "y", Content: []byte("\nand new")},
	}

	var calls []int
	stats, err := IngestEntries(t.Context(), NewBuilder(g), entries, nil, func(done, total int) {
		assert.Equal(t, 2, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, calls)
	assert.Equal(t, IngestStats{Lines: 3, SkippedLines: 1, Tokens: 4, Edges: 3}, stats)
	assert.True(t, g.HasEdge("life", "and"))
}

type rejectingStore struct {
	*storage.MemoryBackend
	reject string
}

func (s rejectingStore) RecordSource(ctx context.Context, rec storage.SourceRecord) error {
	if filepath.Base(rec.Path) == s.reject {
		return errors.New("disk full")
	}
	return s.MemoryBackend.RecordSource(ctx, rec)
}
