package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Benny93/wordgraph/internal/storage"
)

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Files         int
	Lines         int
	SkippedLines  int
	Tokens        int
	Edges         int
	Nodes         int
	DistinctEdges int
	DurationSecs  float64

	// Sources maps every ingested file path to its content hash.
	Sources map[string]string
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// RunPipeline walks every corpus path and feeds the files to b in order.
//
// Paths may name files or directories. Files are ingested one after the
// other, so the last word of one file is adjacent to the first word of the
// next. When store is non-nil, every ingested file is recorded in it.
// Cancelling ctx stops the run between files; files already ingested stay
// in the graph. When ingestion fails part way, the result covering the
// files already in the graph is returned together with the error.
func RunPipeline(
	ctx context.Context,
	b *Builder,
	paths []string,
	exts []string,
	store storage.StorageBackend,
	progress ProgressCallback,
) (*PipelineResult, error) {
	start := time.Now()

	if progress != nil {
		progress("Walking corpus", 0.0)
	}

	var entries []FileEntry
	for _, p := range paths {
		found, err := WalkCorpus(p, nil, exts)
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		entries = append(entries, found...)
	}

	if progress != nil {
		progress("Walking corpus", 1.0)
	}

	var done int
	stats, err := IngestEntries(ctx, b, entries, store, func(n, total int) {
		done = n
		if progress != nil {
			progress("Building graph", float64(n)/float64(total))
		}
	})
	if err != nil {
		return newPipelineResult(b, entries[:done], stats, start), err
	}

	return newPipelineResult(b, entries, stats, start), nil
}

func newPipelineResult(b *Builder, ingested []FileEntry, stats IngestStats, start time.Time) *PipelineResult {
	sources := make(map[string]string, len(ingested))
	for _, entry := range ingested {
		sources[entry.Path] = entry.SHA256
	}

	g := b.Graph()
	return &PipelineResult{
		Files:         len(ingested),
		Lines:         stats.Lines,
		SkippedLines:  stats.SkippedLines,
		Tokens:        stats.Tokens,
		Edges:         stats.Edges,
		Nodes:         g.NodeCount(),
		DistinctEdges: g.EdgeCount(),
		DurationSecs:  time.Since(start).Seconds(),
		Sources:       sources,
	}
}

// IngestEntries ingests entries into b in order and records each one in
// store when store is non-nil. onFile, if set, is called as soon as a file
// is in the graph, before it is recorded.
func IngestEntries(
	ctx context.Context,
	b *Builder,
	entries []FileEntry,
	store storage.StorageBackend,
	onFile func(done, total int),
) (IngestStats, error) {
	var total IngestStats

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		stats, err := b.IngestReader(bytes.NewReader(entry.Content))
		total.Add(stats)
		if err != nil {
			return total, fmt.Errorf("ingesting %s: %w", entry.RelPath, err)
		}

		if onFile != nil {
			onFile(i+1, len(entries))
		}

		if store != nil {
			rec := storage.SourceRecord{
				Path:       entry.Path,
				SHA256:     entry.SHA256,
				Lines:      stats.Lines,
				Tokens:     stats.Tokens,
				Edges:      stats.Edges,
				IngestedAt: time.Now().UTC(),
			}
			if err := store.RecordSource(ctx, rec); err != nil {
				return total, fmt.Errorf("recording %s: %w", entry.RelPath, err)
			}
		}
	}

	return total, nil
}
