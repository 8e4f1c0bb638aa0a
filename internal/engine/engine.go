// Package engine owns one word graph and exposes every graph operation
// behind a single type used by the CLI, the HTTP API and the MCP server.
//
// Ingestion takes the write lock and queries take the read lock, so
// ingestion never overlaps a running query. A random walk holds the read
// lock one step at a time, so ingestion and other queries run between its
// steps.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Benny93/wordgraph/internal/graph"
	"github.com/Benny93/wordgraph/internal/ingestion"
	"github.com/Benny93/wordgraph/internal/logging"
	"github.com/Benny93/wordgraph/internal/metrics"
	"github.com/Benny93/wordgraph/internal/query"
	"github.com/Benny93/wordgraph/internal/render"
	"github.com/Benny93/wordgraph/internal/storage"
)

// Options configures an Engine. Every field is optional.
type Options struct {
	// Store receives walk results and ingested source records.
	Store storage.StorageBackend

	Logger *slog.Logger

	// Extensions filters files picked up from corpus directories.
	Extensions []string

	// Seed makes text generation and walks reproducible when non-zero.
	Seed uint64
}

// Stats summarizes the graph.
type Stats struct {
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
	Adjacencies int    `json:"adjacencies"`
	Root        string `json:"root"`
	Sources     int    `json:"sources"`
}

// Engine bundles the graph, its builder and the query components.
type Engine struct {
	mu sync.RWMutex

	g         *graph.WordGraph
	builder   *ingestion.Builder
	resolver  *query.Resolver
	augmenter *query.Augmenter
	finder    *query.PathFinder

	store  storage.StorageBackend
	logger *slog.Logger
	exts   []string

	seed  uint64
	walks atomic.Uint64

	// sources maps ingested file paths to their content hash.
	sources map[string]string
}

// New creates an Engine with an empty graph.
func New(opts Options) *Engine {
	g := graph.NewWordGraph()

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = ingestion.DefaultExtensions
	}

	e := &Engine{
		g:        g,
		builder:  ingestion.NewBuilder(g),
		resolver: query.NewResolver(g),
		finder:   query.NewPathFinder(g),
		store:    opts.Store,
		logger:   logger,
		exts:     exts,
		seed:     opts.Seed,
		sources:  make(map[string]string),
	}
	e.augmenter = query.NewAugmenter(g, e.randOption(0)...)
	return e
}

// randOption returns the seeded source for stream n, or nothing when the
// engine is unseeded.
func (e *Engine) randOption(n uint64) []query.Option {
	if e.seed == 0 {
		return nil
	}
	return []query.Option{query.WithRand(rand.New(rand.NewPCG(e.seed, n)))}
}

// Graph returns the underlying graph.
func (e *Engine) Graph() *graph.WordGraph {
	return e.g
}

// Extensions returns the corpus file extensions in use.
func (e *Engine) Extensions() []string {
	return e.exts
}

// IngestText adds text to the graph.
func (e *Engine) IngestText(text string) ingestion.IngestStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := e.builder.Ingest(text)
	e.afterIngest(0, stats)
	return stats
}

// IngestReader adds everything read from r to the graph.
func (e *Engine) IngestReader(r io.Reader) (ingestion.IngestStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, err := e.builder.IngestReader(r)
	e.afterIngest(0, stats)
	return stats, err
}

// IngestPaths walks the given files and directories and ingests them in
// order.
func (e *Engine) IngestPaths(ctx context.Context, paths []string, progress ingestion.ProgressCallback) (*ingestion.PipelineResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := ingestion.RunPipeline(ctx, e.builder, paths, e.exts, e.store, progress)
	if res == nil {
		return nil, err
	}

	// Files ingested before a failure are in the graph and stay known.
	maps.Copy(e.sources, res.Sources)
	e.afterIngest(res.Files, ingestion.IngestStats{
		Lines:        res.Lines,
		SkippedLines: res.SkippedLines,
		Tokens:       res.Tokens,
		Edges:        res.Edges,
	})

	msg := "corpus ingested"
	if err != nil {
		msg = "corpus partially ingested"
	}
	e.logger.Info(msg,
		"files", res.Files,
		"tokens", res.Tokens,
		"nodes", res.Nodes,
		"edges", res.DistinctEdges,
		"duration_secs", res.DurationSecs,
	)
	return res, err
}

// IngestEntries ingests already-read files, as delivered by the corpus
// watcher.
func (e *Engine) IngestEntries(ctx context.Context, entries []ingestion.FileEntry) (ingestion.IngestStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats, err := e.ingestEntries(ctx, entries)
	if err != nil {
		return stats, err
	}
	e.logger.Info("files ingested", "files", len(entries), "tokens", stats.Tokens, "nodes", e.g.NodeCount())
	return stats, nil
}

func (e *Engine) ingestEntries(ctx context.Context, entries []ingestion.FileEntry) (ingestion.IngestStats, error) {
	done := 0
	stats, err := ingestion.IngestEntries(ctx, e.builder, entries, e.store, func(n, _ int) {
		entry := entries[n-1]
		e.sources[entry.Path] = entry.SHA256
		done = n
	})
	e.afterIngest(done, stats)
	return stats, err
}

func (e *Engine) afterIngest(files int, stats ingestion.IngestStats) {
	metrics.IngestedFiles.Add(float64(files))
	metrics.IngestedTokens.Add(float64(stats.Tokens))
	metrics.GraphNodes.Set(float64(e.g.NodeCount()))
	metrics.GraphEdges.Set(float64(e.g.EdgeCount()))
	e.logger.Debug("ingested", "lines", stats.Lines, "skipped", stats.SkippedLines, "tokens", stats.Tokens)
}

// KnownSources returns a copy of the path to content-hash map of every
// ingested file.
func (e *Engine) KnownSources() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return maps.Clone(e.sources)
}

// BridgeWords returns the bridge words from w1 to w2.
func (e *Engine) BridgeWords(w1, w2 string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	words, err := e.resolver.BridgeWords(w1, w2)
	e.observe("bridge", start, err)
	return words, err
}

// DescribeBridgeWords returns the user-facing bridge word sentence.
func (e *Engine) DescribeBridgeWords(w1, w2 string) string {
	words, err := e.BridgeWords(w1, w2)
	if err != nil {
		return err.Error()
	}
	return query.FormatBridgeWords(strings.ToLower(w1), strings.ToLower(w2), words)
}

// Augment inserts bridge words into text.
func (e *Engine) Augment(text string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	out := e.augmenter.Augment(text)
	e.observe("generate", start, nil)
	return out
}

// ShortestPaths returns every minimum-weight path from start to end.
func (e *Engine) ShortestPaths(start, end string) (*query.PathResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	began := time.Now()
	res, err := e.finder.ShortestPaths(start, end)
	e.observe("path", began, err)
	return res, err
}

// Walk runs one random walk. It stops when ctx is done or src reports
// cancellation, whichever comes first; src may be nil. The result is saved
// to the store when one is configured; a store failure is returned
// together with the result.
func (e *Engine) Walk(ctx context.Context, src query.CancelSource, opts ...query.Option) (*graph.WalkResult, error) {
	walkOpts := append(e.randOption(e.walks.Add(1)), opts...)
	walkOpts = append(walkOpts, query.WithStepLock(e.mu.RLocker()))
	w := query.NewWalker(e.g, walkOpts...)

	started := time.Now()
	res, err := w.Walk(query.AnySource(query.ContextSource(ctx), src))
	e.observe("walk", started, err)
	if err != nil {
		return nil, err
	}

	metrics.Walks.WithLabelValues(string(res.Reason)).Inc()
	e.logger.Info("walk finished",
		"id", res.ID,
		"start", res.Start,
		"steps", res.Steps,
		"reason", res.Reason,
		"duration", res.Duration(),
	)

	if e.store != nil {
		// The walk may have been stopped through ctx; saving must not be.
		if err := e.store.SaveWalk(context.WithoutCancel(ctx), res); err != nil {
			return res, fmt.Errorf("saving walk: %w", err)
		}
	}
	return res, nil
}

// Walks lists stored walks, newest first.
func (e *Engine) Walks(ctx context.Context, limit int) ([]*graph.WalkResult, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.ListWalks(ctx, limit)
}

// Stats summarizes the graph.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.g.Stats()
	return Stats{
		Nodes:       s["nodes"],
		Edges:       s["edges"],
		Adjacencies: s["adjacencies"],
		Root:        e.g.Root(),
		Sources:     len(e.sources),
	}
}

// WriteDOT writes the graph as DOT.
func (e *Engine) WriteDOT(w io.Writer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return render.WriteDOT(w, e.g)
}

// WriteHighlightedDOT writes the graph as DOT with paths colored.
func (e *Engine) WriteHighlightedDOT(w io.Writer, paths []graph.Path, style render.Style) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return render.WriteHighlightedDOT(w, e.g, paths, style)
}

// observe records query metrics. Errors from the query taxonomy count as
// misses, not failures.
func (e *Engine) observe(op string, start time.Time, err error) {
	metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case IsQueryMiss(err):
		outcome = metrics.OutcomeMiss
	default:
		outcome = metrics.OutcomeError
	}
	metrics.Queries.WithLabelValues(op, outcome).Inc()

	if err != nil {
		e.logger.Debug("query miss", "op", op, "error", err)
	}
}

// IsQueryMiss reports whether err is an expected query outcome such as a
// missing word or an unreachable target.
func IsQueryMiss(err error) bool {
	return errors.Is(err, query.ErrWordMissing) ||
		errors.Is(err, query.ErrNoBridge) ||
		errors.Is(err, query.ErrNoPath) ||
		errors.Is(err, query.ErrEmptyGraph)
}

// Close closes the store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}
