package ingestion

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Benny93/wordgraph/internal/graph"
)

// maxLineSize bounds a single corpus line.
const maxLineSize = 16 * 1024 * 1024

// IngestStats counts the work done by one ingestion call.
type IngestStats struct {
	// Lines is the number of lines read, including skipped ones.
	Lines int `json:"lines"`

	// SkippedLines is the number of lines that produced no tokens.
	SkippedLines int `json:"skipped_lines"`

	// Tokens is the number of tokens ingested.
	Tokens int `json:"tokens"`

	// Edges is the number of edge increments, including the carry-over edge.
	Edges int `json:"edges"`
}

// Add accumulates other into s.
func (s *IngestStats) Add(other IngestStats) {
	s.Lines += other.Lines
	s.SkippedLines += other.SkippedLines
	s.Tokens += other.Tokens
	s.Edges += other.Edges
}

// Builder accumulates tokenized text into a WordGraph.
//
// A Builder remembers the last token it ingested so that the next call
// continues the token stream: the last word of one chunk is adjacent to the
// first word of the next. Use one Builder per graph. A Builder is not safe
// for concurrent use and must not run while the graph is being queried.
type Builder struct {
	g     *graph.WordGraph
	carry string
}

// NewBuilder creates a Builder that writes into g.
func NewBuilder(g *graph.WordGraph) *Builder {
	return &Builder{g: g}
}

// Graph returns the graph the builder writes into.
func (b *Builder) Graph() *graph.WordGraph {
	return b.g
}

// Ingest adds every line of text to the graph.
func (b *Builder) Ingest(text string) IngestStats {
	// Reading from a strings.Reader only fails on lines over maxLineSize.
	stats, _ := b.IngestReader(strings.NewReader(text))
	return stats
}

// IngestReader adds every line read from r to the graph. Lines consumed
// before a read error stay ingested.
func (b *Builder) IngestReader(r io.Reader) (IngestStats, error) {
	var stats IngestStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		b.ingestLine(scanner.Text(), &stats)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading text: %w", err)
	}
	return stats, nil
}

func (b *Builder) ingestLine(line string, stats *IngestStats) {
	stats.Lines++

	words := Tokenize(line)
	if len(words) == 0 {
		stats.SkippedLines++
		return
	}
	stats.Tokens += len(words)

	b.g.SetRoot(words[0])

	if b.carry != "" {
		b.g.AddEdge(b.carry, words[0])
		stats.Edges++
	}

	for i := 0; i+1 < len(words); i++ {
		b.g.AddEdge(words[i], words[i+1])
		stats.Edges++
	}

	last := words[len(words)-1]
	b.g.EnsureNode(last)
	b.carry = last
}
