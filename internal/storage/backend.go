// Package storage provides the history store for wordgraph.
//
// The word graph itself lives in memory and is rebuilt from the corpus on
// every run. What is kept across runs is the history around it: the random
// walks that were taken and the corpus files that were ingested. The
// StorageBackend interface describes that store; BadgerBackend persists it
// on disk and MemoryBackend keeps it in memory for tests and one-shot use.
package storage

import (
	"context"
	"time"

	"github.com/Benny93/wordgraph/internal/graph"
)

// SourceRecord describes one ingested corpus file.
type SourceRecord struct {
	// Path is the file path as given on the command line or found by the walker.
	Path string `json:"path"`

	// SHA256 is the hash of the content that was ingested.
	SHA256 string `json:"sha256"`

	// Lines is the number of lines read from the file.
	Lines int `json:"lines"`

	// Tokens is the number of tokens ingested from the file.
	Tokens int `json:"tokens"`

	// Edges is the number of edge increments the file produced.
	Edges int `json:"edges"`

	// IngestedAt is when the file was last ingested.
	IngestedAt time.Time `json:"ingested_at"`
}

// StorageBackend defines the interface for history store implementations.
//
// Implementations must be thread-safe and support concurrent access.
type StorageBackend interface {
	// Lifecycle methods

	// Initialize opens or creates the store at the given path.
	// If readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Walk history

	// SaveWalk stores a finished walk under its ID, replacing any walk
	// with the same ID.
	SaveWalk(ctx context.Context, walk *graph.WalkResult) error

	// GetWalk returns a walk by ID, or nil if not found.
	GetWalk(ctx context.Context, id string) (*graph.WalkResult, error)

	// ListWalks returns stored walks, most recently started first.
	// A limit of zero or less returns all walks.
	ListWalks(ctx context.Context, limit int) ([]*graph.WalkResult, error)

	// Source history

	// RecordSource stores rec under its path, replacing an older record.
	RecordSource(ctx context.Context, rec SourceRecord) error

	// ListSources returns all source records ordered by path.
	ListSources(ctx context.Context) ([]SourceRecord, error)

	// Maintenance

	// Clear removes all walks and sources.
	Clear(ctx context.Context) error
}
