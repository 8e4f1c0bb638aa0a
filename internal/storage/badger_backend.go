package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Benny93/wordgraph/internal/graph"
)

// Key prefixes for different data types
const (
	prefixWalk   = "w:" // walk results by ID
	prefixSource = "s:" // source records by path
)

// ErrNotInitialized is returned when the backend is used before Initialize.
var ErrNotInitialized = errors.New("storage not initialized")

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	readOnly    bool
	mu          sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.db = db
	b.initialized = true
	b.readOnly = readOnly
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// SaveWalk stores a finished walk under its ID.
func (b *BadgerBackend) SaveWalk(ctx context.Context, walk *graph.WalkResult) error {
	if walk == nil || walk.ID == "" {
		return errors.New("walk has no ID")
	}

	data, err := json.Marshal(walk)
	if err != nil {
		return fmt.Errorf("marshaling walk: %w", err)
	}
	return b.set(walkKey(walk.ID), data)
}

// GetWalk returns a walk by ID, or nil if not found.
func (b *BadgerBackend) GetWalk(ctx context.Context, id string) (*graph.WalkResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, ErrNotInitialized
	}

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(walkKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting walk: %w", err)
	}

	var walk graph.WalkResult
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &walk)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling walk: %w", err)
	}

	return &walk, nil
}

// ListWalks returns stored walks, most recently started first.
func (b *BadgerBackend) ListWalks(ctx context.Context, limit int) ([]*graph.WalkResult, error) {
	var walks []*graph.WalkResult
	err := b.scan(prefixWalk, func(val []byte) error {
		var walk graph.WalkResult
		if err := json.Unmarshal(val, &walk); err != nil {
			return fmt.Errorf("unmarshaling walk: %w", err)
		}
		walks = append(walks, &walk)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortWalks(walks)
	if limit > 0 && len(walks) > limit {
		walks = walks[:limit]
	}
	return walks, nil
}

// RecordSource stores rec under its path.
func (b *BadgerBackend) RecordSource(ctx context.Context, rec SourceRecord) error {
	if rec.Path == "" {
		return errors.New("source has no path")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling source: %w", err)
	}
	return b.set(sourceKey(rec.Path), data)
}

// ListSources returns all source records ordered by path.
func (b *BadgerBackend) ListSources(ctx context.Context) ([]SourceRecord, error) {
	var sources []SourceRecord
	err := b.scan(prefixSource, func(val []byte) error {
		var rec SourceRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return fmt.Errorf("unmarshaling source: %w", err)
		}
		sources = append(sources, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Badger iterates keys in byte order, which is already path order.
	return sources, nil
}

// Clear removes all walks and sources.
func (b *BadgerBackend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return ErrNotInitialized
	}

	for _, prefix := range []string{prefixWalk, prefixSource} {
		if err := b.db.DropPrefix([]byte(prefix)); err != nil {
			return fmt.Errorf("dropping %q keys: %w", prefix, err)
		}
	}
	return nil
}

// WalkCount returns the number of stored walks.
func (b *BadgerBackend) WalkCount() int {
	n := 0
	_ = b.scan(prefixWalk, func([]byte) error {
		n++
		return nil
	})
	return n
}

func (b *BadgerBackend) set(key, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return ErrNotInitialized
	}

	txn := b.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Set(key, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return txn.Commit()
}

// scan calls fn with the value of every key under prefix, in key order.
func (b *BadgerBackend) scan(prefix string, fn func(val []byte) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return ErrNotInitialized
	}

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func walkKey(id string) []byte {
	return []byte(prefixWalk + id)
}

func sourceKey(path string) []byte {
	return []byte(prefixSource + path)
}

// sortWalks orders walks by start time, newest first, then by ID.
func sortWalks(walks []*graph.WalkResult) {
	sort.SliceStable(walks, func(i, j int) bool {
		if !walks[i].StartedAt.Equal(walks[j].StartedAt) {
			return walks[i].StartedAt.After(walks[j].StartedAt)
		}
		return walks[i].ID < walks[j].ID
	})
}
