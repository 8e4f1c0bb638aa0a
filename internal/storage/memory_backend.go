package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Benny93/wordgraph/internal/graph"
)

// MemoryBackend is an in-memory implementation of StorageBackend.
type MemoryBackend struct {
	mu          sync.RWMutex
	walks       map[string]*graph.WalkResult
	sources     map[string]SourceRecord
	initialized bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		walks:   make(map[string]*graph.WalkResult),
		sources: make(map[string]SourceRecord),
	}
}

// Initialize implements StorageBackend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
	return nil
}

// Close implements StorageBackend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walks = make(map[string]*graph.WalkResult)
	m.sources = make(map[string]SourceRecord)
	m.initialized = false
	return nil
}

// IsInitialized reports whether Initialize has been called.
func (m *MemoryBackend) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// SaveWalk implements StorageBackend.
func (m *MemoryBackend) SaveWalk(ctx context.Context, walk *graph.WalkResult) error {
	if walk == nil || walk.ID == "" {
		return errors.New("walk has no ID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *walk
	stored.Path = append([]string(nil), walk.Path...)
	m.walks[walk.ID] = &stored
	return nil
}

// GetWalk implements StorageBackend.
func (m *MemoryBackend) GetWalk(ctx context.Context, id string) (*graph.WalkResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	walk, ok := m.walks[id]
	if !ok {
		return nil, nil
	}
	out := *walk
	out.Path = append([]string(nil), walk.Path...)
	return &out, nil
}

// ListWalks implements StorageBackend.
func (m *MemoryBackend) ListWalks(ctx context.Context, limit int) ([]*graph.WalkResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	walks := make([]*graph.WalkResult, 0, len(m.walks))
	for _, walk := range m.walks {
		out := *walk
		out.Path = append([]string(nil), walk.Path...)
		walks = append(walks, &out)
	}

	sortWalks(walks)
	if limit > 0 && len(walks) > limit {
		walks = walks[:limit]
	}
	return walks, nil
}

// RecordSource implements StorageBackend.
func (m *MemoryBackend) RecordSource(ctx context.Context, rec SourceRecord) error {
	if rec.Path == "" {
		return errors.New("source has no path")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[rec.Path] = rec
	return nil
}

// ListSources implements StorageBackend.
func (m *MemoryBackend) ListSources(ctx context.Context) ([]SourceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make([]SourceRecord, 0, len(m.sources))
	for _, rec := range m.sources {
		sources = append(sources, rec)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})
	return sources, nil
}

// Clear implements StorageBackend.
func (m *MemoryBackend) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walks = make(map[string]*graph.WalkResult)
	m.sources = make(map[string]SourceRecord)
	return nil
}
