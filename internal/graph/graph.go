// Package graph provides the in-memory word graph for wordgraph.
//
// WordGraph is a map-backed directed graph whose nodes are words and whose
// edges carry accumulated adjacency counts. Destinations of each source are
// kept in insertion order so that every traversal is reproducible.
package graph

import (
	"sync"
)

// adjacency is the ordered outgoing edge list of one word.
type adjacency struct {
	order  []string
	weight map[string]int
}

func newAdjacency() *adjacency {
	return &adjacency{weight: make(map[string]int)}
}

// WordGraph is a directed, weighted word-adjacency graph.
//
// The graph only grows: edges are created or incremented and never removed.
// Ingestion is expected to finish before queries run; the lock keeps each
// individual call consistent but does not make an interleaved ingest/query
// sequence meaningful.
type WordGraph struct {
	mu    sync.RWMutex
	nodes map[string]*adjacency
	order []string
	root  string
	edges int
}

// NewWordGraph creates a new empty word graph.
func NewWordGraph() *WordGraph {
	return &WordGraph{
		nodes: make(map[string]*adjacency),
	}
}

// EnsureNode adds word as a node with no outgoing edges if it is not
// already present. Returns true if the node was created.
func (g *WordGraph) EnsureNode(word string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensureNode(word)
}

// ensureNode must be called with the write lock held.
func (g *WordGraph) ensureNode(word string) bool {
	if _, ok := g.nodes[word]; ok {
		return false
	}
	g.nodes[word] = newAdjacency()
	g.order = append(g.order, word)
	return true
}

// AddEdge increments the weight of from -> to by one, creating both
// endpoints and the edge as needed. Returns the new weight.
func (g *WordGraph) AddEdge(from, to string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ensureNode(from)
	g.ensureNode(to)

	adj := g.nodes[from]
	if _, ok := adj.weight[to]; !ok {
		adj.order = append(adj.order, to)
		g.edges++
	}
	adj.weight[to]++
	return adj.weight[to]
}

// SetRoot records word as the root if no root has been set yet.
// Returns true if the root was set by this call.
func (g *WordGraph) SetRoot(word string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.root != "" || word == "" {
		return false
	}
	g.root = word
	return true
}

// Root returns the first word ever ingested, or "" for an empty graph.
func (g *WordGraph) Root() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.root
}

// HasNode reports whether word is a node.
func (g *WordGraph) HasNode(word string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[word]
	return ok
}

// HasEdge reports whether the directed edge from -> to exists.
func (g *WordGraph) HasEdge(from, to string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adj, ok := g.nodes[from]
	if !ok {
		return false
	}
	_, ok = adj.weight[to]
	return ok
}

// Weight returns the weight of from -> to and whether the edge exists.
func (g *WordGraph) Weight(from, to string) (int, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adj, ok := g.nodes[from]
	if !ok {
		return 0, false
	}
	w, ok := adj.weight[to]
	return w, ok
}

// Successors returns the destinations of word in insertion order.
// The returned slice is a copy; it is nil if word is not a node.
func (g *WordGraph) Successors(word string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adj, ok := g.nodes[word]
	if !ok {
		return nil
	}
	out := make([]string, len(adj.order))
	copy(out, adj.order)
	return out
}

// Edges returns the outgoing edges of word in destination insertion order.
func (g *WordGraph) Edges(word string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adj, ok := g.nodes[word]
	if !ok {
		return nil
	}
	return adj.edges()
}

func (a *adjacency) edges() []Edge {
	out := make([]Edge, 0, len(a.order))
	for _, to := range a.order {
		out = append(out, Edge{To: to, Weight: a.weight[to]})
	}
	return out
}

// Nodes returns all words in the order they were first seen.
func (g *WordGraph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// NodeCount returns the number of nodes.
func (g *WordGraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of distinct directed edges.
func (g *WordGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges
}

// Stats returns a summary of graph size.
func (g *WordGraph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, adj := range g.nodes {
		for _, w := range adj.weight {
			total += w
		}
	}

	return map[string]int{
		"nodes":       len(g.nodes),
		"edges":       g.edges,
		"adjacencies": total,
	}
}

// IterNodes returns a channel that yields every node in insertion order,
// with its root flag and ordered outgoing edges.
func (g *WordGraph) IterNodes() <-chan NodeView {
	g.mu.RLock()
	ch := make(chan NodeView, len(g.order))
	for _, word := range g.order {
		ch <- NodeView{
			Word:   word,
			IsRoot: word == g.root,
			Out:    g.nodes[word].edges(),
		}
	}
	close(ch)
	g.mu.RUnlock()
	return ch
}
