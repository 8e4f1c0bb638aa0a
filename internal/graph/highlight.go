package graph

// HighlightKind classifies an edge against a set of highlighted paths.
type HighlightKind int

const (
	// HighlightNone marks an edge that lies on no highlighted path.
	HighlightNone HighlightKind = iota
	// HighlightSingle marks an edge that lies on exactly one path.
	HighlightSingle
	// HighlightShared marks an edge that lies on more than one path.
	HighlightShared
)

// Highlight is the marker assigned to one edge.
type Highlight struct {
	Kind HighlightKind

	// PathIndex is the index of the owning path for HighlightSingle,
	// and -1 otherwise.
	PathIndex int
}

// EdgeKey identifies a directed edge.
type EdgeKey struct {
	From string
	To   string
}

// HighlightedEdge is an outgoing edge with its highlight marker.
type HighlightedEdge struct {
	Edge
	Highlight Highlight
}

// HighlightedNodeView is a NodeView whose edges carry highlight markers.
type HighlightedNodeView struct {
	Word   string
	IsRoot bool
	Out    []HighlightedEdge
}

// HighlightEdges returns the marker of every edge that lies on at least one
// of paths. Edges missing from the result are HighlightNone.
func HighlightEdges(paths []Path) map[EdgeKey]Highlight {
	marks := make(map[EdgeKey]Highlight)
	for i, p := range paths {
		// A path counts once per edge even if it repeats the edge.
		seen := make(map[EdgeKey]bool)
		for j := 0; j+1 < len(p); j++ {
			key := EdgeKey{From: p[j], To: p[j+1]}
			if seen[key] {
				continue
			}
			seen[key] = true

			if _, ok := marks[key]; ok {
				marks[key] = Highlight{Kind: HighlightShared, PathIndex: -1}
				continue
			}
			marks[key] = Highlight{Kind: HighlightSingle, PathIndex: i}
		}
	}
	return marks
}

// IterHighlighted is IterNodes with every edge classified against paths.
func (g *WordGraph) IterHighlighted(paths []Path) <-chan HighlightedNodeView {
	marks := HighlightEdges(paths)

	g.mu.RLock()
	ch := make(chan HighlightedNodeView, len(g.order))
	for _, word := range g.order {
		edges := g.nodes[word].edges()
		out := make([]HighlightedEdge, 0, len(edges))
		for _, e := range edges {
			h, ok := marks[EdgeKey{From: word, To: e.To}]
			if !ok {
				h = Highlight{Kind: HighlightNone, PathIndex: -1}
			}
			out = append(out, HighlightedEdge{Edge: e, Highlight: h})
		}
		ch <- HighlightedNodeView{Word: word, IsRoot: word == g.root, Out: out}
	}
	close(ch)
	g.mu.RUnlock()
	return ch
}
