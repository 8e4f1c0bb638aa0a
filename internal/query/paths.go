package query

import (
	"container/heap"
	"slices"
	"strings"

	"github.com/Benny93/wordgraph/internal/graph"
)

// PathResult holds every minimum-weight path between two words.
type PathResult struct {
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Distance int          `json:"distance"`
	Paths    []graph.Path `json:"paths"`
}

// PathFinder computes all shortest paths with Dijkstra's algorithm, using
// accumulated edge weights as distances.
type PathFinder struct {
	g *graph.WordGraph
}

// NewPathFinder creates a PathFinder over g.
func NewPathFinder(g *graph.WordGraph) *PathFinder {
	return &PathFinder{g: g}
}

// ShortestPaths returns every distinct minimum-weight path from start to
// end. Both words are lowercased before lookup. The paths are ordered by a
// depth-first walk back from end that follows predecessors in the order
// they were recorded.
func (f *PathFinder) ShortestPaths(start, end string) (*PathResult, error) {
	start, end = strings.ToLower(start), strings.ToLower(end)

	if err := checkWords(f.g, start, end); err != nil {
		return nil, err
	}

	if start == end {
		return &PathResult{Start: start, End: end, Paths: []graph.Path{{start}}}, nil
	}

	r := &runner{g: f.g, source: start, target: end}
	r.init()
	r.process()

	if !r.done[end] {
		return nil, &NoPathError{From: start, To: end}
	}
	dist := r.dist[end]

	paths := r.paths()
	if len(paths) == 0 {
		return nil, &NoPathError{From: start, To: end}
	}
	return &PathResult{Start: start, End: end, Distance: dist, Paths: paths}, nil
}

// runner holds the state of one Dijkstra run.
type runner struct {
	g      *graph.WordGraph
	source string
	target string

	dist  map[string]int      // best known distance; absent means infinite
	preds map[string][]string // ordered, duplicate-free predecessors achieving dist
	done  map[string]bool     // finalized nodes
	pq    nodePQ
}

// init sets the source distance to zero and pushes it onto the heap.
func (r *runner) init() {
	r.dist = map[string]int{r.source: 0}
	r.preds = make(map[string][]string)
	r.done = make(map[string]bool)
	r.pq = make(nodePQ, 0, r.g.NodeCount())
	heap.Init(&r.pq)
	heap.Push(&r.pq, &nodeItem{id: r.source, dist: 0})
}

// process pops nodes in distance order until the target is finalized or
// the heap is empty. Once the target is popped, every node that can precede
// it on a shortest path is already finalized, so its predecessor sets are
// complete.
func (r *runner) process() {
	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(*nodeItem)
		u := item.id

		// Stale entry left behind by a later improvement.
		if r.done[u] {
			continue
		}
		r.done[u] = true

		if u == r.target {
			return
		}
		r.relax(u)
	}
}

// relax updates the distances of u's successors.
func (r *runner) relax(u string) {
	du := r.dist[u]
	for _, e := range r.g.Edges(u) {
		v := e.To
		if r.done[v] {
			continue
		}

		nd := du + e.Weight
		dv, seen := r.dist[v]
		switch {
		case !seen || nd < dv:
			r.dist[v] = nd
			r.preds[v] = []string{u}
			heap.Push(&r.pq, &nodeItem{id: v, dist: nd})
		case nd == dv:
			if !slices.Contains(r.preds[v], u) {
				r.preds[v] = append(r.preds[v], u)
			}
		}
	}
}

// frame is one pending step of path reconstruction: word and the path
// from word to the target.
type frame struct {
	word   string
	suffix []string
}

// paths expands every predecessor chain from target back to source with
// an explicit stack.
func (r *runner) paths() []graph.Path {
	var out []graph.Path
	seen := make(map[string]bool)

	stack := []frame{{word: r.target, suffix: []string{r.target}}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.word == r.source {
			key := strings.Join(f.suffix, "\x00")
			if !seen[key] {
				seen[key] = true
				out = append(out, graph.Path(f.suffix))
			}
			continue
		}

		preds := r.preds[f.word]
		// Push in reverse so the first recorded predecessor is expanded first.
		for i := len(preds) - 1; i >= 0; i-- {
			suffix := make([]string, 0, len(f.suffix)+1)
			suffix = append(suffix, preds[i])
			suffix = append(suffix, f.suffix...)
			stack = append(stack, frame{word: preds[i], suffix: suffix})
		}
	}
	return out
}

// nodeItem represents a word and its distance from the source at the time
// it was pushed.
type nodeItem struct {
	id   string
	dist int
}

// nodePQ is a min-heap of *nodeItem ordered by dist. Decrease-key is done
// lazily: an improved distance pushes a new item and the outdated one is
// skipped when popped.
type nodePQ []*nodeItem

func (pq nodePQ) Len() int           { return len(pq) }
func (pq nodePQ) Less(i, j int) bool { return pq[i].dist < pq[j].dist }
func (pq nodePQ) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *nodePQ) Push(x any) { *pq = append(*pq, x.(*nodeItem)) }

func (pq *nodePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
