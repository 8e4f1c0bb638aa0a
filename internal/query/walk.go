package query

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/wordgraph/internal/graph"
)

// WalkState is the lifecycle state of a Walker.
type WalkState int32

const (
	StateIdle WalkState = iota
	StateRunning
	StateTerminated
)

func (s WalkState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Walker performs one random walk over a graph.
//
// A walk starts at a uniformly chosen word and repeatedly follows a
// uniformly chosen outgoing edge. It ends at a word with no successors, on
// the first edge it would traverse twice, or when its CancelSource reports
// cancellation. A Walker is single-use: it moves from idle to running to
// terminated and never back.
type Walker struct {
	g     *graph.WordGraph
	rnd   *rand.Rand
	delay time.Duration
	hook  func(step int, word string)
	guard sync.Locker
	state atomic.Int32
}

// NewWalker creates a Walker over g.
func NewWalker(g *graph.WordGraph, opts ...Option) *Walker {
	s := newSettings(opts)
	return &Walker{
		g:     g,
		rnd:   s.rnd,
		delay: s.stepDelay,
		hook:  s.stepHook,
		guard: s.stepLock,
	}
}

// State returns the current state. Safe to call from any goroutine.
func (w *Walker) State() WalkState {
	return WalkState(w.state.Load())
}

// Walk runs the walk until it terminates. src is polled before every step;
// a nil src never cancels. On an empty graph Walk returns ErrEmptyGraph and
// the Walker stays idle.
func (w *Walker) Walk(src CancelSource) (*graph.WalkResult, error) {
	if src == nil {
		src = never{}
	}

	result, err := w.begin()
	if err != nil {
		return nil, err
	}
	defer w.state.Store(int32(StateTerminated))

	visited := make(map[graph.EdgeKey]bool)
	for {
		if reason, done := w.step(src, result, visited); done {
			result.Reason = reason
			break
		}

		if w.delay > 0 {
			time.Sleep(w.delay)
		}
	}

	result.FinishedAt = time.Now().UTC()
	return result, nil
}

// begin picks the start word and moves the walker to running.
func (w *Walker) begin() (*graph.WalkResult, error) {
	w.lock()
	defer w.unlock()

	nodes := w.g.Nodes()
	if len(nodes) == 0 {
		if w.State() != StateIdle {
			return nil, ErrWalkerUsed
		}
		return nil, ErrEmptyGraph
	}

	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrWalkerUsed
	}

	start := nodes[w.rnd.IntN(len(nodes))]
	result := &graph.WalkResult{
		ID:        uuid.NewString(),
		Start:     start,
		Path:      []string{start},
		StartedAt: time.Now().UTC(),
	}
	w.emit(0, start)
	return result, nil
}

// step advances the walk by one edge. done reports that the walk ended
// for reason.
func (w *Walker) step(src CancelSource, result *graph.WalkResult, visited map[graph.EdgeKey]bool) (reason graph.WalkReason, done bool) {
	w.lock()
	defer w.unlock()

	if src.Cancelled() {
		return graph.WalkCancelled, true
	}

	current := result.Path[len(result.Path)-1]
	next := w.g.Successors(current)
	if len(next) == 0 {
		return graph.WalkDeadEnd, true
	}

	to := next[w.rnd.IntN(len(next))]
	edge := graph.EdgeKey{From: current, To: to}
	result.Path = append(result.Path, to)
	result.Steps++
	w.emit(result.Steps, to)

	if visited[edge] {
		return graph.WalkRepeatedEdge, true
	}
	visited[edge] = true
	return "", false
}

func (w *Walker) lock() {
	if w.guard != nil {
		w.guard.Lock()
	}
}

func (w *Walker) unlock() {
	if w.guard != nil {
		w.guard.Unlock()
	}
}

func (w *Walker) emit(step int, word string) {
	if w.hook != nil {
		w.hook(step, word)
	}
}
