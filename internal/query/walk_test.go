package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/wordgraph/internal/graph"
)

func TestWalker_EmptyGraph(t *testing.T) {
	t.Parallel()

	w := NewWalker(graph.NewWordGraph(), seeded(1))
	res, err := w.Walk(nil)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmptyGraph)
	assert.Equal(t, StateIdle, w.State())
}

func TestWalker_DeadEnd(t *testing.T) {
	t.Parallel()

	g := graph.NewWordGraph()
	g.AddEdge("a", "b")

	for seed := range uint64(10) {
		w := NewWalker(g, seeded(seed))
		res, err := w.Walk(nil)
		require.NoError(t, err)

		assert.Equal(t, graph.WalkDeadEnd, res.Reason)
		assert.Equal(t, "b", res.Path[len(res.Path)-1])
		assert.Equal(t, res.Start, res.Path[0])
		assert.Equal(t, len(res.Path)-1, res.Steps)
		assert.Equal(t, StateTerminated, w.State())
	}
}

func TestWalker_RepeatedEdgeIncludesDestination(t *testing.T) {
	t.Parallel()

	t.Run("SelfLoop", func(t *testing.T) {
		t.Parallel()
		g := graph.NewWordGraph()
		g.AddEdge("go", "go")

		res, err := NewWalker(g, seeded(1)).Walk(nil)
		require.NoError(t, err)

		assert.Equal(t, graph.WalkRepeatedEdge, res.Reason)
		assert.Equal(t, []string{"go", "go", "go"}, res.Path)
		assert.Equal(t, 2, res.Steps)
	})

	t.Run("TwoCycle", func(t *testing.T) {
		t.Parallel()
		g := graph.NewWordGraph()
		g.AddEdge("a", "b")
		g.AddEdge("b", "a")

		res, err := NewWalker(g, seeded(2)).Walk(nil)
		require.NoError(t, err)

		assert.Equal(t, graph.WalkRepeatedEdge, res.Reason)
		require.Len(t, res.Path, 4)
		assert.Equal(t, res.Path[0], res.Path[2])
		assert.Equal(t, res.Path[1], res.Path[3])
	})
}

func TestWalker_Cancellation(t *testing.T) {
	t.Parallel()

	ring := "a b c d e a"

	t.Run("CancelledBeforeFirstStep", func(t *testing.T) {
		t.Parallel()
		var stop StopFlag
		stop.Stop()

		res, err := NewWalker(buildGraph(t, ring), seeded(1)).Walk(&stop)
		require.NoError(t, err)

		assert.Equal(t, graph.WalkCancelled, res.Reason)
		assert.Equal(t, []string{res.Start}, res.Path)
		assert.Equal(t, 0, res.Steps)
	})

	t.Run("CancelledFromHook", func(t *testing.T) {
		t.Parallel()
		var stop StopFlag
		hook := func(step int, word string) {
			if step == 2 {
				stop.Stop()
			}
		}

		w := NewWalker(buildGraph(t, ring), seeded(1), WithStepHook(hook))
		res, err := w.Walk(&stop)
		require.NoError(t, err)

		assert.Equal(t, graph.WalkCancelled, res.Reason)
		assert.Len(t, res.Path, 3)
		assert.Equal(t, 2, res.Steps)
	})

	t.Run("CancelledFromAnotherGoroutine", func(t *testing.T) {
		t.Parallel()
		g := graph.NewWordGraph()
		g.AddEdge("x", "x")
		// Long ring so the walk cannot end on its own before the stop lands.
		words := make([]string, 0, 200)
		for i := range 200 {
			words = append(words, string(rune('a'+i%26))+string(rune('a'+i/26)))
		}
		for i := range words {
			g.AddEdge(words[i], words[(i+1)%len(words)])
		}

		var stop StopFlag
		started := make(chan struct{})
		var once sync.Once
		w := NewWalker(g, seeded(5),
			WithStepDelay(5*time.Millisecond),
			WithStepHook(func(int, string) { once.Do(func() { close(started) }) }),
		)

		done := make(chan *graph.WalkResult, 1)
		go func() {
			res, err := w.Walk(&stop)
			assert.NoError(t, err)
			done <- res
		}()

		<-started
		stop.Stop()

		select {
		case res := <-done:
			// The "x" self-loop ends by itself after two steps.
			if res.Start != "x" {
				assert.Equal(t, graph.WalkCancelled, res.Reason)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("walk did not observe cancellation")
		}
	})

	t.Run("ContextSource", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		res, err := NewWalker(buildGraph(t, ring), seeded(1)).Walk(ContextSource(ctx))
		require.NoError(t, err)
		assert.Equal(t, graph.WalkCancelled, res.Reason)
	})
}

type countingLock struct {
	mu      sync.Mutex
	held    bool
	locks   int
	unlocks int
}

func (l *countingLock) Lock() {
	l.mu.Lock()
	l.held = true
	l.locks++
}

func (l *countingLock) Unlock() {
	l.held = false
	l.unlocks++
	l.mu.Unlock()
}

func TestWalker_StepLock(t *testing.T) {
	t.Parallel()

	t.Run("HeldForEveryStep", func(t *testing.T) {
		t.Parallel()
		g := graph.NewWordGraph()
		g.AddEdge("go", "go")

		var l countingLock
		hook := WithStepHook(func(_ int, _ string) {
			assert.True(t, l.held)
		})
		res, err := NewWalker(g, seeded(1), hook, WithStepLock(&l)).Walk(nil)
		require.NoError(t, err)

		assert.Equal(t, 2, res.Steps)
		assert.Equal(t, 3, l.locks, "start plus one per step")
		assert.Equal(t, l.locks, l.unlocks)
		assert.False(t, l.held)
	})

	t.Run("ReleasedBetweenSteps", func(t *testing.T) {
		t.Parallel()
		g := graph.NewWordGraph()
		g.AddEdge("go", "go")

		var mu sync.Mutex
		stepped := make(chan struct{})
		hook := WithStepHook(func(step int, _ string) {
			if step == 1 {
				close(stepped)
			}
		})
		w := NewWalker(g, seeded(1), hook, WithStepLock(&mu), WithStepDelay(300*time.Millisecond))

		walkDone := make(chan struct{})
		go func() {
			defer close(walkDone)
			_, err := w.Walk(nil)
			assert.NoError(t, err)
		}()
		<-stepped

		require.Eventually(t, func() bool {
			if !mu.TryLock() {
				return false
			}
			mu.Unlock()
			return true
		}, time.Second, 5*time.Millisecond)

		select {
		case <-walkDone:
			t.Fatal("walk ended before the pause")
		default:
		}
		<-walkDone
	})
}

func TestWalker_SingleUse(t *testing.T) {
	t.Parallel()

	w := NewWalker(buildGraph(t, "a b"), seeded(1))

	_, err := w.Walk(nil)
	require.NoError(t, err)

	res, err := w.Walk(nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrWalkerUsed)
	assert.Equal(t, StateTerminated, w.State())
}

func TestWalker_StateWhileRunning(t *testing.T) {
	t.Parallel()

	var states []WalkState
	var w *Walker
	w = NewWalker(buildGraph(t, "a b c"), seeded(1), WithStepHook(func(int, string) {
		states = append(states, w.State())
	}))

	assert.Equal(t, StateIdle, w.State())
	_, err := w.Walk(nil)
	require.NoError(t, err)

	require.NotEmpty(t, states)
	for _, s := range states {
		assert.Equal(t, StateRunning, s)
	}
	assert.Equal(t, StateTerminated, w.State())
}

func TestWalker_Properties(t *testing.T) {
	t.Parallel()

	g := corpusGraph(t)
	edges := g.EdgeCount()

	for seed := range uint64(100) {
		var hooked []string
		w := NewWalker(g, seeded(seed), WithStepHook(func(step int, word string) {
			hooked = append(hooked, word)
		}))
		res, err := w.Walk(nil)
		require.NoError(t, err)

		assert.NotEmpty(t, res.ID)
		assert.Contains(t, []graph.WalkReason{graph.WalkDeadEnd, graph.WalkRepeatedEdge}, res.Reason)
		assert.LessOrEqual(t, res.Steps, edges+1)
		assert.Equal(t, len(res.Path)-1, res.Steps)
		assert.Equal(t, res.Path, hooked)
		assert.False(t, res.FinishedAt.Before(res.StartedAt))

		// Every step follows an edge; only the final step may repeat one.
		used := make(map[graph.EdgeKey]bool)
		for i := 0; i+1 < len(res.Path); i++ {
			key := graph.EdgeKey{From: res.Path[i], To: res.Path[i+1]}
			require.True(t, g.HasEdge(key.From, key.To))
			if i+2 < len(res.Path) {
				assert.False(t, used[key], "edge %v repeated before the end", key)
			}
			used[key] = true
		}

		if res.Reason == graph.WalkDeadEnd {
			assert.Empty(t, g.Successors(res.Path[len(res.Path)-1]))
		}
	}
}

func TestWalker_SeededIsReproducible(t *testing.T) {
	t.Parallel()

	g := corpusGraph(t)
	first, err := NewWalker(g, seeded(42)).Walk(nil)
	require.NoError(t, err)
	second, err := NewWalker(g, seeded(42)).Walk(nil)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestWalkState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "terminated", StateTerminated.String())
	assert.Equal(t, "unknown", WalkState(9).String())
}
