package query

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/Benny93/wordgraph/internal/graph"
	"github.com/Benny93/wordgraph/internal/ingestion"
)

// Augmenter rewrites text by inserting a bridge word between every pair
// of adjacent words that has one.
type Augmenter struct {
	g *graph.WordGraph

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewAugmenter creates an Augmenter over g. Only WithRand applies.
func NewAugmenter(g *graph.WordGraph, opts ...Option) *Augmenter {
	s := newSettings(opts)
	return &Augmenter{g: g, rnd: s.rnd}
}

// Augment tokenizes text like the ingestion Builder and, for each adjacent
// pair, inserts one bridge word chosen uniformly among the candidates. The
// result is the lowercased words joined by single spaces. Text with fewer
// than two words is returned unchanged.
func (a *Augmenter) Augment(text string) string {
	words := ingestion.Tokenize(text)
	if len(words) < 2 {
		return text
	}

	out := make([]string, 0, 2*len(words)-1)
	for i, w := range words {
		out = append(out, w)
		if i+1 == len(words) {
			break
		}
		if bridges := bridgeCandidates(a.g, w, words[i+1]); len(bridges) > 0 {
			out = append(out, bridges[a.intN(len(bridges))])
		}
	}
	return strings.Join(out, " ")
}

func (a *Augmenter) intN(n int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rnd.IntN(n)
}
