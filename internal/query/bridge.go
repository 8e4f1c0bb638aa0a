package query

import (
	"fmt"
	"strings"

	"github.com/Benny93/wordgraph/internal/graph"
)

// Resolver finds bridge words: for w1 and w2, every w3 with edges
// w1 -> w3 and w3 -> w2.
type Resolver struct {
	g *graph.WordGraph
}

// NewResolver creates a Resolver over g.
func NewResolver(g *graph.WordGraph) *Resolver {
	return &Resolver{g: g}
}

// BridgeWords returns the bridge words from w1 to w2 in the order w1's
// successors were first seen. Both words are lowercased before lookup.
func (r *Resolver) BridgeWords(w1, w2 string) ([]string, error) {
	w1, w2 = strings.ToLower(w1), strings.ToLower(w2)

	if err := checkWords(r.g, w1, w2); err != nil {
		return nil, err
	}

	words := bridgeCandidates(r.g, w1, w2)
	if len(words) == 0 {
		return nil, &NoBridgeError{From: w1, To: w2}
	}
	return words, nil
}

// DescribeBridgeWords renders the result of BridgeWords as a sentence.
func (r *Resolver) DescribeBridgeWords(w1, w2 string) string {
	words, err := r.BridgeWords(w1, w2)
	if err != nil {
		return err.Error()
	}
	return FormatBridgeWords(strings.ToLower(w1), strings.ToLower(w2), words)
}

// FormatBridgeWords renders a non-empty bridge word list as a sentence.
func FormatBridgeWords(from, to string, words []string) string {
	verb := "are"
	if len(words) == 1 {
		verb = "is"
	}
	return fmt.Sprintf("The bridge words from \"%s\" to \"%s\" %s: %s.",
		from, to, verb, strings.Join(words, ", "))
}

// checkWords reports which of w1 and w2 are missing from g.
func checkWords(g *graph.WordGraph, w1, w2 string) error {
	has1, has2 := g.HasNode(w1), g.HasNode(w2)
	switch {
	case !has1 && !has2:
		return &BothMissingError{First: w1, Second: w2}
	case !has1:
		return &MissingError{Which: First, Word: w1}
	case !has2:
		return &MissingError{Which: Second, Word: w2}
	}
	return nil
}

// bridgeCandidates returns the bridge words from w1 to w2 without checking
// that either word exists.
func bridgeCandidates(g *graph.WordGraph, w1, w2 string) []string {
	var words []string
	for _, w3 := range g.Successors(w1) {
		if g.HasEdge(w3, w2) {
			words = append(words, w3)
		}
	}
	return words
}
