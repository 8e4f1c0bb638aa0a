package query

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Benny93/wordgraph/internal/graph"
	"github.com/Benny93/wordgraph/internal/ingestion"
)

const testCorpus = `To seek out new worlds and new life and new civilizations,
to explore and to boldly go where no one has gone before.`

// corpusGraph returns the graph built from testCorpus.
func corpusGraph(t *testing.T) *graph.WordGraph {
	t.Helper()
	return buildGraph(t, testCorpus)
}

func buildGraph(t *testing.T, text string) *graph.WordGraph {
	t.Helper()
	g := graph.NewWordGraph()
	ingestion.NewBuilder(g).Ingest(text)
	require.NotZero(t, g.NodeCount())
	return g
}

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}
