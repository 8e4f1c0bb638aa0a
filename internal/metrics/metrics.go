// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestedFiles counts corpus files fed into the graph.
	IngestedFiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordgraph_ingested_files_total",
		Help: "Total number of corpus files ingested",
	})

	// IngestedTokens counts words fed into the graph.
	IngestedTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wordgraph_ingested_tokens_total",
		Help: "Total number of tokens ingested",
	})

	// GraphNodes tracks the distinct words in the graph.
	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wordgraph_graph_nodes",
		Help: "Number of distinct words in the graph",
	})

	// GraphEdges tracks the distinct adjacencies in the graph.
	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wordgraph_graph_edges",
		Help: "Number of distinct directed edges in the graph",
	})

	// Queries counts query calls by operation and outcome.
	Queries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgraph_queries_total",
			Help: "Total number of graph queries",
		},
		[]string{"op", "outcome"},
	)

	// QueryDuration measures query latency by operation.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordgraph_query_duration_seconds",
			Help:    "Duration of graph queries in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"op"},
	)

	// Walks counts finished random walks by termination reason.
	Walks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgraph_walks_total",
			Help: "Total number of random walks by termination reason",
		},
		[]string{"reason"},
	)

	// HTTPRequests counts API requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgraph_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)
)

// Query outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)
