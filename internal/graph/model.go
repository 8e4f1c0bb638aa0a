// Package graph provides the word-adjacency data model for wordgraph.
//
// It defines the weighted edge, path and walk-result types shared by the
// ingestion, query and rendering layers.
package graph

import (
	"strings"
	"time"
)

// Edge is an outgoing edge from a word, carrying its accumulated weight.
type Edge struct {
	// To is the destination word.
	To string

	// Weight is the number of times the source word was immediately
	// followed by To in the ingested token stream.
	Weight int
}

// NodeView is a read-only snapshot of one node and its outgoing edges.
type NodeView struct {
	// Word is the node itself.
	Word string

	// IsRoot is true only for the first word ever ingested.
	IsRoot bool

	// Out holds the outgoing edges in destination insertion order.
	Out []Edge
}

// Path is an ordered word sequence, start and end inclusive.
type Path []string

// String renders the path as "a -> b -> c".
func (p Path) String() string {
	return strings.Join(p, " -> ")
}

// WalkReason explains why a random walk stopped.
type WalkReason string

const (
	WalkDeadEnd      WalkReason = "dead-end"
	WalkRepeatedEdge WalkReason = "repeated-edge"
	WalkCancelled    WalkReason = "cancelled"
)

// WalkResult is the outcome of one random walk.
type WalkResult struct {
	// ID uniquely identifies the walk.
	ID string `json:"id"`

	// Start is the randomly chosen first word.
	Start string `json:"start"`

	// Path holds every visited word in order. When the walk ends on a
	// repeated edge, the destination of that edge is the last element.
	Path []string `json:"path"`

	// Reason is the termination reason.
	Reason WalkReason `json:"reason"`

	// Steps is the number of edges traversed.
	Steps int `json:"steps"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// String renders the visited words separated by single spaces.
func (r *WalkResult) String() string {
	return strings.Join(r.Path, " ")
}

// Duration returns how long the walk ran.
func (r *WalkResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
