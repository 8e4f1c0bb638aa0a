// Package query implements the read-only operations over a word graph:
// bridge-word lookup, bridge-augmented text generation, all-shortest-paths
// and the cancellable random walk.
//
// None of the queries mutate the graph. They assume ingestion has finished;
// running them while a Builder is still writing gives no useful result.
package query

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrWordMissing matches BothMissingError and MissingError.
	ErrWordMissing = errors.New("word not in graph")

	// ErrNoBridge matches NoBridgeError.
	ErrNoBridge = errors.New("no bridge words")

	// ErrNoPath matches NoPathError.
	ErrNoPath = errors.New("no path")

	// ErrEmptyGraph is returned by a walk over a graph with no nodes.
	ErrEmptyGraph = errors.New("the graph is empty")

	// ErrWalkerUsed is returned when a Walker is asked to walk twice.
	ErrWalkerUsed = errors.New("walker already used")
)

// Which identifies one of the two words of a query.
type Which int

const (
	First Which = iota + 1
	Second
)

func (w Which) String() string {
	switch w {
	case First:
		return "first"
	case Second:
		return "second"
	default:
		return fmt.Sprintf("Which(%d)", int(w))
	}
}

// BothMissingError reports that neither query word is in the graph.
type BothMissingError struct {
	First  string
	Second string
}

func (e *BothMissingError) Error() string {
	return fmt.Sprintf("No \"%s\" and \"%s\" in the graph!", e.First, e.Second)
}

func (e *BothMissingError) Is(target error) bool {
	return target == ErrWordMissing
}

// MissingError reports that exactly one query word is not in the graph.
type MissingError struct {
	Which Which
	Word  string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("No \"%s\" in the graph!", e.Word)
}

func (e *MissingError) Is(target error) bool {
	return target == ErrWordMissing
}

// NoBridgeError reports that both words exist but no bridge word links them.
type NoBridgeError struct {
	From string
	To   string
}

func (e *NoBridgeError) Error() string {
	return fmt.Sprintf("No bridge words from \"%s\" to \"%s\"!", e.From, e.To)
}

func (e *NoBridgeError) Is(target error) bool {
	return target == ErrNoBridge
}

// NoPathError reports that both words exist but To is unreachable from From.
type NoPathError struct {
	From string
	To   string
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("There is no way from \"%s\" to \"%s\"!", e.From, e.To)
}

func (e *NoPathError) Is(target error) bool {
	return target == ErrNoPath
}
