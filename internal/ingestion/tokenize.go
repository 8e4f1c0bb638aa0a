// Package ingestion turns raw text into word-graph edges.
//
// It covers tokenization, the line-oriented Builder that accumulates edges
// into a graph.WordGraph, the corpus walker that finds text files on disk,
// the pipeline that feeds them to a Builder, and a file watcher that keeps
// ingesting as the corpus grows.
package ingestion

import "strings"

// Tokenize lowercases s and splits it on runs of characters that are not
// ASCII letters. Empty tokens are never returned.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), isSeparator)
}

func isSeparator(r rune) bool {
	return r < 'a' || r > 'z'
}
