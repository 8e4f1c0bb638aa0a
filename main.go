// Wordgraph - word adjacency graphs from plain text.
//
// Wordgraph reads text into a directed graph of adjacent words and
// answers bridge word, text generation, shortest path and random walk
// queries over it.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/wordgraph/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
