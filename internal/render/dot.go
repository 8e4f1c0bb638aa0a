// Package render exports a word graph as Graphviz DOT and turns DOT files
// into images with the dot binary.
package render

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Benny93/wordgraph/internal/graph"
)

// DefaultPalette colors the shortest paths by index.
var DefaultPalette = []string{"blue", "red", "green", "orange", "pink"}

// DefaultSharedColor marks edges lying on more than one path.
const DefaultSharedColor = "yellow"

// Style selects the colors of a highlighted export.
type Style struct {
	Palette     []string
	SharedColor string
}

// DefaultStyle returns the built-in palette.
func DefaultStyle() Style {
	return Style{Palette: DefaultPalette, SharedColor: DefaultSharedColor}
}

// color returns the attribute value for h, or "" for an unmarked edge.
func (s Style) color(h graph.Highlight) string {
	switch h.Kind {
	case graph.HighlightShared:
		if s.SharedColor == "" {
			return DefaultSharedColor
		}
		return s.SharedColor
	case graph.HighlightSingle:
		palette := s.Palette
		if len(palette) == 0 {
			palette = DefaultPalette
		}
		return palette[h.PathIndex%len(palette)]
	default:
		return ""
	}
}

// dotWriter keeps the first write error so callers check it once.
type dotWriter struct {
	w   *bufio.Writer
	err error
}

func newDOTWriter(w io.Writer) *dotWriter {
	return &dotWriter{w: bufio.NewWriter(w)}
}

func (d *dotWriter) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func (d *dotWriter) open()            { d.printf("digraph G {\n") }
func (d *dotWriter) root(word string) { d.printf("    %s [root=true];\n", quote(word)) }

func (d *dotWriter) edge(from string, e graph.Edge, color string) {
	if color == "" {
		d.printf("    %s -> %s [label=\"%d\"];\n", quote(from), quote(e.To), e.Weight)
		return
	}
	d.printf("    %s -> %s [label=\"%d\", color=\"%s\"];\n", quote(from), quote(e.To), e.Weight, color)
}

func (d *dotWriter) close() error {
	d.printf("}\n")
	if d.err != nil {
		return d.err
	}
	return d.w.Flush()
}

func quote(word string) string {
	return `"` + strings.ReplaceAll(word, `"`, `\"`) + `"`
}

// WriteDOT writes g as a DOT digraph. The root word, if any, comes first,
// then every edge in node and edge insertion order, labelled with its
// weight.
func WriteDOT(w io.Writer, g *graph.WordGraph) error {
	d := newDOTWriter(w)
	d.open()

	if root := g.Root(); root != "" {
		d.root(root)
	}
	for node := range g.IterNodes() {
		for _, e := range node.Out {
			d.edge(node.Word, e, "")
		}
	}

	return d.close()
}

// WriteHighlightedDOT is WriteDOT with the edges of paths colored: edges on
// a single path take the palette color of that path's index, edges on
// several paths take the shared color.
func WriteHighlightedDOT(w io.Writer, g *graph.WordGraph, paths []graph.Path, style Style) error {
	d := newDOTWriter(w)
	d.open()

	if root := g.Root(); root != "" {
		d.root(root)
	}
	for node := range g.IterHighlighted(paths) {
		for _, e := range node.Out {
			d.edge(node.Word, e.Edge, style.color(e.Highlight))
		}
	}

	return d.close()
}

// WriteWalk writes the visited words of a walk, each followed by a space.
func WriteWalk(w io.Writer, res *graph.WalkResult) error {
	bw := bufio.NewWriter(w)
	for _, word := range res.Path {
		if _, err := bw.WriteString(word + " "); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile creates path and its parent directories, then hands the file
// to write.
func WriteFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
