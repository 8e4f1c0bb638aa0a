package cmd

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/Benny93/wordgraph/internal/engine"
	"github.com/Benny93/wordgraph/internal/query"
)

// ShellCmd runs the interactive menu.
type ShellCmd struct {
	Corpus   []string `short:"c" help:"Corpus files or directories to load before the menu"`
	NoRender bool     `help:"Only write DOT files, skip Graphviz"`
}

// Run executes the shell command.
func (c *ShellCmd) Run(a *app) error {
	ctx := context.Background()

	store, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	e, err := a.loadCorpus(ctx, store, c.Corpus)
	if err != nil {
		return err
	}

	sh := &shell{app: a, engine: e, lines: newLineReader(a.in), render: !c.NoRender}
	return sh.loop(ctx)
}

// lineReader hands out input lines from a single goroutine so a running walk
// and the menu can both wait on the same input.
type lineReader struct {
	lines   chan string
	pending []string
}

func newLineReader(r io.Reader) *lineReader {
	l := &lineReader{lines: make(chan string)}
	go func() {
		defer close(l.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			l.lines <- scanner.Text()
		}
	}()
	return l
}

// next returns the next trimmed line; ok is false once input is exhausted.
func (l *lineReader) next() (string, bool) {
	if len(l.pending) > 0 {
		line := l.pending[0]
		l.pending = l.pending[1:]
		return strings.TrimSpace(line), true
	}
	line, ok := <-l.lines
	return strings.TrimSpace(line), ok
}

// inputStop is a StopFlag that remembers whether the walk saw it set.
type inputStop struct {
	query.StopFlag
	seen atomic.Bool
}

func (s *inputStop) Cancelled() bool {
	if s.StopFlag.Cancelled() {
		s.seen.Store(true)
		return true
	}
	return false
}

// stopOnInput sets stop when a line arrives or input ends. The returned
// finish must be called once the walk is over; a line that arrived after
// the walk stopped looking at stop is handed back to next.
func (l *lineReader) stopOnInput(stop *inputStop) (finish func()) {
	done := make(chan struct{})
	consumed := make(chan string, 1)
	go func() {
		defer close(consumed)
		select {
		case line, ok := <-l.lines:
			stop.Stop()
			if ok {
				consumed <- line
			}
		case <-done:
		}
	}()

	return func() {
		close(done)
		for line := range consumed {
			if !stop.seen.Load() {
				l.pending = append(l.pending, line)
			}
		}
	}
}

type shell struct {
	app    *app
	engine *engine.Engine
	lines  *lineReader
	render bool
}

func (s *shell) prompt(msg string) (string, bool) {
	s.app.printf("%s", msg)
	return s.lines.next()
}

func (s *shell) loop(ctx context.Context) error {
	for {
		s.app.printf("\nSelect an option:\n")
		s.app.printf("1. Read a text file and build the graph\n")
		s.app.printf("2. Query bridge words\n")
		s.app.printf("3. Generate new text from bridge words\n")
		s.app.printf("4. Shortest path between two words\n")
		s.app.printf("5. Random walk\n")
		s.app.printf("6. Exit\n")

		choice, ok := s.prompt("Enter your choice: ")
		if !ok {
			s.app.printf("\nExiting...\n")
			return nil
		}

		var err error
		switch choice {
		case "1":
			err = s.ingest(ctx)
		case "2":
			err = s.bridge()
		case "3":
			err = s.generate()
		case "4":
			err = s.path(ctx)
		case "5":
			err = s.walk(ctx)
		case "6":
			s.app.printf("Exiting...\n")
			return nil
		default:
			s.app.printf("Invalid choice. Please try again.\n")
		}
		if err != nil {
			return err
		}
	}
}

func (s *shell) ingest(ctx context.Context) error {
	path, ok := s.prompt("Enter the text file path: ")
	if !ok || path == "" {
		return nil
	}

	res, err := s.engine.IngestPaths(ctx, []string{path}, nil)
	if err != nil {
		// A bad path should not end the session.
		s.app.warn("Error: %v", err)
		return nil
	}
	s.app.success("✓ Read %d file(s), %d distinct words", res.Files, res.Nodes)

	return s.app.exportGraph(ctx, s.engine, s.render)
}

func (s *shell) words() (string, string, bool) {
	first, ok := s.prompt("Enter the first word: ")
	if !ok {
		return "", "", false
	}
	second, ok := s.prompt("Enter the second word: ")
	return first, second, ok
}

func (s *shell) bridge() error {
	first, second, ok := s.words()
	if !ok {
		return nil
	}
	s.app.printf("%s\n", s.engine.DescribeBridgeWords(first, second))
	return nil
}

func (s *shell) generate() error {
	text, ok := s.prompt("Enter the input text: ")
	if !ok {
		return nil
	}
	s.app.printf("Generated new text: %s\n", s.engine.Augment(text))
	return nil
}

func (s *shell) path(ctx context.Context) error {
	first, second, ok := s.words()
	if !ok {
		return nil
	}

	res, err := s.engine.ShortestPaths(first, second)
	if err != nil {
		if engine.IsQueryMiss(err) {
			s.app.printf("%s\n", err)
			return nil
		}
		return err
	}

	printPaths(s.app, res)
	return s.app.exportPaths(ctx, s.engine, res.Paths, s.render)
}

// walk runs a random walk that stops on the next input line or on Ctrl+C.
func (s *shell) walk(ctx context.Context) error {
	output, ok := s.prompt("Enter the output file path for random walk: ")
	if !ok {
		return nil
	}
	if output == "" {
		output = s.app.cfg.Walk.OutputFile
	}

	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt)
	defer stopSignals()

	var stop inputStop
	finish := s.lines.stopOnInput(&stop)
	defer finish()

	s.app.printf("Press Enter to stop the random walk...\n")
	return runWalk(ctx, s.app, s.engine, &stop, s.app.cfg.Walk.StepDelay, output)
}
