// Package cmd provides CLI command implementations for wordgraph.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/Benny93/wordgraph/internal/config"
	"github.com/Benny93/wordgraph/internal/engine"
	"github.com/Benny93/wordgraph/internal/ingestion"
	"github.com/Benny93/wordgraph/internal/logging"
	"github.com/Benny93/wordgraph/internal/query"
	"github.com/Benny93/wordgraph/internal/render"
	"github.com/Benny93/wordgraph/internal/storage"
	"github.com/Benny93/wordgraph/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// app carries the resolved configuration into every command.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	in     io.Reader

	// seed fixes random choices when non-zero.
	seed uint64
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(a.out, format+"\n", args...)
}

func (a *app) warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(a.out, format+"\n", args...)
}

// openStore opens the Badger history store under the configured store
// directory, creating it when needed.
func (a *app) openStore(readOnly bool) (*storage.BadgerBackend, error) {
	dbPath := filepath.Join(a.cfg.StoreDir, "badger")
	if readOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no history found at %s. Run 'wordgraph ingest' first", a.cfg.StoreDir)
		}
	} else if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

func (a *app) newEngine(store storage.StorageBackend) *engine.Engine {
	return engine.New(engine.Options{
		Store:      store,
		Logger:     a.logger,
		Extensions: a.cfg.Corpus.Extensions,
		Seed:       a.seed,
	})
}

// loadCorpus builds an engine and ingests paths into it.
func (a *app) loadCorpus(ctx context.Context, store storage.StorageBackend, paths []string) (*engine.Engine, error) {
	e := a.newEngine(store)
	if len(paths) == 0 {
		return e, nil
	}

	res, err := e.IngestPaths(ctx, paths, nil)
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	if res.Files == 0 {
		a.warn("No corpus files found (extensions: %s)", strings.Join(e.Extensions(), ", "))
	}
	return e, nil
}

func (a *app) style() render.Style {
	return render.Style{Palette: a.cfg.Highlight.Palette, SharedColor: a.cfg.Highlight.SharedColor}
}

// IngestCmd reads a corpus and exports the graph.
type IngestCmd struct {
	Paths    []string `arg:"" help:"Corpus files or directories, - for standard input"`
	NoRender bool     `help:"Only write the DOT file, skip Graphviz"`
}

// Run executes the ingest command.
func (c *IngestCmd) Run(a *app) error {
	ctx := context.Background()
	start := time.Now()

	store, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	e := a.newEngine(store)

	var fromStdin bool
	paths := make([]string, 0, len(c.Paths))
	for _, p := range c.Paths {
		if p == "-" {
			fromStdin = true
			continue
		}
		paths = append(paths, p)
	}

	var total ingestion.IngestStats
	if fromStdin {
		stats, err := e.IngestReader(a.in)
		if err != nil {
			return fmt.Errorf("reading standard input: %w", err)
		}
		total.Add(stats)
	}

	var files int
	if len(paths) > 0 {
		progress := func(phase string, pct float64) {
			a.logger.Debug("ingest progress", "phase", phase, "pct", pct*100)
		}
		res, err := e.IngestPaths(ctx, paths, progress)
		if err != nil {
			return fmt.Errorf("reading corpus: %w", err)
		}
		files = res.Files
		total.Add(ingestion.IngestStats{
			Lines:        res.Lines,
			SkippedLines: res.SkippedLines,
			Tokens:       res.Tokens,
			Edges:        res.Edges,
		})
	}

	stats := e.Stats()
	a.success("✓ Graph built")
	a.printf("  Files:          %d\n", files)
	a.printf("  Lines:          %d\n", total.Lines)
	a.printf("  Words:          %d\n", total.Tokens)
	a.printf("  Distinct words: %d\n", stats.Nodes)
	a.printf("  Edges:          %d\n", stats.Edges)
	a.printf("  Duration:       %.2fs\n", time.Since(start).Seconds())

	return a.exportGraph(ctx, e, !c.NoRender)
}

// BridgeCmd prints the bridge words between two words.
type BridgeCmd struct {
	From   string   `arg:"" help:"First word"`
	To     string   `arg:"" help:"Second word"`
	Corpus []string `short:"c" required:"" help:"Corpus files or directories"`
}

// Run executes the bridge command.
func (c *BridgeCmd) Run(a *app) error {
	e, err := a.loadCorpus(context.Background(), nil, c.Corpus)
	if err != nil {
		return err
	}

	a.printf("%s\n", e.DescribeBridgeWords(c.From, c.To))
	return nil
}

// GenerateCmd inserts bridge words into a text.
type GenerateCmd struct {
	Text   []string `arg:"" help:"Input text"`
	Corpus []string `short:"c" required:"" help:"Corpus files or directories"`
}

// Run executes the generate command.
func (c *GenerateCmd) Run(a *app) error {
	e, err := a.loadCorpus(context.Background(), nil, c.Corpus)
	if err != nil {
		return err
	}

	a.printf("Generated new text: %s\n", e.Augment(strings.Join(c.Text, " ")))
	return nil
}

// PathCmd prints the shortest paths between two words.
type PathCmd struct {
	From     string   `arg:"" help:"Start word"`
	To       string   `arg:"" help:"End word"`
	Corpus   []string `short:"c" required:"" help:"Corpus files or directories"`
	NoRender bool     `help:"Only write the DOT file, skip Graphviz"`
}

// Run executes the path command.
func (c *PathCmd) Run(a *app) error {
	ctx := context.Background()
	e, err := a.loadCorpus(ctx, nil, c.Corpus)
	if err != nil {
		return err
	}

	res, err := e.ShortestPaths(c.From, c.To)
	if err != nil {
		if engine.IsQueryMiss(err) {
			a.printf("%s\n", err)
			return nil
		}
		return err
	}

	printPaths(a, res)
	return a.exportPaths(ctx, e, res.Paths, !c.NoRender)
}

func printPaths(a *app, res *query.PathResult) {
	a.printf("Shortest paths from %q to %q (length %d):\n", res.Start, res.End, res.Distance)
	for i, p := range res.Paths {
		a.printf("  %d. %s\n", i+1, p)
	}
}

// WalkCmd runs a random walk and saves it.
type WalkCmd struct {
	Corpus []string      `short:"c" required:"" help:"Corpus files or directories"`
	Output string        `short:"o" help:"Walk output file (default from config)"`
	Delay  time.Duration `help:"Pause between steps (default from config)" default:"-1ns"`
}

// Run executes the walk command. Ctrl+C stops the walk.
func (c *WalkCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	e, err := a.loadCorpus(ctx, store, c.Corpus)
	if err != nil {
		return err
	}

	delay := a.cfg.Walk.StepDelay
	if c.Delay >= 0 {
		delay = c.Delay
	}
	output := c.Output
	if output == "" {
		output = a.cfg.Walk.OutputFile
	}

	a.printf("Walking (Ctrl+C to stop)...\n")
	return runWalk(ctx, a, e, nil, delay, output)
}

// runWalk runs one walk, printing each word as it is reached, then saves
// the path to output.
func runWalk(ctx context.Context, a *app, e *engine.Engine, src query.CancelSource, delay time.Duration, output string) error {
	hook := query.WithStepHook(func(step int, word string) {
		a.logger.Debug("walk step", "step", step, "word", word)
	})

	res, err := e.Walk(ctx, src, query.WithStepDelay(delay), hook)
	if res == nil {
		if errors.Is(err, query.ErrEmptyGraph) {
			a.printf("The graph is empty!\n")
			return nil
		}
		return err
	}
	if err != nil {
		a.warn("Walk not recorded: %v", err)
	}

	a.printf("The random walk path is: %s \n", res)
	a.printf("Stopped: %s after %d steps\n", res.Reason, res.Steps)

	if err := render.WriteFile(output, func(w io.Writer) error {
		return render.WriteWalk(w, res)
	}); err != nil {
		return err
	}
	a.printf("Random walk stopped. Path saved to %s\n", output)
	return nil
}

// WalksCmd lists recorded walks.
type WalksCmd struct {
	Limit int `short:"n" default:"10" help:"Maximum walks to show"`
}

// Run executes the walks command.
func (c *WalksCmd) Run(a *app) error {
	store, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	walks, err := store.ListWalks(context.Background(), c.Limit)
	if err != nil {
		return fmt.Errorf("listing walks: %w", err)
	}

	if len(walks) == 0 {
		a.printf("No walks recorded\n")
		return nil
	}

	for i, w := range walks {
		a.printf("\n%d. %s (%s, %d steps in %s)\n", i+1, w.ID, w.Reason, w.Steps, w.Duration().Round(time.Millisecond))
		a.printf("   Started: %s\n", w.StartedAt.Format(time.RFC3339))
		a.printf("   Path:    %s\n", w)
	}
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	Corpus []string `short:"c" help:"Corpus files or directories"`
	Simple bool     `help:"Serve line-delimited JSON-RPC instead of the SDK transport"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := a.loadCorpus(ctx, nil, c.Corpus)
	if err != nil {
		return err
	}

	server := mcp.NewServer(e)

	// No output to stdout: the MCP server uses stdio for JSON-RPC only.
	if c.Simple {
		return server.Run(ctx, a.in, a.out)
	}
	return server.RunStdio(ctx)
}

// StatusCmd shows the recorded history.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(a *app) error {
	store, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	sources, err := store.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	walks, err := store.ListWalks(ctx, 1)
	if err != nil {
		return fmt.Errorf("listing walks: %w", err)
	}

	a.printf("History at %s\n", a.cfg.StoreDir)
	a.printf("  Sources:        %d\n", len(sources))
	a.printf("  Walks:          %d\n", store.WalkCount())
	if len(walks) > 0 {
		a.printf("  Last walk:      %s (%s)\n", walks[0].StartedAt.Format(time.RFC3339), walks[0].Reason)
	}
	for _, s := range sources {
		a.printf("  - %s (%d words, %s)\n", s.Path, s.Tokens, s.IngestedAt.Format(time.RFC3339))
	}
	return nil
}

// CleanCmd deletes the recorded history.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(a *app) error {
	dir := a.cfg.StoreDir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no history found at %s. Nothing to clean", dir)
	}

	if !c.Force {
		a.printf("Delete history at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Fscanln(a.in, &response)
		if response != "y" && response != "Y" {
			a.printf("Aborted\n")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting history: %w", err)
	}

	a.success("Deleted %s", dir)
	return nil
}

// CLI is the root Kong command structure.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version information"`
	Config   string           `short:"C" help:"Config file (default .wordgraph.yaml when present)"`
	StoreDir string           `help:"Override the history store directory"`
	Verbose  bool             `short:"v" help:"Enable verbose output"`
	Quiet    bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Ingest   IngestCmd   `cmd:"" help:"Build the graph from a corpus and export it"`
	Bridge   BridgeCmd   `cmd:"" help:"Find bridge words between two words"`
	Generate GenerateCmd `cmd:"" help:"Insert bridge words into a text"`
	Path     PathCmd     `cmd:"" help:"Find the shortest paths between two words"`
	Walk     WalkCmd     `cmd:"" help:"Run a random walk"`
	Walks    WalksCmd    `cmd:"" help:"List recorded random walks"`
	Shell    ShellCmd    `cmd:"" help:"Interactive menu"`
	Watch    WatchCmd    `cmd:"" help:"Rebuild the graph as corpus files change"`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP API"`
	MCP      MCPCmd      `cmd:"" help:"Start MCP server (stdio transport)"`
	Status   StatusCmd   `cmd:"" help:"Show recorded history"`
	Clean    CleanCmd    `cmd:"" help:"Delete recorded history"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("wordgraph"),
		kong.Description("Word adjacency graphs from plain text"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	a, err := c.newApp(os.Stdout, os.Stdin, os.Stderr)
	if err != nil {
		return err
	}

	return kongCtx.Run(a)
}

// newApp loads the configuration and applies the global flags.
func (c *CLI) newApp(out io.Writer, in io.Reader, logOut io.Writer) (*app, error) {
	cfg, err := config.LoadConfig(config.Resolve(c.Config))
	if err != nil {
		return nil, err
	}
	if c.StoreDir != "" {
		cfg.StoreDir = c.StoreDir
	}

	level := cfg.Log.Level
	switch {
	case c.Verbose:
		level = "debug"
	case c.Quiet:
		level = "warn"
	}

	return &app{
		cfg:    cfg,
		logger: logging.New(logOut, level, cfg.Log.Format),
		out:    out,
		in:     in,
	}, nil
}
