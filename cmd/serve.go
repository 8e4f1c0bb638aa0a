package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Benny93/wordgraph/internal/api"
	"github.com/Benny93/wordgraph/internal/engine"
	"github.com/Benny93/wordgraph/internal/ingestion"
)

// WatchCmd rebuilds the graph as corpus files appear or change.
type WatchCmd struct {
	Dir      string `arg:"" default:"." help:"Corpus directory to watch"`
	NoRender bool   `help:"Only write the DOT file, skip Graphviz"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(a *app) error {
	store, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	go func() {
		<-osSignalChannel()
		a.printf("\nStopping watch mode...\n")
		cancel()
	}()

	e, err := a.loadCorpus(ctx, store, []string{c.Dir})
	if err != nil {
		return err
	}
	if err := a.exportGraph(ctx, e, !c.NoRender); err != nil {
		return err
	}

	a.printf("## Watch Mode\n")
	a.printf("Watching %s for changes (Ctrl+C to stop)\n\n", c.Dir)

	err = a.watch(ctx, e, c.Dir, func(ctx context.Context) error {
		return a.exportGraph(ctx, e, !c.NoRender)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	a.printf("Watch mode stopped.\n")
	return nil
}

// watch feeds changed files under dir into e until ctx is done. after, if
// set, runs once per ingested batch.
func (a *app) watch(ctx context.Context, e *engine.Engine, dir string, after func(context.Context) error) error {
	opts := ingestion.WatchOptions{
		Extensions: a.cfg.Corpus.Extensions,
		Known:      e.KnownSources(),
		Logger:     a.logger,
	}

	return ingestion.WatchCorpus(ctx, dir, opts, func(ctx context.Context, entries []ingestion.FileEntry) error {
		stats, err := e.IngestEntries(ctx, entries)
		if err != nil {
			return err
		}

		graphStats := e.Stats()
		a.success("✓ Ingested %d file(s): %d words, %d distinct words, %d edges",
			len(entries), stats.Tokens, graphStats.Nodes, graphStats.Edges)

		if after != nil {
			return after(ctx)
		}
		return nil
	})
}

// ServeCmd starts the HTTP API with optional watch mode.
type ServeCmd struct {
	Corpus []string `short:"c" help:"Corpus files or directories to load at startup"`
	Addr   string   `help:"Listen address (default from config)"`
	Watch  string   `short:"w" help:"Corpus directory to watch for changes; also the root for HTTP path ingestion"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := a.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	paths := c.Corpus
	if c.Watch != "" {
		paths = append(paths, c.Watch)
	}
	e, err := a.loadCorpus(ctx, store, paths)
	if err != nil {
		return err
	}

	addr := c.Addr
	if addr == "" {
		addr = a.cfg.HTTP.Addr
	}

	root := a.cfg.Corpus.Root
	if c.Watch != "" {
		root = c.Watch
	}

	server := api.New(e,
		api.WithStyle(a.style()),
		api.WithLogger(a.logger),
		api.WithWalkDelay(a.cfg.Walk.StepDelay),
		api.WithCorpusRoot(root),
	)

	stats := e.Stats()
	a.printf("Serving %d words on http://%s (Ctrl+C to stop)\n", stats.Nodes, addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx, addr)
	})
	if c.Watch != "" {
		g.Go(func() error {
			err := a.watch(ctx, e, c.Watch, nil)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// osSignalChannel returns a channel that receives OS interrupt signals.
func osSignalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
