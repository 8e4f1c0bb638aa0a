package cmd

import (
	"context"
	"io"

	"github.com/Benny93/wordgraph/internal/engine"
	"github.com/Benny93/wordgraph/internal/graph"
	"github.com/Benny93/wordgraph/internal/render"
)

// exportGraph writes the plain DOT file and renders it when asked to.
func (a *app) exportGraph(ctx context.Context, e *engine.Engine, renderImage bool) error {
	dotFile := a.cfg.Output.DotFile
	if err := render.WriteFile(dotFile, e.WriteDOT); err != nil {
		return err
	}
	a.printf("DOT file saved to %s\n", dotFile)

	if !renderImage {
		return nil
	}
	return a.renderImage(ctx, dotFile, a.cfg.Output.ImageFile)
}

// exportPaths writes the DOT file with paths colored and renders it when
// asked to.
func (a *app) exportPaths(ctx context.Context, e *engine.Engine, paths []graph.Path, renderImage bool) error {
	dotFile := a.cfg.Output.ColoredDotFile
	style := a.style()
	if err := render.WriteFile(dotFile, func(w io.Writer) error {
		return e.WriteHighlightedDOT(w, paths, style)
	}); err != nil {
		return err
	}
	a.printf("DOT file saved to %s\n", dotFile)

	if !renderImage {
		return nil
	}
	return a.renderImage(ctx, dotFile, a.cfg.Output.PathImageFile)
}

// renderImage runs Graphviz on dotFile. A missing Graphviz install is
// reported but not treated as a failure.
func (a *app) renderImage(ctx context.Context, dotFile, imageFile string) error {
	if !a.cfg.Render.Enabled {
		return nil
	}

	r := render.NewRenderer(a.cfg.Render.Binary, a.cfg.Render.Format)
	if !r.Available() {
		a.warn("Skipping image: %v: %s", render.ErrRendererMissing, a.cfg.Render.Binary)
		return nil
	}
	if err := r.Render(ctx, dotFile, imageFile); err != nil {
		return err
	}

	a.printf("DOT file successfully converted to image.\n")
	a.logger.Debug("image rendered", "dot", dotFile, "image", imageFile)
	return nil
}
