package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrRendererMissing is returned when the Graphviz binary is not on PATH.
var ErrRendererMissing = errors.New("graphviz renderer not found")

// Renderer converts DOT files to images by running Graphviz.
type Renderer struct {
	// Binary is the executable name or path, "dot" when empty.
	Binary string

	// Format is the -T output format, "png" when empty.
	Format string
}

// NewRenderer returns a Renderer for binary and format.
func NewRenderer(binary, format string) *Renderer {
	return &Renderer{Binary: binary, Format: format}
}

// Available reports whether the binary can be found.
func (r *Renderer) Available() bool {
	_, err := exec.LookPath(r.binary())
	return err == nil
}

// Render runs `<binary> -T<format> in -o out`, creating the directory of
// out first. Anything Graphviz prints on stderr is part of the error.
func (r *Renderer) Render(ctx context.Context, in, out string) error {
	bin, err := exec.LookPath(r.binary())
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRendererMissing, r.binary())
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(out), err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-T"+r.format(), in, "-o", out)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("rendering %s: %w: %s", in, err, msg)
		}
		return fmt.Errorf("rendering %s: %w", in, err)
	}
	return nil
}

func (r *Renderer) binary() string {
	if r.Binary == "" {
		return "dot"
	}
	return r.Binary
}

func (r *Renderer) format() string {
	if r.Format == "" {
		return "png"
	}
	return r.Format
}
