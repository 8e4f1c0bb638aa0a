// Package config loads wordgraph settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config flag is given and the file exists
// in the working directory.
const DefaultFile = ".wordgraph.yaml"

// Config holds every tunable setting.
type Config struct {
	StoreDir  string          `yaml:"store_dir"`
	Output    OutputConfig    `yaml:"output"`
	Render    RenderConfig    `yaml:"render"`
	Walk      WalkConfig      `yaml:"walk"`
	Highlight HighlightConfig `yaml:"highlight"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Corpus    CorpusConfig    `yaml:"corpus"`
}

// OutputConfig names the files written by the export commands.
type OutputConfig struct {
	DotFile        string `yaml:"dot_file"`
	ColoredDotFile string `yaml:"colored_dot_file"`
	ImageFile      string `yaml:"image_file"`
	PathImageFile  string `yaml:"path_image_file"`
}

// RenderConfig controls the Graphviz invocation.
type RenderConfig struct {
	Binary  string `yaml:"binary"`
	Format  string `yaml:"format"`
	Enabled bool   `yaml:"enabled"`
}

// WalkConfig controls random walks started from the CLI.
type WalkConfig struct {
	StepDelay  time.Duration `yaml:"step_delay"`
	OutputFile string        `yaml:"output_file"`
}

// HighlightConfig sets the colors used for shortest-path exports.
type HighlightConfig struct {
	Palette     []string `yaml:"palette"`
	SharedColor string   `yaml:"shared_color"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CorpusConfig filters the files picked up from corpus directories.
type CorpusConfig struct {
	Extensions []string `yaml:"extensions"`

	// Root is the only directory POST /api/ingest may read from. Empty
	// turns path ingestion over HTTP off unless serve watches a directory.
	Root string `yaml:"root"`
}

// DefaultConfig returns the settings used when no file overrides them.
func DefaultConfig() Config {
	return Config{
		StoreDir: ".wordgraph",
		Output: OutputConfig{
			DotFile:        "out/text/output.dot",
			ColoredDotFile: "out/text/output_with_path.dot",
			ImageFile:      "out/png/graph.png",
			PathImageFile:  "out/png/shortest_paths.png",
		},
		Render: RenderConfig{
			Binary:  "dot",
			Format:  "png",
			Enabled: true,
		},
		Walk: WalkConfig{
			StepDelay:  500 * time.Millisecond,
			OutputFile: "out/text/random_walk.txt",
		},
		Highlight: HighlightConfig{
			Palette:     []string{"blue", "red", "green", "orange", "pink"},
			SharedColor: "yellow",
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8420",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Corpus: CorpusConfig{
			Extensions: []string{".txt", ".md"},
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults.
//
// An empty path returns the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve picks the config file to load: the explicit path if set,
// otherwise DefaultFile when it exists, otherwise none.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// Validate checks the settings that would fail later in a confusing way.
func (c Config) Validate() error {
	if len(c.Highlight.Palette) == 0 {
		return errors.New("highlight.palette must not be empty")
	}
	if c.Highlight.SharedColor == "" {
		return errors.New("highlight.shared_color must not be empty")
	}
	if c.Walk.StepDelay < 0 {
		return errors.New("walk.step_delay must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}

	return nil
}
