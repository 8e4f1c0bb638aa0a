package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/wordgraph/internal/config"
	"github.com/Benny93/wordgraph/internal/logging"
)

const testCorpus = `To seek out new worlds and new life and new civilizations,
to explore and to boldly go where no one has gone before.
`

func newTestApp(t *testing.T, input string) (*app, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.StoreDir = filepath.Join(dir, "store")
	cfg.Output.DotFile = filepath.Join(dir, "out", "output.dot")
	cfg.Output.ColoredDotFile = filepath.Join(dir, "out", "output_with_path.dot")
	cfg.Output.ImageFile = filepath.Join(dir, "out", "graph.png")
	cfg.Output.PathImageFile = filepath.Join(dir, "out", "shortest_paths.png")
	cfg.Render.Enabled = false
	cfg.Walk.StepDelay = 0
	cfg.Walk.OutputFile = filepath.Join(dir, "out", "random_walk.txt")

	var out bytes.Buffer
	return &app{
		cfg:    cfg,
		logger: logging.Discard(),
		out:    &out,
		in:     strings.NewReader(input),
		seed:   1,
	}, &out
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(testCorpus), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestIngestCmd_Run(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, "")
	corpus := writeCorpus(t)

	require.NoError(t, (&IngestCmd{Paths: []string{corpus}}).Run(a))

	assert.Contains(t, out.String(), "Graph built")
	assert.Contains(t, out.String(), "Files:          1")
	assert.Contains(t, out.String(), "DOT file saved to "+a.cfg.Output.DotFile)

	dot := readFile(t, a.cfg.Output.DotFile)
	assert.True(t, strings.HasPrefix(dot, "digraph G {\n    \"to\" [root=true];\n"))
	assert.Contains(t, dot, `"new" -> "worlds" [label="1"];`)

	t.Run("StatusListsSource", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&StatusCmd{}).Run(a))
		assert.Contains(t, out.String(), "Sources:        1")
		assert.Contains(t, out.String(), corpus)
	})
}

func TestIngestCmd_Stdin(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, testCorpus)
	require.NoError(t, (&IngestCmd{Paths: []string{"-"}}).Run(a))

	assert.Contains(t, out.String(), "Files:          0")
	assert.Contains(t, out.String(), "Words:          23")
	assert.Contains(t, readFile(t, a.cfg.Output.DotFile), `"new" -> "worlds" [label="1"];`)
}

func TestIngestCmd_MissingRenderer(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, "")
	a.cfg.Render.Enabled = true
	a.cfg.Render.Binary = filepath.Join(t.TempDir(), "no-such-dot")

	require.NoError(t, (&IngestCmd{Paths: []string{writeCorpus(t)}}).Run(a))
	assert.Contains(t, out.String(), "DOT file saved to "+a.cfg.Output.DotFile)
	assert.Contains(t, out.String(), "Skipping image")
	assert.NoFileExists(t, a.cfg.Output.ImageFile)
}

func TestIngestCmd_MissingPath(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, "")
	err := (&IngestCmd{Paths: []string{filepath.Join(t.TempDir(), "missing.txt")}}).Run(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading corpus")
}

func TestBridgeCmd_Run(t *testing.T) {
	t.Parallel()
	corpus := writeCorpus(t)

	tests := []struct {
		name     string
		from, to string
		want     string
	}{
		{"Found", "new", "and", `The bridge words from "new" to "and" are: worlds, life.`},
		{"Single", "seek", "new", `The bridge words from "seek" to "new" is: out.`},
		{"None", "civilizations", "to", `No bridge words from "civilizations" to "to"!`},
		{"Missing", "is", "art", `No "is" and "art" in the graph!`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, out := newTestApp(t, "")
			require.NoError(t, (&BridgeCmd{From: tt.from, To: tt.to, Corpus: []string{corpus}}).Run(a))
			assert.Equal(t, tt.want+"\n", out.String())
		})
	}
}

func TestGenerateCmd_Run(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, "")
	cmd := &GenerateCmd{Text: []string{"to", "out"}, Corpus: []string{writeCorpus(t)}}
	require.NoError(t, cmd.Run(a))
	assert.Equal(t, "Generated new text: to seek out\n", out.String())
}

func TestPathCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("Found", func(t *testing.T) {
		t.Parallel()
		a, out := newTestApp(t, "")
		require.NoError(t, (&PathCmd{From: "to", To: "and", Corpus: []string{writeCorpus(t)}}).Run(a))

		assert.Contains(t, out.String(), `Shortest paths from "to" to "and" (length 2):`)
		assert.Contains(t, out.String(), "1. to -> explore -> and")

		dot := readFile(t, a.cfg.Output.ColoredDotFile)
		assert.Contains(t, dot, `"to" -> "explore" [label="1", color="blue"];`)
	})

	t.Run("NoPath", func(t *testing.T) {
		t.Parallel()
		a, out := newTestApp(t, "")
		require.NoError(t, (&PathCmd{From: "before", To: "to", Corpus: []string{writeCorpus(t)}}).Run(a))
		assert.Equal(t, "There is no way from \"before\" to \"to\"!\n", out.String())
		assert.NoFileExists(t, a.cfg.Output.ColoredDotFile)
	})
}

func TestWalkCmd_Run(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, "")
	output := filepath.Join(t.TempDir(), "walk.txt")

	require.NoError(t, (&WalkCmd{Corpus: []string{writeCorpus(t)}, Output: output, Delay: -1}).Run(a))
	assert.Contains(t, out.String(), "The random walk path is: ")
	assert.Contains(t, out.String(), "Random walk stopped. Path saved to "+output)

	words := strings.Fields(readFile(t, output))
	require.NotEmpty(t, words)

	t.Run("WalksListsIt", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&WalksCmd{Limit: 5}).Run(a))
		assert.Contains(t, out.String(), "1. ")
		assert.Contains(t, out.String(), " steps in ")
		assert.Contains(t, out.String(), "Path:    "+strings.Join(words, " "))
	})
}

func TestWalkCmd_EmptyCorpus(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, "")
	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("123 456\n"), 0o644))

	require.NoError(t, (&WalkCmd{Corpus: []string{empty}, Delay: -1}).Run(a))
	assert.Contains(t, out.String(), "The graph is empty!")
	assert.NoFileExists(t, a.cfg.Walk.OutputFile)
}

func TestWalksCmd_NoHistory(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, "")
	err := (&WalksCmd{Limit: 5}).Run(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history found")
}

func TestCleanCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("Force", func(t *testing.T) {
		t.Parallel()
		a, out := newTestApp(t, "")
		require.NoError(t, os.MkdirAll(a.cfg.StoreDir, 0o755))

		require.NoError(t, (&CleanCmd{Force: true}).Run(a))
		assert.NoDirExists(t, a.cfg.StoreDir)
		assert.Contains(t, out.String(), "Deleted")
	})

	t.Run("Declined", func(t *testing.T) {
		t.Parallel()
		a, out := newTestApp(t, "n\n")
		require.NoError(t, os.MkdirAll(a.cfg.StoreDir, 0o755))

		require.NoError(t, (&CleanCmd{}).Run(a))
		assert.DirExists(t, a.cfg.StoreDir)
		assert.Contains(t, out.String(), "Aborted")
	})

	t.Run("NothingToClean", func(t *testing.T) {
		t.Parallel()
		a, _ := newTestApp(t, "")
		assert.Error(t, (&CleanCmd{Force: true}).Run(a))
	})
}

func TestShellCmd_Run(t *testing.T) {
	t.Parallel()

	corpus := writeCorpus(t)
	input := strings.Join([]string{
		"1", corpus,
		"2", "new", "and",
		"3", "to out",
		"4", "to", "and",
		"4", "before", "to",
		"9",
		"6",
	}, "\n") + "\n"

	a, out := newTestApp(t, input)
	require.NoError(t, (&ShellCmd{}).Run(a))

	got := out.String()
	assert.Contains(t, got, "Select an option:")
	assert.Contains(t, got, "Enter the text file path: ")
	assert.Contains(t, got, "DOT file saved to "+a.cfg.Output.DotFile)
	assert.Contains(t, got, `The bridge words from "new" to "and" are: worlds, life.`)
	assert.Contains(t, got, "Generated new text: to seek out")
	assert.Contains(t, got, "1. to -> explore -> and")
	assert.Contains(t, got, `There is no way from "before" to "to"!`)
	assert.Contains(t, got, "Invalid choice. Please try again.")
	assert.True(t, strings.HasSuffix(got, "Exiting...\n"))

	assert.FileExists(t, a.cfg.Output.DotFile)
	assert.FileExists(t, a.cfg.Output.ColoredDotFile)
}

func TestShellCmd_BadPathKeepsSession(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t, "1\n"+filepath.Join(t.TempDir(), "nope.txt")+"\n2\nfoo\nbar\n6\n")
	require.NoError(t, (&ShellCmd{}).Run(a))

	assert.Contains(t, out.String(), "Error:")
	assert.Contains(t, out.String(), `No "foo" and "bar" in the graph!`)
	assert.Contains(t, out.String(), "Exiting...")
}

func TestShellCmd_Walk(t *testing.T) {
	t.Parallel()

	// Input ends right after the walk starts, which also stops the walk.
	a, out := newTestApp(t, "5\n\n")
	cmd := &ShellCmd{Corpus: []string{writeCorpus(t)}}
	require.NoError(t, cmd.Run(a))

	assert.Contains(t, out.String(), "Press Enter to stop the random walk...")
	assert.Contains(t, out.String(), "The random walk path is: ")
	assert.Contains(t, out.String(), "Random walk stopped. Path saved to "+a.cfg.Walk.OutputFile)
	assert.FileExists(t, a.cfg.Walk.OutputFile)
}

func TestLineReader(t *testing.T) {
	t.Parallel()

	l := newLineReader(strings.NewReader("  one \ntwo"))

	line, ok := l.next()
	assert.True(t, ok)
	assert.Equal(t, "one", line)

	line, ok = l.next()
	assert.True(t, ok)
	assert.Equal(t, "two", line)

	_, ok = l.next()
	assert.False(t, ok)
}

func TestLineReader_StopOnInput(t *testing.T) {
	t.Parallel()

	t.Run("UnobservedLineIsHandedBack", func(t *testing.T) {
		t.Parallel()
		pr, pw := io.Pipe()
		l := newLineReader(pr)

		var stop inputStop
		finish := l.stopOnInput(&stop)
		go func() { _, _ = io.WriteString(pw, "6\n") }()

		require.Eventually(t, stop.StopFlag.Cancelled, 2*time.Second, 5*time.Millisecond)
		finish()

		line, ok := l.next()
		assert.True(t, ok)
		assert.Equal(t, "6", line)

		require.NoError(t, pw.Close())
		_, ok = l.next()
		assert.False(t, ok)
	})

	t.Run("ObservedStopConsumesLine", func(t *testing.T) {
		t.Parallel()
		pr, pw := io.Pipe()
		l := newLineReader(pr)

		var stop inputStop
		finish := l.stopOnInput(&stop)
		go func() { _, _ = io.WriteString(pw, "\n7\n") }()

		require.Eventually(t, stop.Cancelled, 2*time.Second, 5*time.Millisecond)
		finish()

		line, ok := l.next()
		assert.True(t, ok)
		assert.Equal(t, "7", line)
	})

	t.Run("NoInputDuringWalk", func(t *testing.T) {
		t.Parallel()
		pr, pw := io.Pipe()
		l := newLineReader(pr)

		var stop inputStop
		l.stopOnInput(&stop)()
		assert.False(t, stop.Cancelled())

		go func() { _, _ = io.WriteString(pw, "next\n") }()
		line, ok := l.next()
		assert.True(t, ok)
		assert.Equal(t, "next", line)
	})

	t.Run("EndOfInputStops", func(t *testing.T) {
		t.Parallel()
		l := newLineReader(strings.NewReader(""))

		var stop inputStop
		finish := l.stopOnInput(&stop)
		require.Eventually(t, stop.Cancelled, 2*time.Second, 5*time.Millisecond)
		finish()

		_, ok := l.next()
		assert.False(t, ok)
	})
}

func TestCLI_NewApp(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "wordgraph.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store_dir: from-file\nlog:\n  level: error\n"), 0o644))

	t.Run("ConfigFile", func(t *testing.T) {
		t.Parallel()
		c := &CLI{Config: cfgPath}
		a, err := c.newApp(&bytes.Buffer{}, strings.NewReader(""), &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "from-file", a.cfg.StoreDir)
		assert.False(t, a.logger.Enabled(context.Background(), slog.LevelWarn))
	})

	t.Run("FlagsOverride", func(t *testing.T) {
		t.Parallel()
		c := &CLI{Config: cfgPath, StoreDir: "from-flag", Verbose: true}
		a, err := c.newApp(&bytes.Buffer{}, strings.NewReader(""), &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, "from-flag", a.cfg.StoreDir)
		assert.True(t, a.logger.Enabled(context.Background(), slog.LevelDebug))
	})

	t.Run("Quiet", func(t *testing.T) {
		t.Parallel()
		c := &CLI{Config: cfgPath, Quiet: true}
		a, err := c.newApp(&bytes.Buffer{}, strings.NewReader(""), &bytes.Buffer{})
		require.NoError(t, err)
		assert.False(t, a.logger.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, a.logger.Enabled(context.Background(), slog.LevelWarn))
	})

	t.Run("MissingConfig", func(t *testing.T) {
		t.Parallel()
		c := &CLI{Config: filepath.Join(t.TempDir(), "nope.yaml")}
		_, err := c.newApp(&bytes.Buffer{}, strings.NewReader(""), &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestCLI_ExecuteParseError(t *testing.T) {
	t.Parallel()

	err := NewCLI().Execute([]string{"bridge", "only-one"})
	assert.Error(t, err)
}
