package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/sync/errgroup"
)

// FileEntry represents a corpus file to be ingested.
type FileEntry struct {
	// Path is the file path as found on disk.
	Path string

	// RelPath is the path relative to the corpus root.
	RelPath string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// DefaultExtensions are the corpus file extensions used when none are configured.
var DefaultExtensions = []string{".txt", ".md"}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	".wordgraph/",
	"node_modules/",
	"vendor/",
	".DS_Store",
	"Thumbs.db",
	"*.swp",
	"*~",
}

// WalkCorpus returns every corpus file under root in lexical order.
//
// If root is a regular file it is returned as the only entry, whatever its
// extension. Directories are walked recursively, keeping files whose
// extension is in exts (DefaultExtensions when empty) and that are not
// ignored by the default patterns, patterns, or the root's .gitignore.
func WalkCorpus(root string, patterns []gitignore.Pattern, exts []string) ([]FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading corpus path: %w", err)
	}
	if !info.IsDir() {
		entry, err := readEntry(root, filepath.Base(root))
		if err != nil {
			return nil, err
		}
		return []FileEntry{entry}, nil
	}

	fromFile, err := loadGitignore(root)
	if err != nil {
		return nil, fmt.Errorf("loading .gitignore: %w", err)
	}

	allPatterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns)+len(fromFile))
	for _, p := range defaultIgnorePatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(p, nil))
	}
	allPatterns = append(allPatterns, patterns...)
	allPatterns = append(allPatterns, fromFile...)

	matcher := gitignore.NewMatcher(allPatterns)
	allowed := extensionSet(exts)

	var entries []FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name(), path, root, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		if !allowed[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		entries = append(entries, FileEntry{Path: path, RelPath: relPath})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus: %w", err)
	}

	if err := readContents(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// readContents fills Content and SHA256 of every entry concurrently.
func readContents(entries []FileEntry) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range entries {
		g.Go(func() error {
			entry, err := readEntry(entries[i].Path, entries[i].RelPath)
			if err != nil {
				return err
			}
			entries[i] = entry
			return nil
		})
	}
	return g.Wait()
}

func readEntry(path, relPath string) (FileEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileEntry{}, fmt.Errorf("reading %s: %w", relPath, err)
	}
	return FileEntry{
		Path:    path,
		RelPath: relPath,
		Content: content,
		SHA256:  hashContent(content),
	}, nil
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// loadGitignore loads .gitignore patterns from the corpus root.
func loadGitignore(root string) ([]gitignore.Pattern, error) {
	gitignorePath := filepath.Join(root, ".gitignore")

	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return patterns, nil
}

// loadGitignoreMatcher builds a matcher from the default patterns and the
// root's .gitignore.
func loadGitignoreMatcher(root string) (gitignore.Matcher, error) {
	patterns, err := loadGitignore(root)
	if err != nil {
		return nil, err
	}
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	all = append(all, patterns...)
	return gitignore.NewMatcher(all), nil
}

func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(name, path, root string, matcher gitignore.Matcher) bool {
	if name == ".git" {
		return true
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return matcher.Match(splitPath(relPath), true)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
