package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultBatchDelay is how long the watcher waits after the last event
// before ingesting the batch.
const DefaultBatchDelay = 2 * time.Second

// ChangeHandler receives a batch of new or changed corpus files.
type ChangeHandler func(ctx context.Context, entries []FileEntry) error

// WatchOptions configures WatchCorpus.
type WatchOptions struct {
	// Extensions limits watched files; DefaultExtensions when empty.
	Extensions []string

	// BatchDelay defaults to DefaultBatchDelay.
	BatchDelay time.Duration

	// Known maps file paths to the SHA256 of the content already ingested.
	// Files whose content still matches are not handed to the handler.
	Known map[string]string

	Logger *slog.Logger
}

// WatchCorpus monitors a corpus directory and hands new or changed files to
// handle in batches. Deleted files are ignored since the graph only grows.
// Blocks until the context is cancelled.
func WatchCorpus(ctx context.Context, root string, opts WatchOptions, handle ChangeHandler) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.BatchDelay
	if delay <= 0 {
		delay = DefaultBatchDelay
	}

	matcher, err := loadGitignoreMatcher(root)
	if err != nil {
		return fmt.Errorf("loading .gitignore: %w", err)
	}

	state := newWatchState(root, opts.Extensions, matcher, opts.Known)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := state.addDirs(watcher, root); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	changed := make(map[string]bool)
	batchTimer := time.NewTimer(delay)
	batchTimer.Stop()

	logger.Info("watching corpus", "root", root)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := state.addDirs(watcher, event.Name); err != nil {
						logger.Warn("watching new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !state.shouldWatchFile(event.Name) {
				continue
			}

			changed[event.Name] = true
			batchTimer.Reset(delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}

			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			changed = make(map[string]bool)

			entries := state.collect(paths, logger)
			if len(entries) == 0 {
				continue
			}

			logger.Info("ingesting changed files", "files", len(entries))
			if err := handle(ctx, entries); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("ingesting changed files", "error", err)
				continue
			}
			state.remember(entries)
		}
	}
}

// watchState tracks which corpus content has already been handed off.
type watchState struct {
	root    string
	allowed map[string]bool
	matcher gitignore.Matcher
	known   map[string]string
}

func newWatchState(root string, exts []string, matcher gitignore.Matcher, known map[string]string) *watchState {
	copied := make(map[string]string, len(known))
	for k, v := range known {
		copied[k] = v
	}
	return &watchState{
		root:    root,
		allowed: extensionSet(exts),
		matcher: matcher,
		known:   copied,
	}
}

// addDirs adds dir and every non-ignored directory below it to watcher.
func (s *watchState) addDirs(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.root && s.matcher != nil && shouldSkipDir(d.Name(), path, s.root, s.matcher) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// shouldWatchFile checks if a file should be watched.
func (s *watchState) shouldWatchFile(path string) bool {
	if !s.allowed[strings.ToLower(filepath.Ext(path))] {
		return false
	}

	relPath, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}

	if s.matcher != nil && s.matcher.Match(splitPath(relPath), false) {
		return false
	}
	return true
}

// collect reads the given files and returns, in path order, those whose
// content was not handed off before. Unreadable files are skipped.
func (s *watchState) collect(paths []string, logger *slog.Logger) []FileEntry {
	sort.Strings(paths)

	var entries []FileEntry
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			relPath = path
		}

		entry, err := readEntry(path, relPath)
		if err != nil {
			logger.Warn("reading changed file", "path", relPath, "error", err)
			continue
		}

		if s.known[path] == entry.SHA256 {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// remember marks entries as handed off.
func (s *watchState) remember(entries []FileEntry) {
	for _, e := range entries {
		s.known[e.Path] = e.SHA256
	}
}
