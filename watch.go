package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"imagedup/config"
	"imagedup/dedupe"
	"imagedup/phash"
	"imagedup/scan"
)

// watchIndex tracks known content digests and fingerprints so new files
// can be checked for duplicates as they appear.
type watchIndex struct {
	mu       sync.RWMutex
	byDigest map[dedupe.ContentDigest][]string
	prints   []printEntry

	filesTracked int
	dupesFound   int
	recoverable  int64
}

type printEntry struct {
	path string
	fp   phash.Fingerprint
}

func (ix *watchIndex) addDigest(path string, d dedupe.ContentDigest) []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	existing := append([]string(nil), ix.byDigest[d]...)
	ix.byDigest[d] = append(ix.byDigest[d], path)
	ix.filesTracked++
	return existing
}

func (ix *watchIndex) addPrint(path string, fp phash.Fingerprint, threshold int) []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	var similar []string
	for _, e := range ix.prints {
		if fp.Distance(e.fp) <= threshold {
			similar = append(similar, e.path)
		}
	}
	ix.prints = append(ix.prints, printEntry{path: path, fp: fp})
	return similar
}

// runWatch performs a full scan, then monitors the roots and reports
// duplicates of newly created files in real time.
func runWatch(ctx context.Context, roots []string, cfg config.Config, logger *slog.Logger) error {
	fmt.Printf("Watching %s for duplicate images (Ctrl+C to stop)\n", strings.Join(roots, ", "))

	pipeline := dedupe.New(roots, cfg, logger, nil)
	res, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	printReport(res, cfg.Strategy())

	index := &watchIndex{byDigest: make(map[dedupe.ContentDigest][]string)}
	for path, d := range res.Digests {
		index.byDigest[d] = append(index.byDigest[d], path)
		index.filesTracked++
	}
	if cfg.PerceptualHash.Enabled {
		for path := range res.Digests {
			if !phash.CanDecode(scan.NormalizeExt(path)) {
				continue
			}
			fp, err := phash.File(path)
			if err != nil {
				continue
			}
			index.prints = append(index.prints, printEntry{path: path, fp: fp})
		}
	}
	fmt.Printf("Tracking %d files.\n\n", index.filesTracked)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	extensions := cfg.ExtensionSet()
	for _, root := range pipeline.Roots() {
		if err := addWatchTree(watcher, root, cfg.IncludeHiddenFolders); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
	}

	var pending []string
	var debounce *time.Timer
	debounced := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\nStopped. Tracked %d files, found %d duplicates (%s recoverable).\n",
				index.filesTracked, index.dupesFound, formatBytes(index.recoverable))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchTree(watcher, event.Name, cfg.IncludeHiddenFolders); err != nil {
						logger.Warn("cannot watch new directory", "path", event.Name, "err", err)
					}
					continue
				}
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !watchable(event.Name, extensions, cfg.MinFileSizeBytes) {
				continue
			}
			pending = append(pending, event.Name)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(opts.WatchDebounce, func() {
				select {
				case debounced <- struct{}{}:
				default:
				}
			})

		case <-debounced:
			batch := dedupSorted(pending)
			pending = nil
			for _, path := range batch {
				checkNewFile(path, index, cfg, logger)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		}
	}
}

// addWatchTree registers a directory and its subdirectories.
func addWatchTree(watcher *fsnotify.Watcher, root string, includeHidden bool) error {
	if err := watcher.Add(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		if !includeHidden && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		// Directories we cannot watch are skipped, not fatal.
		watcher.Add(path)
		return nil
	})
}

func watchable(path string, extensions map[string]bool, minSize int64) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if !extensions[scan.NormalizeExt(path)] {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() >= minSize
}

func dedupSorted(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// checkNewFile hashes one new file and reports any duplicates found.
func checkNewFile(path string, index *watchIndex, cfg config.Config, logger *slog.Logger) {
	digest, err := dedupe.HashFile(path, cfg.HashChunkSizeKB)
	if err != nil {
		logger.Warn("cannot hash new file", "path", path, "err", err)
		return
	}

	exact := index.addDigest(path, digest)

	var similar []string
	if cfg.PerceptualHash.Enabled && phash.CanDecode(scan.NormalizeExt(path)) {
		if fp, err := phash.File(path); err == nil {
			similar = index.addPrint(path, fp, cfg.PerceptualHash.SimilarityThreshold)
		}
	}

	if len(exact) == 0 && len(similar) == 0 {
		fmt.Printf("new file: %s\n", path)
		return
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	index.mu.Lock()
	index.dupesFound++
	index.recoverable += size
	index.mu.Unlock()

	fmt.Printf("\nDUPLICATE: %s (%s)\n", path, formatBytes(size))
	for _, p := range exact {
		fmt.Printf("  exact copy of %s\n", p)
	}
	for _, p := range similar {
		fmt.Printf("  similar to %s\n", p)
	}
	fmt.Println()
}
