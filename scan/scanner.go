package scan

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// folders never descended into unless hidden folders are included,
// regardless of their attribute bits.
var systemFolders = map[string]bool{
	"$recycle.bin":              true,
	"system volume information": true,
	"windows":                   true,
	"program files":             true,
	"program files (x86)":       true,
	"programdata":               true,
	"appdata":                   true,
	"recovery":                  true,
	"perflogs":                  true,
}

// Filter is the scan-time file filter.
type Filter struct {
	// Extensions is the allowed set, normalized lowercase with leading
	// dot. An empty set allows every extension.
	Extensions map[string]bool
	MinSize    int64
	// IncludeHidden descends into hidden/system folders and keeps
	// dot-prefixed files.
	IncludeHidden bool
}

// Allows reports whether a regular file with the given name and size
// passes the filter.
func (f Filter) Allows(name string, size int64) bool {
	if !f.IncludeHidden && strings.HasPrefix(name, ".") {
		return false
	}
	if len(f.Extensions) > 0 && !f.Extensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	return size >= f.MinSize
}

// Scanner walks root directories and produces FileRecords. Entries that
// fail the filter or raise a permission error are skipped; the latter are
// reported as warnings, never as a fatal error. Symlinked directories are
// followed, but each real path is visited at most once so link cycles
// terminate.
type Scanner struct {
	roots  []string
	filter Filter
	log    *slog.Logger

	// Resolve probes image dimensions from a file header. Nil disables
	// resolution probing. Injected so the scanner stays decoder-agnostic.
	Resolve func(path string) (width, height int, err error)

	Reporter Reporter

	scanned int
}

func NewScanner(roots []string, filter Filter, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{roots: roots, filter: filter, log: logger}
}

// Scan walks every root and sends records to out. The send blocks when
// downstream is busy, which is the back-pressure point between traversal
// and hashing. Scan does not close out. Cancellation is checked between
// directory entries.
func (s *Scanner) Scan(ctx context.Context, out chan<- FileRecord) ([]Warning, error) {
	s.scanned = 0
	var warnings []Warning
	visited := make(map[string]struct{})

	for _, root := range s.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			warnings = append(warnings, Warning{Path: root, Kind: KindDiskIO, Err: err})
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			s.log.Warn("root not accessible", "root", abs, "err", err)
			warnings = append(warnings, Warning{Path: abs, Kind: Classify(err), Err: err})
			continue
		}
		if !info.IsDir() {
			warnings = append(warnings, Warning{Path: abs, Kind: KindDiskIO, Err: fs.ErrInvalid})
			continue
		}
		if err := s.walkDir(ctx, abs, visited, out, &warnings); err != nil {
			return nil, err
		}
	}
	s.log.Info("scan complete", "files", s.scanned, "warnings", len(warnings))
	return warnings, nil
}

// ScanAll is the collecting form of Scan.
func (s *Scanner) ScanAll(ctx context.Context) ([]FileRecord, []Warning, error) {
	out := make(chan FileRecord, 64)
	var records []FileRecord
	done := make(chan struct{})
	go func() {
		for rec := range out {
			records = append(records, rec)
		}
		close(done)
	}()
	warnings, err := s.Scan(ctx, out)
	close(out)
	<-done
	if err != nil {
		return nil, nil, err
	}
	return records, warnings, nil
}

func (s *Scanner) walkDir(ctx context.Context, dir string, visited map[string]struct{}, out chan<- FileRecord, warnings *[]Warning) error {
	realPath, err := filepath.EvalSymlinks(dir)
	if err != nil {
		*warnings = append(*warnings, Warning{Path: dir, Kind: Classify(err), Err: err})
		return nil
	}
	if _, seen := visited[realPath]; seen {
		s.log.Debug("skipping already visited directory", "dir", dir, "real", realPath)
		return nil
	}
	visited[realPath] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		*warnings = append(*warnings, Warning{Path: dir, Kind: Classify(err), Err: err})
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, entry.Name())

		if isDir(entry, path) {
			if !s.filter.IncludeHidden && s.skipFolder(entry.Name()) {
				s.log.Debug("skipping hidden/system folder", "dir", path)
				continue
			}
			if err := s.walkDir(ctx, path, visited, out, warnings); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			*warnings = append(*warnings, Warning{Path: path, Kind: Classify(err), Err: err})
			continue
		}
		if info.IsDir() || !s.filter.Allows(entry.Name(), info.Size()) {
			continue
		}

		rec := FileRecord{
			Path:      path,
			Size:      info.Size(),
			Ext:       NormalizeExt(path),
			ModTime:   info.ModTime(),
			CreatedAt: createdAt(info),
		}
		if s.Resolve != nil {
			if w, h, err := s.Resolve(path); err == nil && w > 0 {
				rec.Resolution = &Resolution{Width: w, Height: h}
			}
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}

		s.scanned++
		if s.scanned%10 == 0 || s.scanned == 1 {
			report(s.Reporter, Progress{FilesScanned: s.scanned, Stage: StageScanning, Path: path})
		}
	}
	return nil
}

// Roots returns the absolute scan roots.
func (s *Scanner) Roots() []string {
	roots := make([]string, 0, len(s.roots))
	for _, r := range s.roots {
		if abs, err := filepath.Abs(r); err == nil {
			roots = append(roots, abs)
		}
	}
	return roots
}

// Scanned is the number of records produced by the last Scan.
func (s *Scanner) Scanned() int { return s.scanned }

func (s *Scanner) skipFolder(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, ".") || strings.HasPrefix(lower, "$") || systemFolders[lower]
}

// isDir resolves directory-ness through symlinks so linked trees are
// traversed (cycle detection happens in walkDir).
func isDir(entry fs.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
