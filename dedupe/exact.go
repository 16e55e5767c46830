package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"sync"

	"imagedup/scan"
)

// ContentDigest is the SHA-256 of a file's full contents; it is the
// canonical key of an exact-duplicate group.
type ContentDigest [sha256.Size]byte

func (d ContentDigest) Hex() string { return hex.EncodeToString(d[:]) }

// bucketKey is the cheap pre-filter: files that differ in size or
// extension cannot be byte-identical duplicates of each other.
type bucketKey struct {
	size int64
	ext  string
}

// ExactMatcher groups byte-identical files. Records stream in from the
// scanner; a file is only hashed once its (size, extension) bucket holds
// a second member, so unique files never cost a content read.
type ExactMatcher struct {
	workers   int
	chunkSize int
	log       *slog.Logger

	Reporter scan.Reporter
}

func NewExactMatcher(workers, chunkSizeKB int, logger *slog.Logger) *ExactMatcher {
	if workers < 1 {
		workers = 1
	}
	if chunkSizeKB < 1 {
		chunkSizeKB = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExactMatcher{workers: workers, chunkSize: chunkSizeKB * 1024, log: logger}
}

// ExactResult carries the exact groups plus everything later stages need:
// the residual files (scanned, readable, not in any exact group) and the
// per-scan digest cache.
type ExactResult struct {
	// Groups holds only digests shared by two or more files.
	Groups map[ContentDigest][]scan.FileRecord
	// Residual is every scanned file outside all exact groups, excluding
	// files whose hashing failed.
	Residual []scan.FileRecord
	// Digests caches each hashed file's digest for the scan session.
	Digests  map[string]ContentDigest
	Warnings []scan.Warning
	Hashed   int
}

type hashOutcome struct {
	rec    scan.FileRecord
	digest ContentDigest
	err    error
}

// Match consumes records until in is closed. The grouping result is
// independent of worker count and arrival order: workers only hash,
// while a single aggregating loop owns the digest map.
func (m *ExactMatcher) Match(ctx context.Context, in <-chan scan.FileRecord) (*ExactResult, error) {
	jobs := make(chan scan.FileRecord, m.workers*2)
	results := make(chan hashOutcome, m.workers*2)
	singles := make(chan []scan.FileRecord, 1)

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go m.hashWorker(ctx, jobs, results, &wg)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Bucketer: owns the (size, ext) buckets. A bucket's files are
	// dispatched for hashing the moment it stops being a singleton.
	// Blocking on a full jobs queue is what throttles the scanner.
	go func() {
		defer close(jobs)
		buckets := make(map[bucketKey][]scan.FileRecord)
		for rec := range in {
			key := bucketKey{size: rec.Size, ext: rec.Ext}
			buckets[key] = append(buckets[key], rec)
			switch len(buckets[key]) {
			case 1:
				// plausible unique, hold back
			case 2:
				jobs <- buckets[key][0]
				jobs <- rec
			default:
				jobs <- rec
			}
		}
		var leftover []scan.FileRecord
		for _, files := range buckets {
			if len(files) == 1 {
				leftover = append(leftover, files[0])
			}
		}
		singles <- leftover
	}()

	res := &ExactResult{
		Groups:  make(map[ContentDigest][]scan.FileRecord),
		Digests: make(map[string]ContentDigest),
	}
	byDigest := make(map[ContentDigest][]scan.FileRecord)
	for out := range results {
		if out.err != nil {
			m.log.Warn("cannot hash file", "path", out.rec.Path, "err", out.err)
			res.Warnings = append(res.Warnings, scan.Warning{
				Path: out.rec.Path,
				Kind: scan.Classify(out.err),
				Err:  out.err,
			})
			continue
		}
		res.Hashed++
		res.Digests[out.rec.Path] = out.digest
		byDigest[out.digest] = append(byDigest[out.digest], out.rec)
		if res.Hashed%10 == 0 {
			m.reportProgress(res.Hashed, out.rec.Path)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for digest, files := range byDigest {
		if len(files) >= 2 {
			res.Groups[digest] = files
		} else {
			res.Residual = append(res.Residual, files...)
		}
	}
	res.Residual = append(res.Residual, <-singles...)

	m.log.Info("exact matching complete",
		"hashed", res.Hashed, "groups", len(res.Groups), "warnings", len(res.Warnings))
	return res, nil
}

func (m *ExactMatcher) hashWorker(ctx context.Context, jobs <-chan scan.FileRecord, results chan<- hashOutcome, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, m.chunkSize)
	for rec := range jobs {
		// Cancellation is observed between files, never mid-read.
		if ctx.Err() != nil {
			continue
		}
		digest, err := hashFile(rec.Path, buf)
		results <- hashOutcome{rec: rec, digest: digest, err: err}
	}
}

func (m *ExactMatcher) reportProgress(hashed int, path string) {
	if m.Reporter != nil {
		m.Reporter.Report(scan.Progress{FilesScanned: hashed, Stage: scan.StageHashing, Path: path})
	}
}

// HashFile computes the content digest of one file, reading in chunks
// of chunkSizeKB so memory stays bounded regardless of file size.
func HashFile(path string, chunkSizeKB int) (ContentDigest, error) {
	if chunkSizeKB < 1 {
		chunkSizeKB = 64
	}
	return hashFile(path, make([]byte, chunkSizeKB*1024))
}

func hashFile(path string, buf []byte) (ContentDigest, error) {
	var digest ContentDigest
	f, err := os.Open(path)
	if err != nil {
		return digest, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return digest, err
	}
	copy(digest[:], h.Sum(nil))
	return digest, nil
}
