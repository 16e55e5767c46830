// Package dedupe implements the multi-stage duplicate detection
// pipeline: size/extension bucketing, streamed content hashing, and
// optional perceptual clustering of near-duplicate images.
package dedupe

import (
	"context"
	"log/slog"
	"time"

	"imagedup/config"
	"imagedup/phash"
	"imagedup/scan"
)

// recordQueueSize bounds the queue between traversal and hashing so the
// scanner cannot outpace the workers without limit.
const recordQueueSize = 256

// Pipeline wires Scanner -> ExactMatcher -> PerceptualMatcher ->
// BuildGroups for one scan session.
type Pipeline struct {
	scanner    *scan.Scanner
	exact      *ExactMatcher
	perceptual *PerceptualMatcher // nil when the similarity stage is off
	log        *slog.Logger
}

// New assembles a pipeline from the configuration. Every component gets
// its settings at construction; nothing reads configuration afterwards.
func New(roots []string, cfg config.Config, logger *slog.Logger, reporter scan.Reporter) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	scanner := scan.NewScanner(roots, scan.Filter{
		Extensions:    cfg.ExtensionSet(),
		MinSize:       cfg.MinFileSizeBytes,
		IncludeHidden: cfg.IncludeHiddenFolders,
	}, logger)
	scanner.Resolve = phash.Bounds
	scanner.Reporter = reporter

	exact := NewExactMatcher(cfg.MaxWorkerThreads, cfg.HashChunkSizeKB, logger)
	exact.Reporter = reporter

	p := &Pipeline{scanner: scanner, exact: exact, log: logger}
	if cfg.PerceptualHash.Enabled {
		p.perceptual = NewPerceptualMatcher(cfg.PerceptualHash.SimilarityThreshold, cfg.MaxWorkerThreads, logger)
		p.perceptual.Reporter = reporter
	}
	return p
}

// Stats summarizes one pipeline run.
type Stats struct {
	FilesScanned  int
	FilesHashed   int
	ExactGroups   int
	SimilarGroups int
	WastedBytes   int64
	Elapsed       time.Duration
}

// Result is the outcome of one scan session. Records and groups are
// read-only once produced; a re-scan builds a fresh Result.
type Result struct {
	Groups   []DuplicateGroup
	Warnings []scan.Warning
	// Digests is the session's content-digest cache, keyed by path.
	Digests map[string]ContentDigest
	Stats   Stats
}

type scanOutcome struct {
	warnings []scan.Warning
	count    int
	err      error
}

// Run executes the full pipeline. On cancellation, partial results are
// discarded and ctx's error is returned; no partial groups are reported.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	records := make(chan scan.FileRecord, recordQueueSize)

	scanDone := make(chan scanOutcome, 1)
	go func() {
		warnings, err := p.scanner.Scan(ctx, records)
		close(records)
		scanDone <- scanOutcome{warnings: warnings, count: p.scanner.Scanned(), err: err}
	}()

	exactRes, err := p.exact.Match(ctx, records)
	if err != nil {
		<-scanDone
		return nil, err
	}
	sc := <-scanDone
	if sc.err != nil {
		return nil, sc.err
	}

	var clusters []Cluster
	warnings := append(sc.warnings, exactRes.Warnings...)
	if p.perceptual != nil {
		var perceptualWarnings []scan.Warning
		clusters, perceptualWarnings, err = p.perceptual.Match(ctx, exactRes.Residual)
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, perceptualWarnings...)
	}

	groups := BuildGroups(exactRes.Groups, clusters)
	res := &Result{
		Groups:   groups,
		Warnings: warnings,
		Digests:  exactRes.Digests,
		Stats: Stats{
			FilesScanned:  sc.count,
			FilesHashed:   exactRes.Hashed,
			ExactGroups:   len(exactRes.Groups),
			SimilarGroups: len(clusters),
			WastedBytes:   TotalReclaimable(groups),
			Elapsed:       time.Since(start),
		},
	}
	p.log.Info("pipeline complete",
		"scanned", res.Stats.FilesScanned,
		"exact_groups", res.Stats.ExactGroups,
		"similar_groups", res.Stats.SimilarGroups,
		"wasted_bytes", res.Stats.WastedBytes,
		"elapsed", res.Stats.Elapsed)
	return res, nil
}

// Roots exposes the scanned roots for downstream validation.
func (p *Pipeline) Roots() []string {
	return p.scanner.Roots()
}
