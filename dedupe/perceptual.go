package dedupe

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"imagedup/phash"
	"imagedup/scan"
)

// PerceptualMatcher clusters near-duplicate images by visual fingerprint.
// It only ever sees the exact stage's residual: a file already confirmed
// as a byte-exact duplicate is never re-evaluated for similarity.
type PerceptualMatcher struct {
	threshold int
	workers   int
	log       *slog.Logger

	// Fingerprint produces a file's visual fingerprint. Defaults to
	// phash.File; injected in tests.
	Fingerprint func(path string) (phash.Fingerprint, error)

	Reporter scan.Reporter
}

func NewPerceptualMatcher(threshold, workers int, logger *slog.Logger) *PerceptualMatcher {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PerceptualMatcher{
		threshold:   threshold,
		workers:     workers,
		log:         logger,
		Fingerprint: phash.File,
	}
}

// Cluster is a set of mutually similar files and the maximum pairwise
// Hamming distance observed inside it.
type Cluster struct {
	Files       []scan.FileRecord
	MaxDistance int
}

type fingerprinted struct {
	rec  scan.FileRecord
	fp   phash.Fingerprint
	err  error
	skip bool
}

// Match fingerprints every decodable candidate in parallel, waits for the
// full set (union-find needs all candidates before clustering starts),
// then takes the transitive closure of the distance-threshold relation.
// Pairwise comparison is restricted to files of the same extension
// family, keeping the quadratic step within small pools.
func (m *PerceptualMatcher) Match(ctx context.Context, candidates []scan.FileRecord) ([]Cluster, []scan.Warning, error) {
	results := make([]fingerprinted, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, rec := range candidates {
		if !phash.CanDecode(rec.Ext) {
			results[i] = fingerprinted{rec: rec, skip: true}
			continue
		}
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp, err := m.Fingerprint(rec.Path)
			results[i] = fingerprinted{rec: rec, fp: fp, err: err}
			return nil
		})
	}
	// Barrier: clustering must not start on a partial fingerprint set.
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var warnings []scan.Warning
	var pool []fingerprinted
	for _, r := range results {
		switch {
		case r.skip:
		case r.err != nil:
			m.log.Warn("cannot fingerprint image", "path", r.rec.Path, "err", r.err)
			warnings = append(warnings, scan.Warning{Path: r.rec.Path, Kind: decodeKind(r.err), Err: r.err})
		default:
			pool = append(pool, r)
		}
	}

	m.report(len(pool))
	clusters := m.cluster(pool)
	m.log.Info("perceptual matching complete",
		"fingerprinted", len(pool), "clusters", len(clusters), "warnings", len(warnings))
	return clusters, warnings, nil
}

func (m *PerceptualMatcher) cluster(pool []fingerprinted) []Cluster {
	// Pools per extension family; indices refer into pool.
	families := make(map[string][]int)
	for i, p := range pool {
		fam := scan.ExtFamily(p.rec.Ext)
		families[fam] = append(families[fam], i)
	}

	uf := newUnionFind(len(pool))
	for _, idxs := range families {
		for a := 0; a < len(idxs); a++ {
			for b := a + 1; b < len(idxs); b++ {
				i, j := idxs[a], idxs[b]
				if pool[i].fp.Distance(pool[j].fp) <= m.threshold {
					uf.union(i, j)
				}
			}
		}
	}

	members := make(map[int][]int)
	for i := range pool {
		root := uf.find(i)
		members[root] = append(members[root], i)
	}

	var clusters []Cluster
	for _, idxs := range members {
		if len(idxs) < 2 {
			continue
		}
		c := Cluster{Files: make([]scan.FileRecord, 0, len(idxs))}
		for a := 0; a < len(idxs); a++ {
			c.Files = append(c.Files, pool[idxs[a]].rec)
			for b := a + 1; b < len(idxs); b++ {
				if d := pool[idxs[a]].fp.Distance(pool[idxs[b]].fp); d > c.MaxDistance {
					c.MaxDistance = d
				}
			}
		}
		sort.Slice(c.Files, func(i, j int) bool { return c.Files[i].Path < c.Files[j].Path })
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Files[0].Path < clusters[j].Files[0].Path })
	return clusters
}

func (m *PerceptualMatcher) report(count int) {
	if m.Reporter != nil {
		m.Reporter.Report(scan.Progress{FilesScanned: count, Stage: scan.StageClustering})
	}
}

// decodeKind attributes undecodable pixel data to the image itself
// unless the underlying failure was an I/O error.
func decodeKind(err error) scan.ErrorKind {
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
		return scan.Classify(err)
	}
	return scan.KindCorruptImage
}
