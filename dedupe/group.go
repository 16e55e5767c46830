package dedupe

import (
	"sort"

	"github.com/google/uuid"

	"imagedup/scan"
)

// MatchKind says how a group's members were judged duplicate.
type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchSimilar MatchKind = "similar"
)

// DuplicateGroup is a set of two or more files that are mutually
// duplicate (exact) or mutually similar. Groups partition the files
// within each kind: no file appears in two groups of the same kind, and
// a file with an exact duplicate never appears in a similar group.
type DuplicateGroup struct {
	ID   string    `json:"id"`
	Kind MatchKind `json:"match_kind"`
	// Digest is the hex content digest, exact groups only.
	Digest string `json:"digest,omitempty"`
	// Distance is the maximum pairwise Hamming distance, similar groups
	// only.
	Distance int               `json:"distance"`
	Files    []scan.FileRecord `json:"members"`
}

// ReclaimableSize is the space freed by keeping only the largest member.
func (g *DuplicateGroup) ReclaimableSize() int64 {
	var total, largest int64
	for _, f := range g.Files {
		total += f.Size
		if f.Size > largest {
			largest = f.Size
		}
	}
	return total - largest
}

// BuildGroups merges exact groups and similar clusters into the final
// ordered list: exact groups first, both kinds sorted by descending
// reclaimable size with a lexicographic first-path tie-break. The order
// is deterministic for a fixed input set regardless of how the matchers
// scheduled their work.
func BuildGroups(exact map[ContentDigest][]scan.FileRecord, clusters []Cluster) []DuplicateGroup {
	var exactGroups, similarGroups []DuplicateGroup

	for digest, files := range exact {
		sorted := append([]scan.FileRecord(nil), files...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
		exactGroups = append(exactGroups, DuplicateGroup{
			ID:     uuid.NewString(),
			Kind:   MatchExact,
			Digest: digest.Hex(),
			Files:  sorted,
		})
	}
	for _, c := range clusters {
		similarGroups = append(similarGroups, DuplicateGroup{
			ID:       uuid.NewString(),
			Kind:     MatchSimilar,
			Distance: c.MaxDistance,
			Files:    c.Files,
		})
	}

	sortGroups(exactGroups)
	sortGroups(similarGroups)
	return append(exactGroups, similarGroups...)
}

func sortGroups(groups []DuplicateGroup) {
	sort.Slice(groups, func(i, j int) bool {
		ri, rj := groups[i].ReclaimableSize(), groups[j].ReclaimableSize()
		if ri != rj {
			return ri > rj
		}
		return groups[i].Files[0].Path < groups[j].Files[0].Path
	})
}

// TotalReclaimable sums the reclaimable size across groups.
func TotalReclaimable(groups []DuplicateGroup) int64 {
	var total int64
	for i := range groups {
		total += groups[i].ReclaimableSize()
	}
	return total
}
