// Package suggest picks the member of a duplicate group worth keeping.
// Suggestion is a pure function of the group contents and the strategy;
// it never mutates the group and is recomputed on demand.
package suggest

import (
	"errors"
	"fmt"

	"imagedup/scan"
)

// Strategy names the keeper-selection policy. The set is closed: each
// strategy is a total order over group members, made total by a
// shortest-path-then-lexicographic tie-break.
type Strategy string

const (
	KeepHighestResolution Strategy = "keep_highest_resolution"
	KeepOldest            Strategy = "keep_oldest"
	KeepNewest            Strategy = "keep_newest"
	KeepShortestPath      Strategy = "keep_shortest_path"
	KeepLargestFile       Strategy = "keep_largest_file"
)

// Strategies returns every known strategy, in display order.
func Strategies() []Strategy {
	return []Strategy{
		KeepHighestResolution,
		KeepOldest,
		KeepNewest,
		KeepShortestPath,
		KeepLargestFile,
	}
}

// Parse validates a strategy name.
func Parse(name string) (Strategy, error) {
	for _, s := range Strategies() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown suggestion strategy %q", name)
}

// Next cycles to the following strategy, wrapping around.
func Next(s Strategy) Strategy {
	all := Strategies()
	for i, cur := range all {
		if cur == s {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// Suggestion references exactly one member of a duplicate group.
type Suggestion struct {
	Keeper   scan.FileRecord
	Strategy Strategy
	Reason   string
}

var ErrEmptyGroup = errors.New("suggest: empty group")

// Suggest designates the member to keep. Deterministic: ties always
// resolve through the tie-break, so repeated calls return the same
// member, and the result is always an element of files.
func Suggest(files []scan.FileRecord, strategy Strategy) (Suggestion, error) {
	if len(files) == 0 {
		return Suggestion{}, ErrEmptyGroup
	}

	keeper := files[0]
	for _, f := range files[1:] {
		if preferred(f, keeper, strategy) {
			keeper = f
		}
	}
	return Suggestion{Keeper: keeper, Strategy: strategy, Reason: reason(keeper, strategy)}, nil
}

// preferred reports whether a ranks strictly ahead of b under the
// strategy's total order.
func preferred(a, b scan.FileRecord, strategy Strategy) bool {
	if c := compare(a, b, strategy); c != 0 {
		return c > 0
	}
	return tieBreak(a, b)
}

// compare returns >0 when a outranks b on the strategy criterion alone.
func compare(a, b scan.FileRecord, strategy Strategy) int {
	switch strategy {
	case KeepHighestResolution:
		return cmpInt64(pixels(a), pixels(b))
	case KeepOldest:
		return cmpInt64(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	case KeepNewest:
		return cmpInt64(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case KeepShortestPath:
		return cmpInt64(int64(len(b.Path)), int64(len(a.Path)))
	case KeepLargestFile:
		return cmpInt64(a.Size, b.Size)
	default:
		return 0
	}
}

// tieBreak: shortest path wins, then lexicographically smaller path.
func tieBreak(a, b scan.FileRecord) bool {
	if len(a.Path) != len(b.Path) {
		return len(a.Path) < len(b.Path)
	}
	return a.Path < b.Path
}

// pixels ranks files without a known resolution lowest.
func pixels(f scan.FileRecord) int64 {
	if f.Resolution == nil {
		return -1
	}
	return f.Resolution.Pixels()
}

func cmpInt64(a, b int64) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

func reason(keeper scan.FileRecord, strategy Strategy) string {
	switch strategy {
	case KeepHighestResolution:
		if keeper.Resolution != nil {
			return fmt.Sprintf("highest resolution (%s)", keeper.Resolution)
		}
		return "no resolution data"
	case KeepOldest:
		return fmt.Sprintf("oldest (created %s)", keeper.CreatedAt.Format("2006-01-02"))
	case KeepNewest:
		return fmt.Sprintf("newest (created %s)", keeper.CreatedAt.Format("2006-01-02"))
	case KeepShortestPath:
		return fmt.Sprintf("shortest path (%d chars)", len(keeper.Path))
	case KeepLargestFile:
		return fmt.Sprintf("largest file (%d bytes)", keeper.Size)
	default:
		return "default selection"
	}
}
