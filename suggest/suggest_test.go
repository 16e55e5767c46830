package suggest

import (
	"testing"
	"time"

	"imagedup/scan"
)

func record(path string, size int64, created time.Time, res *scan.Resolution) scan.FileRecord {
	return scan.FileRecord{
		Path:       path,
		Size:       size,
		Ext:        scan.NormalizeExt(path),
		CreatedAt:  created,
		Resolution: res,
	}
}

func TestSuggestHighestResolution(t *testing.T) {
	now := time.Now()
	files := []scan.FileRecord{
		record("/photos/small.jpg", 100, now, &scan.Resolution{Width: 800, Height: 600}),
		record("/photos/big.jpg", 90, now, &scan.Resolution{Width: 1920, Height: 1080}),
		record("/photos/unknown.jpg", 200, now, nil),
	}

	s, err := Suggest(files, KeepHighestResolution)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if s.Keeper.Path != "/photos/big.jpg" {
		t.Errorf("Keeper = %s, want /photos/big.jpg", s.Keeper.Path)
	}
	if s.Reason == "" {
		t.Error("Suggestion has empty reason")
	}
}

func TestSuggestOldestAndNewest(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	files := []scan.FileRecord{
		record("/a/old.jpg", 100, old, nil),
		record("/a/new.jpg", 100, recent, nil),
	}

	s, _ := Suggest(files, KeepOldest)
	if s.Keeper.Path != "/a/old.jpg" {
		t.Errorf("KeepOldest keeper = %s, want /a/old.jpg", s.Keeper.Path)
	}
	s, _ = Suggest(files, KeepNewest)
	if s.Keeper.Path != "/a/new.jpg" {
		t.Errorf("KeepNewest keeper = %s, want /a/new.jpg", s.Keeper.Path)
	}
}

func TestSuggestShortestPath(t *testing.T) {
	now := time.Now()
	files := []scan.FileRecord{
		record("/photos/archive/2024/copy of vacation.jpg", 100, now, nil),
		record("/photos/vacation.jpg", 100, now, nil),
	}

	s, _ := Suggest(files, KeepShortestPath)
	if s.Keeper.Path != "/photos/vacation.jpg" {
		t.Errorf("Keeper = %s, want /photos/vacation.jpg", s.Keeper.Path)
	}
}

func TestSuggestLargestFile(t *testing.T) {
	now := time.Now()
	files := []scan.FileRecord{
		record("/a/compressed.jpg", 1000, now, nil),
		record("/a/original00.jpg", 5000, now, nil),
	}

	s, _ := Suggest(files, KeepLargestFile)
	if s.Keeper.Path != "/a/original00.jpg" {
		t.Errorf("Keeper = %s, want /a/original00.jpg", s.Keeper.Path)
	}
}

func TestSuggestTieBreakDeterministic(t *testing.T) {
	now := time.Now()
	// Identical on every criterion; only paths differ.
	files := []scan.FileRecord{
		record("/a/bb.jpg", 100, now, nil),
		record("/a/aa.jpg", 100, now, nil),
		record("/longer/aa.jpg", 100, now, nil),
	}

	for _, strategy := range Strategies() {
		s, err := Suggest(files, strategy)
		if err != nil {
			t.Fatalf("Suggest(%s) error = %v", strategy, err)
		}
		if s.Keeper.Path != "/a/aa.jpg" {
			t.Errorf("Suggest(%s) keeper = %s, want /a/aa.jpg (shortest then lexicographic)",
				strategy, s.Keeper.Path)
		}
	}
}

func TestSuggestKeeperIsGroupMember(t *testing.T) {
	now := time.Now()
	files := []scan.FileRecord{
		record("/x/one.jpg", 10, now, nil),
		record("/x/two.jpg", 20, now.Add(time.Hour), &scan.Resolution{Width: 10, Height: 10}),
		record("/x/three.jpg", 30, now.Add(2*time.Hour), nil),
	}
	for _, strategy := range Strategies() {
		s, err := Suggest(files, strategy)
		if err != nil {
			t.Fatalf("Suggest(%s) error = %v", strategy, err)
		}
		found := false
		for _, f := range files {
			if f.Path == s.Keeper.Path {
				found = true
			}
		}
		if !found {
			t.Errorf("Suggest(%s) keeper %s is not a group member", strategy, s.Keeper.Path)
		}
	}
}

func TestSuggestEmptyGroup(t *testing.T) {
	if _, err := Suggest(nil, KeepOldest); err != ErrEmptyGroup {
		t.Errorf("Suggest(nil) error = %v, want ErrEmptyGroup", err)
	}
}

func TestParse(t *testing.T) {
	for _, s := range Strategies() {
		got, err := Parse(string(s))
		if err != nil || got != s {
			t.Errorf("Parse(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := Parse("keep_random"); err == nil {
		t.Error("Parse(keep_random) returned nil error")
	}
}

func TestNextCycles(t *testing.T) {
	all := Strategies()
	s := all[0]
	for i := 1; i <= len(all); i++ {
		s = Next(s)
		if s != all[i%len(all)] {
			t.Fatalf("Next cycle broke at step %d: got %s, want %s", i, s, all[i%len(all)])
		}
	}
}
