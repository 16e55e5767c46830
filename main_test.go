package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"imagedup/dedupe"
	"imagedup/phash"
	"imagedup/scan"
	"imagedup/suggest"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestAutoSelect(t *testing.T) {
	group := dedupe.DuplicateGroup{
		ID:   uuid.NewString(),
		Kind: dedupe.MatchExact,
		Files: []scan.FileRecord{
			{Path: "/photos/a.jpg", Size: 100},
			{Path: "/photos/b.jpg", Size: 100},
			{Path: "/photos/c.jpg", Size: 100},
		},
	}

	candidates := autoSelect([]dedupe.DuplicateGroup{group}, suggest.KeepShortestPath)
	if len(candidates) != 2 {
		t.Fatalf("autoSelect() returned %d candidates, want 2", len(candidates))
	}

	// All three paths tie on length, so the lexicographically smallest
	// is kept and never appears among the candidates.
	for _, c := range candidates {
		if c.Path == "/photos/a.jpg" {
			t.Errorf("autoSelect() marked the keeper %q for deletion", c.Path)
		}
		if c.GroupID != group.ID {
			t.Errorf("candidate %q has group ID %v, want %v", c.Path, c.GroupID, group.ID)
		}
		if c.Size != 100 {
			t.Errorf("candidate %q has size %d, want 100", c.Path, c.Size)
		}
	}
}

func TestAutoSelectSkipsEmptyGroups(t *testing.T) {
	groups := []dedupe.DuplicateGroup{{ID: uuid.NewString(), Kind: dedupe.MatchExact}}
	if got := autoSelect(groups, suggest.KeepOldest); len(got) != 0 {
		t.Errorf("autoSelect() on empty group returned %d candidates, want 0", len(got))
	}
}

func TestNormalizeActionFlags(t *testing.T) {
	tests := []struct {
		name       string
		in         options
		wantDelete bool
	}{
		{"permanent alone implies delete", options{Permanent: true}, true},
		{"permanent with tui", options{Permanent: true, TUI: true}, false},
		{"permanent with dry-run", options{Permanent: true, DryRun: true}, false},
		{"permanent with delete", options{Permanent: true, Delete: true}, true},
		{"no flags", options{}, false},
	}

	for _, tt := range tests {
		o := tt.in
		normalizeActionFlags(&o)
		if o.Delete != tt.wantDelete {
			t.Errorf("%s: Delete = %v, want %v", tt.name, o.Delete, tt.wantDelete)
		}
	}
}

func TestDedupSorted(t *testing.T) {
	got := dedupSorted([]string{"/c.jpg", "/a.jpg", "/c.jpg", "/b.jpg", "/a.jpg"})
	want := []string{"/a.jpg", "/b.jpg", "/c.jpg"}
	if len(got) != len(want) {
		t.Fatalf("dedupSorted() returned %d paths, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dedupSorted()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWatchable(t *testing.T) {
	tmpDir := t.TempDir()
	extensions := map[string]bool{".jpg": true, ".png": true}

	imgPath := filepath.Join(tmpDir, "photo.jpg")
	if err := os.WriteFile(imgPath, make([]byte, 64), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !watchable(imgPath, extensions, 10) {
		t.Error("watchable() = false for a matching image file")
	}
	if watchable(imgPath, extensions, 128) {
		t.Error("watchable() = true for a file below the size floor")
	}
	if watchable(filepath.Join(tmpDir, "notes.txt"), extensions, 0) {
		t.Error("watchable() = true for an unsupported extension")
	}

	hidden := filepath.Join(tmpDir, ".thumb.jpg")
	if err := os.WriteFile(hidden, make([]byte, 64), 0644); err != nil {
		t.Fatalf("Failed to create hidden file: %v", err)
	}
	if watchable(hidden, extensions, 0) {
		t.Error("watchable() = true for a hidden file")
	}
}

func TestWatchIndexDigests(t *testing.T) {
	ix := &watchIndex{byDigest: make(map[dedupe.ContentDigest][]string)}
	d := dedupe.ContentDigest{0x01}

	if prior := ix.addDigest("/a.jpg", d); len(prior) != 0 {
		t.Errorf("addDigest() first insert returned %d prior paths, want 0", len(prior))
	}
	prior := ix.addDigest("/b.jpg", d)
	if len(prior) != 1 || prior[0] != "/a.jpg" {
		t.Errorf("addDigest() second insert returned %v, want [/a.jpg]", prior)
	}
	if ix.filesTracked != 2 {
		t.Errorf("filesTracked = %d, want 2", ix.filesTracked)
	}
}

func TestWatchIndexPrints(t *testing.T) {
	ix := &watchIndex{byDigest: make(map[dedupe.ContentDigest][]string)}

	base := phash.Fingerprint(0xF0F0F0F0F0F0F0F0)
	near := base ^ 0x3 // distance 2
	far := ^base       // distance 64

	if similar := ix.addPrint("/base.jpg", base, 5); len(similar) != 0 {
		t.Errorf("addPrint() first insert returned %d matches, want 0", len(similar))
	}
	similar := ix.addPrint("/near.jpg", near, 5)
	if len(similar) != 1 || similar[0] != "/base.jpg" {
		t.Errorf("addPrint() near insert returned %v, want [/base.jpg]", similar)
	}
	if similar := ix.addPrint("/far.jpg", far, 5); len(similar) != 0 {
		t.Errorf("addPrint() far insert returned %d matches, want 0", len(similar))
	}
}
