package dedupe

import (
	"context"
	"fmt"
	"testing"

	"imagedup/phash"
	"imagedup/scan"
)

// fixedPrints builds a matcher whose fingerprints come from a map
// instead of decoding files.
func fixedPrints(threshold int, prints map[string]phash.Fingerprint) *PerceptualMatcher {
	m := NewPerceptualMatcher(threshold, 2, testLogger())
	m.Fingerprint = func(path string) (phash.Fingerprint, error) {
		fp, ok := prints[path]
		if !ok {
			return 0, fmt.Errorf("unexpected path %s", path)
		}
		return fp, nil
	}
	return m
}

func jpgRecord(path string) scan.FileRecord {
	return scan.FileRecord{Path: path, Size: 100, Ext: ".jpg"}
}

func TestPerceptualMatcherClustersWithinThreshold(t *testing.T) {
	// a and b differ by 2 bits, c is far from both.
	prints := map[string]phash.Fingerprint{
		"/p/a.jpg": 0b0000,
		"/p/b.jpg": 0b0011,
		"/p/c.jpg": 0xFFFFFFFFFFFFFFFF,
	}
	m := fixedPrints(5, prints)

	clusters, warnings, err := m.Match(context.Background(),
		[]scan.FileRecord{jpgRecord("/p/a.jpg"), jpgRecord("/p/b.jpg"), jpgRecord("/p/c.jpg")})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("Match() produced %d warnings, want 0", len(warnings))
	}
	if len(clusters) != 1 {
		t.Fatalf("Match() found %d clusters, want 1", len(clusters))
	}
	if len(clusters[0].Files) != 2 {
		t.Errorf("cluster has %d files, want 2", len(clusters[0].Files))
	}
	if clusters[0].MaxDistance != 2 {
		t.Errorf("MaxDistance = %d, want 2", clusters[0].MaxDistance)
	}
}

func TestPerceptualMatcherTransitiveClosure(t *testing.T) {
	// a-b distance 4, b-c distance 4, a-c distance 8: all three cluster
	// because similarity chains transitively.
	prints := map[string]phash.Fingerprint{
		"/p/a.jpg": 0b00000000,
		"/p/b.jpg": 0b00001111,
		"/p/c.jpg": 0b11111111,
	}
	m := fixedPrints(5, prints)

	clusters, _, err := m.Match(context.Background(),
		[]scan.FileRecord{jpgRecord("/p/a.jpg"), jpgRecord("/p/b.jpg"), jpgRecord("/p/c.jpg")})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("Match() found %d clusters, want 1", len(clusters))
	}
	if len(clusters[0].Files) != 3 {
		t.Errorf("cluster has %d files, want 3", len(clusters[0].Files))
	}
	if clusters[0].MaxDistance != 8 {
		t.Errorf("MaxDistance = %d, want 8 (a-c pair exceeds threshold)", clusters[0].MaxDistance)
	}
}

func TestPerceptualMatcherThresholdExcludes(t *testing.T) {
	// Distance 6 with threshold 5: no cluster.
	prints := map[string]phash.Fingerprint{
		"/p/a.jpg": 0b000000,
		"/p/b.jpg": 0b111111,
	}
	m := fixedPrints(5, prints)

	clusters, _, err := m.Match(context.Background(),
		[]scan.FileRecord{jpgRecord("/p/a.jpg"), jpgRecord("/p/b.jpg")})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(clusters) != 0 {
		t.Fatalf("Match() found %d clusters, want 0", len(clusters))
	}

	// Raising the threshold can only merge, never split.
	m = fixedPrints(6, prints)
	clusters, _, _ = m.Match(context.Background(),
		[]scan.FileRecord{jpgRecord("/p/a.jpg"), jpgRecord("/p/b.jpg")})
	if len(clusters) != 1 {
		t.Fatalf("Match() with threshold 6 found %d clusters, want 1", len(clusters))
	}
}

func TestPerceptualMatcherSeparatesExtensionFamilies(t *testing.T) {
	// Identical fingerprints but different families never pair; .jpg and
	// .jpeg share a family.
	prints := map[string]phash.Fingerprint{
		"/p/a.jpg":  42,
		"/p/b.jpeg": 42,
		"/p/c.png":  42,
	}
	m := fixedPrints(5, prints)

	clusters, _, err := m.Match(context.Background(), []scan.FileRecord{
		jpgRecord("/p/a.jpg"),
		{Path: "/p/b.jpeg", Size: 100, Ext: ".jpeg"},
		{Path: "/p/c.png", Size: 100, Ext: ".png"},
	})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("Match() found %d clusters, want 1", len(clusters))
	}
	for _, f := range clusters[0].Files {
		if f.Ext == ".png" {
			t.Error("png file clustered with jpeg family")
		}
	}
}

func TestPerceptualMatcherUndecodableWarns(t *testing.T) {
	m := NewPerceptualMatcher(5, 2, testLogger())
	m.Fingerprint = func(path string) (phash.Fingerprint, error) {
		return 0, fmt.Errorf("decode %s: invalid header", path)
	}

	clusters, warnings, err := m.Match(context.Background(),
		[]scan.FileRecord{jpgRecord("/p/bad.jpg")})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("Match() found %d clusters, want 0", len(clusters))
	}
	if len(warnings) != 1 || warnings[0].Kind != scan.KindCorruptImage {
		t.Errorf("warnings = %v, want one corrupt_image warning", warnings)
	}
}

func TestPerceptualMatcherSkipsUnsupportedExtensions(t *testing.T) {
	called := false
	m := NewPerceptualMatcher(5, 2, testLogger())
	m.Fingerprint = func(path string) (phash.Fingerprint, error) {
		called = true
		return 0, nil
	}

	clusters, warnings, err := m.Match(context.Background(),
		[]scan.FileRecord{{Path: "/p/raw.cr2", Size: 100, Ext: ".cr2"}})
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if called {
		t.Error("Fingerprint called for unsupported extension")
	}
	if len(clusters) != 0 || len(warnings) != 0 {
		t.Errorf("clusters=%d warnings=%d, want 0/0", len(clusters), len(warnings))
	}
}
