package dedupe

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"imagedup/config"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / w)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func inverseGradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(y * 255 / h)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func writeImage(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", dst, err)
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SupportedExtensions = []string{".png"}
	cfg.MinFileSizeBytes = 1
	cfg.MaxWorkerThreads = 2
	return cfg
}

func TestPipelineFindsExactDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "orig.png"), gradient(80, 80))
	copyFile(t, filepath.Join(dir, "orig.png"), filepath.Join(dir, "copy.png"))
	writeImage(t, filepath.Join(dir, "other.png"), inverseGradient(80, 80))

	p := New([]string{dir}, testConfig(), testLogger(), nil)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Groups) != 1 {
		t.Fatalf("Run() found %d groups, want 1: %+v", len(res.Groups), res.Groups)
	}
	g := res.Groups[0]
	if g.Kind != MatchExact {
		t.Errorf("group kind = %s, want exact", g.Kind)
	}
	if len(g.Files) != 2 {
		t.Errorf("group has %d files, want 2", len(g.Files))
	}
	if res.Stats.FilesScanned != 3 {
		t.Errorf("FilesScanned = %d, want 3", res.Stats.FilesScanned)
	}
	if res.Stats.WastedBytes != g.ReclaimableSize() {
		t.Errorf("WastedBytes = %d, want %d", res.Stats.WastedBytes, g.ReclaimableSize())
	}
}

func TestPipelineFindsSimilarImages(t *testing.T) {
	dir := t.TempDir()
	// Same picture at two sizes: different bytes, near-identical fingerprints.
	writeImage(t, filepath.Join(dir, "big.png"), gradient(120, 120))
	writeImage(t, filepath.Join(dir, "small.png"), gradient(60, 60))
	writeImage(t, filepath.Join(dir, "other.png"), inverseGradient(120, 120))

	cfg := testConfig()
	cfg.PerceptualHash.Enabled = true
	cfg.PerceptualHash.SimilarityThreshold = 5

	p := New([]string{dir}, cfg, testLogger(), nil)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Groups) != 1 {
		t.Fatalf("Run() found %d groups, want 1: %+v", len(res.Groups), res.Groups)
	}
	g := res.Groups[0]
	if g.Kind != MatchSimilar {
		t.Errorf("group kind = %s, want similar", g.Kind)
	}
	if len(g.Files) != 2 {
		t.Errorf("group has %d files, want 2", len(g.Files))
	}
	for _, f := range g.Files {
		if filepath.Base(f.Path) == "other.png" {
			t.Error("dissimilar image landed in the cluster")
		}
	}
}

func TestPipelineExactExcludesPerceptual(t *testing.T) {
	dir := t.TempDir()
	// a and b are byte-identical; both are visually similar to c. The
	// exact pair must not reappear in a similar group.
	writeImage(t, filepath.Join(dir, "a.png"), gradient(120, 120))
	copyFile(t, filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png"))
	writeImage(t, filepath.Join(dir, "c.png"), gradient(60, 60))

	cfg := testConfig()
	cfg.PerceptualHash.Enabled = true
	cfg.PerceptualHash.SimilarityThreshold = 5

	p := New([]string{dir}, cfg, testLogger(), nil)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Stats.ExactGroups != 1 {
		t.Errorf("ExactGroups = %d, want 1", res.Stats.ExactGroups)
	}
	// c alone cannot form a cluster once a and b are claimed.
	if res.Stats.SimilarGroups != 0 {
		t.Errorf("SimilarGroups = %d, want 0 (exact members never re-enter)", res.Stats.SimilarGroups)
	}
	seen := make(map[string]int)
	for _, g := range res.Groups {
		for _, f := range g.Files {
			seen[f.Path]++
		}
	}
	for path, n := range seen {
		if n > 1 {
			t.Errorf("%s appears in %d groups, want at most 1", path, n)
		}
	}
}

func TestPipelineDigestsCachePopulated(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "a.png"), gradient(80, 80))
	copyFile(t, filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png"))

	p := New([]string{dir}, testConfig(), testLogger(), nil)
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Digests) != 2 {
		t.Errorf("Digests has %d entries, want 2", len(res.Digests))
	}
	da := res.Digests[filepath.Join(dir, "a.png")]
	db := res.Digests[filepath.Join(dir, "b.png")]
	if da != db {
		t.Error("identical files have different cached digests")
	}
}
