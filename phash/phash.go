// Package phash computes compact visual fingerprints for images. Two
// fingerprints are compared by Hamming distance: resized or recompressed
// copies of the same picture land within a few bits of each other.
package phash

import (
	"fmt"
	"image"
	"image/color"
	"math/bits"
	"os"
	"path/filepath"
	"strings"

	// Register decoders beyond the stdlib set.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// grid edge for the downsampled grayscale representation; 8x8 yields a
// 64-bit fingerprint matched against thresholds on the 0-64 scale.
const gridSize = 8

// Fingerprint is a 64-bit average-hash of an image's coarse structure.
type Fingerprint uint64

// Distance is the Hamming distance between two fingerprints.
func (f Fingerprint) Distance(other Fingerprint) int {
	return bits.OnesCount64(uint64(f ^ other))
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// AverageHash derives a fingerprint by downsampling to an 8x8 grayscale
// grid and setting one bit per pixel at or above the grid's mean.
func AverageHash(img image.Image) Fingerprint {
	pixels := downsampleGray(img, gridSize, gridSize)

	var total int64
	for _, p := range pixels {
		total += int64(p)
	}
	mean := int(total / int64(len(pixels)))

	var fp Fingerprint
	for i, p := range pixels {
		if p >= mean {
			fp |= 1 << (63 - i)
		}
	}
	return fp
}

// File decodes an image file and returns its fingerprint.
func File(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return AverageHash(img), nil
}

// Bounds reads only the image header and returns the pixel dimensions.
func Bounds(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// CanDecode reports whether files with this extension have a registered
// decoder.
func CanDecode(pathOrExt string) bool {
	ext := pathOrExt
	if !strings.HasPrefix(ext, ".") {
		ext = filepath.Ext(pathOrExt)
	}
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return true
	default:
		return false
	}
}

// downsampleGray samples the image onto a w x h grayscale grid using
// nearest-neighbor; fingerprinting does not need interpolation quality.
func downsampleGray(img image.Image, w, h int) []int {
	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / float64(w)
	scaleY := float64(bounds.Dy()) / float64(h)

	pixels := make([]int, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			srcX := bounds.Min.X + int(float64(x)*scaleX)
			srcY := bounds.Min.Y + int(float64(y)*scaleY)
			pixels = append(pixels, grayscale(img.At(srcX, srcY)))
		}
	}
	return pixels
}

// grayscale converts a color to a 0-255 luminance value.
func grayscale(c color.Color) int {
	r, g, b, _ := c.RGBA()
	return int(0.299*float64(r/256) + 0.587*float64(g/256) + 0.114*float64(b/256))
}
