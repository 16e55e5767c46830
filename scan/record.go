// Package scan enumerates candidate files under a set of root directories
// and carries the shared file model used by the rest of the pipeline.
package scan

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Resolution is an image's pixel dimensions, probed from the file header.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Pixels returns the total pixel count (width x height).
func (r Resolution) Pixels() int64 {
	return int64(r.Width) * int64(r.Height)
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// FileRecord is one scanned file. Records are immutable once produced;
// a re-scan replaces them rather than updating in place.
type FileRecord struct {
	Path       string      `json:"path"` // absolute
	Size       int64       `json:"size"`
	Ext        string      `json:"extension"` // lowercase, with leading dot
	ModTime    time.Time   `json:"modified_at"`
	CreatedAt  time.Time   `json:"created_at"`
	Resolution *Resolution `json:"resolution,omitempty"` // nil when unknown
}

// NormalizeExt lowercases a file extension, keeping the leading dot.
func NormalizeExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// ExtFamily maps an extension to its comparison family so that e.g.
// .jpg and .jpeg land in the same perceptual candidate pool.
func ExtFamily(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".tif", ".tiff":
		return "tiff"
	default:
		return strings.TrimPrefix(strings.ToLower(ext), ".")
	}
}
