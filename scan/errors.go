package scan

import (
	"errors"
	"io/fs"
	"syscall"
)

// ErrorKind classifies a per-file failure. Per-file errors are recovered
// locally: the file is excluded from further processing and the kind is
// attached to a warning, never aborting the batch.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindFileLocked       ErrorKind = "file_locked"
	KindFileVanished     ErrorKind = "file_vanished"
	KindCorruptImage     ErrorKind = "corrupt_image"
	KindUnsupportedTrash ErrorKind = "unsupported_trash_target"
	KindDiskIO           ErrorKind = "disk_io_error"
)

// Classify maps an I/O error onto an ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return KindFileVanished
	case errors.Is(err, syscall.EBUSY), errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.ETXTBSY):
		return KindFileLocked
	default:
		return KindDiskIO
	}
}

// Warning records a non-fatal per-file failure.
type Warning struct {
	Path string    `json:"path"`
	Kind ErrorKind `json:"kind"`
	Err  error     `json:"-"`
}

func (w Warning) String() string {
	if w.Err == nil {
		return w.Path + ": " + string(w.Kind)
	}
	return w.Path + ": " + string(w.Kind) + ": " + w.Err.Error()
}
