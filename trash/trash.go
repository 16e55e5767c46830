// Package trash moves files to the platform recycle bin so deletions
// stay recoverable. Move never falls back to permanent removal: when the
// target volume has no usable trash, ErrUnsupported is returned and the
// caller decides what to do.
package trash

import "errors"

// ErrUnsupported means the recycle bin is unavailable for this path,
// e.g. a volume without a trash directory.
var ErrUnsupported = errors.New("trash: recycle bin not supported for this path")
