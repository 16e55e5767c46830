//go:build linux

package scan

import (
	"io/fs"
	"syscall"
	"time"
)

// createdAt approximates creation time. Linux does not expose birth time
// through os.FileInfo; use the earlier of ctime and mtime.
func createdAt(info fs.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		ctime := time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
		if ctime.Before(info.ModTime()) {
			return ctime
		}
	}
	return info.ModTime()
}
