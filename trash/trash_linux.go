//go:build linux

package trash

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// Move sends a file to the freedesktop.org trash: the file is renamed
// into Trash/files and an accompanying .trashinfo records the origin so
// desktop environments can restore it.
func Move(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	trashDir, err := trashDir()
	if err != nil {
		return err
	}
	filesDir := filepath.Join(trashDir, "files")
	infoDir := filepath.Join(trashDir, "info")
	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
	}

	name := uniqueName(filesDir, infoDir, filepath.Base(abs))
	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		escapePath(abs), time.Now().Format("2006-01-02T15:04:05"))
	infoPath := filepath.Join(infoDir, name+".trashinfo")
	if err := os.WriteFile(infoPath, []byte(info), 0o600); err != nil {
		return err
	}

	if err := os.Rename(abs, filepath.Join(filesDir, name)); err != nil {
		os.Remove(infoPath)
		// Rename cannot cross filesystems; the file's volume has no
		// reachable trash directory.
		if errors.Is(err, syscall.EXDEV) {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return err
	}
	return nil
}

func trashDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "Trash"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return filepath.Join(home, ".local", "share", "Trash"), nil
}

// uniqueName picks a name free in both files/ and info/.
func uniqueName(filesDir, infoDir, base string) string {
	name := base
	for i := 1; ; i++ {
		_, errFile := os.Lstat(filepath.Join(filesDir, name))
		_, errInfo := os.Lstat(filepath.Join(infoDir, name+".trashinfo"))
		if os.IsNotExist(errFile) && os.IsNotExist(errInfo) {
			return name
		}
		ext := filepath.Ext(base)
		name = fmt.Sprintf("%s.%d%s", base[:len(base)-len(ext)], i, ext)
	}
}

// escapePath percent-encodes the origin path for the .trashinfo entry.
func escapePath(path string) string {
	u := &url.URL{Path: path}
	return u.EscapedPath()
}
