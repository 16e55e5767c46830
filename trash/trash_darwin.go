//go:build darwin

package trash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Move renames a file into the user's ~/.Trash. Finder's "Put Back" is
// unavailable for files moved this way, but the file stays recoverable.
func Move(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	trashDir := filepath.Join(home, ".Trash")
	if _, err := os.Stat(trashDir); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	name := filepath.Base(abs)
	target := filepath.Join(trashDir, name)
	for i := 1; ; i++ {
		if _, err := os.Lstat(target); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(name)
		target = filepath.Join(trashDir, fmt.Sprintf("%s.%d%s", name[:len(name)-len(ext)], i, ext))
	}

	if err := os.Rename(abs, target); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return err
	}
	return nil
}
