//go:build !linux && !darwin && !windows

package trash

// Move reports ErrUnsupported on platforms without a known trash.
func Move(path string) error {
	return ErrUnsupported
}
