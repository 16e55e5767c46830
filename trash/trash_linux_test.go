//go:build linux

package trash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMoveUsesXDGTrash(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(path, []byte("bytes"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := Move(path); err != nil {
		t.Fatalf("Move() error = %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file still exists after Move()")
	}
	trashed := filepath.Join(dataHome, "Trash", "files", "photo.jpg")
	if _, err := os.Stat(trashed); err != nil {
		t.Errorf("trashed file missing: %v", err)
	}

	info, err := os.ReadFile(filepath.Join(dataHome, "Trash", "info", "photo.jpg.trashinfo"))
	if err != nil {
		t.Fatalf("trashinfo missing: %v", err)
	}
	if !strings.Contains(string(info), "[Trash Info]") {
		t.Error("trashinfo missing header")
	}
	if !strings.Contains(string(info), "Path=") || !strings.Contains(string(info), "DeletionDate=") {
		t.Errorf("trashinfo incomplete:\n%s", info)
	}
}

func TestMoveRenamesCollisions(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		path := filepath.Join(dir, "photo.jpg")
		if err := os.WriteFile(path, []byte{byte(i)}, 0o644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		if err := Move(path); err != nil {
			t.Fatalf("Move() #%d error = %v", i+1, err)
		}
	}

	filesDir := filepath.Join(dataHome, "Trash", "files")
	entries, err := os.ReadDir(filesDir)
	if err != nil {
		t.Fatalf("Failed to read trash: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("trash holds %d files, want 2 (collision must rename, not overwrite)", len(entries))
	}
}

func TestMoveMissingFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	if err := Move(filepath.Join(t.TempDir(), "gone.jpg")); err == nil {
		t.Error("Move() on missing file returned nil error")
	}
}
