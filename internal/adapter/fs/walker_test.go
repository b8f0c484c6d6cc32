package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "one")
	writeFile(t, filepath.Join(root, "campaigns", "b.md"), "two")
	writeFile(t, filepath.Join(root, "campaigns", "draft", "c.txt"), "three")
	writeFile(t, filepath.Join(root, "image.png"), "png")

	w := NewWalker(nil, []string{"**/draft/**"})
	files, err := w.Walk(root)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("Walk() returned %d files, want 2: %+v", len(files), files)
	}
	if files[0].Path != filepath.Join(root, "a.txt") {
		t.Errorf("files[0] = %s", files[0].Path)
	}
	if files[1].Path != filepath.Join(root, "campaigns", "b.md") {
		t.Errorf("files[1] = %s", files[1].Path)
	}
	if files[0].Size != 3 {
		t.Errorf("files[0].Size = %d", files[0].Size)
	}
}

func TestGlob(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x", "1.txt"), "1")
	writeFile(t, filepath.Join(root, "x", "y", "2.txt"), "2")

	matches, err := Glob(filepath.Join(root, "**", "*.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Errorf("Glob() = %v", matches)
	}
}

func TestReadFileLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	writeFile(t, path, "0123456789")

	if _, err := ReadFile(path, 5); err == nil {
		t.Error("expected size limit error")
	}
	got, err := ReadFile(path, 0)
	if err != nil || got != "0123456789" {
		t.Errorf("ReadFile() = %q, %v", got, err)
	}
}
