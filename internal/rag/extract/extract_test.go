package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestText_PlainFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"note.txt", "readme.md", "server.log"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("plain content"), 0644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		text, ok := Text(path)
		if !ok || text != "plain content" {
			t.Errorf("%s: got (%q, %v)", name, text, ok)
		}
	}
}

func TestText_CSVNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("a,b\r\n1,2\r\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	text, ok := Text(path)
	if !ok {
		t.Fatal("expected csv extraction to succeed")
	}
	if !strings.Contains(text, "a,b") || !strings.Contains(text, "1,2") {
		t.Errorf("unexpected csv text: %q", text)
	}
}

func TestText_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, []byte{0x89, 0x50}, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, ok := Text(path); ok {
		t.Error("expected unsupported extension to report ok=false")
	}
}

func TestText_MissingFile(t *testing.T) {
	if _, ok := Text(filepath.Join(t.TempDir(), "ghost.txt")); ok {
		t.Error("expected missing file to report ok=false")
	}
}
