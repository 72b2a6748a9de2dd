package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendToFileCreatesDirs(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "out.jsonl")
	if err := AppendToFile(p, "one"); err != nil {
		t.Fatalf("append failed: %s", err)
	}
	if err := AppendJSONLine(p, map[string]int{"two": 2}); err != nil {
		t.Fatalf("append json failed: %s", err)
	}
	bs, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read failed: %s", err)
	}
	lines := strings.Split(strings.TrimSpace(string(bs)), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}
	if lines[1] != `{"two":2}` {
		t.Errorf("unexpected json line %q", lines[1])
	}
}

func TestWriteToFileOverwrites(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.txt")
	WriteToFile(p, "old")
	if err := WriteToFile(p, "a", "b"); err != nil {
		t.Fatalf("write failed: %s", err)
	}
	bs, _ := os.ReadFile(p)
	if string(bs) != "a\nb" {
		t.Errorf("unexpected content %q", string(bs))
	}
}
