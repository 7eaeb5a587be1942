package textio

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := EnsureDir(dir); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("must be idempotent: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}
}

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	in := map[string]any{"title": "book", "pages": []int{1, 2}}
	if err := WriteJSONAtomic(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["title"] != "book" {
		t.Errorf("expected title %q, got %v", "book", got["title"])
	}

	// Only the final file may remain, no stray temp files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.json" {
		t.Errorf("expected only out.json in %s, got %v", dir, entries)
	}
}

func TestWriteJSONLinesAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")

	rows := []any{
		map[string]string{"id": "a"},
		map[string]string{"id": "b"},
		map[string]string{"id": "c"},
	}
	if err := WriteJSONLinesAtomic(path, rows); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row map[string]string
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("line does not parse: %v", err)
		}
		ids = append(ids, row["id"])
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("line %d: expected id %q, got %q", i, want[i], ids[i])
		}
	}
}
