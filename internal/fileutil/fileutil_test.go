package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBackupCopiesVerbatim(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "acknowledgments.json")
	content := []byte("{not json")
	if err := os.WriteFile(src, content, 0o640); err != nil {
		t.Fatal(err)
	}

	backup, err := Backup(src)
	if err != nil {
		t.Fatal(err)
	}
	if backup != src+".bak" {
		t.Fatalf("unexpected backup path %q", backup)
	}
	got, err := os.ReadFile(backup)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}

	// A second backup replaces the first.
	if err := os.WriteFile(src, []byte("[]x"), 0o640); err != nil {
		t.Fatal(err)
	}
	if _, err := Backup(src); err != nil {
		t.Fatal(err)
	}
	got, _ = os.ReadFile(backup)
	if string(got) != "[]x" {
		t.Fatalf("expected replaced backup, got %q", got)
	}
}

func TestBackupMissingSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := Backup(filepath.Join(dir, "nope.json")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "mute_state.json")

	if err := WriteFileAtomic(target, []byte(`{"is_muted":false}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(target, []byte(`{"is_muted":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"is_muted":true}` {
		t.Fatalf("unexpected content %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected temp files cleaned up, found %v", names)
	}
}
