package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockfileFileName)

	lock := NewLockfile("Demo", "rinha-cli test")
	lock.Upsert(&LockedSource{Name: "zeta", Git: "https://example.com/z.git", Version: "main@abc", Commit: "abc"})
	lock.Upsert(&LockedSource{Name: "alpha", Git: "https://example.com/a.git", Version: "v1@def", Commit: "def", Checksum: "123"})
	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lockfile: %v", err)
	}
	if !strings.Contains(string(data), "root: demo") {
		t.Fatalf("expected sanitized root in lockfile:\n%s", data)
	}

	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if loaded.Root != "demo" || loaded.Tool != "rinha-cli test" {
		t.Fatalf("unexpected metadata %#v", loaded)
	}
	if len(loaded.Sources) != 2 || loaded.Sources[0].Name != "alpha" || loaded.Sources[1].Name != "zeta" {
		t.Fatalf("expected sources sorted by name, got %#v", loaded.Sources)
	}
	alpha, ok := loaded.Find("alpha")
	if !ok || alpha.Commit != "def" || alpha.Checksum != "123" {
		t.Fatalf("unexpected alpha pin %#v", alpha)
	}
}

func TestLockfileUpsertReplaces(t *testing.T) {
	lock := NewLockfile("demo", "")
	lock.Upsert(&LockedSource{Name: "shared", Version: "v1@aaa"})
	lock.Upsert(&LockedSource{Name: "shared", Version: "v2@bbb"})
	if len(lock.Sources) != 1 || lock.Sources[0].Version != "v2@bbb" {
		t.Fatalf("expected single replaced pin, got %#v", lock.Sources)
	}
	if _, ok := lock.Find("other"); ok {
		t.Fatalf("unexpected pin for unknown source")
	}
	var missing *Lockfile
	if _, ok := missing.Find("shared"); ok {
		t.Fatalf("nil lockfile should find nothing")
	}
}

func TestLoadLockfileRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockfileFileName)
	if err := os.WriteFile(path, []byte("root: demo\npackages: []\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadLockfile(path); err == nil {
		t.Fatalf("expected error for unknown lockfile field")
	}
}
