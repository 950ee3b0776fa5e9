package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestLocal(t)

	if err := s.Delete("ghost"); err != nil {
		t.Fatalf("Delete of missing file = %v", err)
	}

	f, _, err := s.Create("tmp.wav")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := s.Delete("tmp.wav"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.Path("tmp.wav")); !os.IsNotExist(err) {
		t.Fatalf("file still present after Delete: %v", err)
	}
	if err := s.Delete("tmp.wav"); err != nil {
		t.Fatalf("second Delete = %v", err)
	}
}

func TestDeleteReportsOtherErrors(t *testing.T) {
	s := newTestLocal(t)
	if err := os.Mkdir(s.Path("busy"), 0o700); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(s.Path("busy"), "inner"))
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := s.Delete("busy"); err == nil {
		t.Fatal("deleting a non-empty directory should fail")
	}
}

func TestNewLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.root)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
}

func TestCreateExclusive(t *testing.T) {
	s := newTestLocal(t)

	f, full, err := s.Create("audio-1.wav")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if full != filepath.Join(s.Root(), "audio-1.wav") {
		t.Errorf("path = %q", full)
	}
	if _, _, err := s.Create("audio-1.wav"); !os.IsExist(err) {
		t.Fatalf("second Create err = %v, want exist error", err)
	}
}

func TestSweep(t *testing.T) {
	s := newTestLocal(t)

	for _, name := range []string{"old-a", "old-b", "fresh"} {
		f, _, err := s.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	past := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{"old-a", "old-b"} {
		if err := os.Chtimes(s.Path(name), past, past); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(s.Path("subdir"), 0o700); err != nil {
		t.Fatal(err)
	}

	n, err := s.Sweep(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("removed %d files, want 2", n)
	}
	names, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "fresh" {
		t.Errorf("remaining = %v, want [fresh]", names)
	}

	n, err = s.Sweep(0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Sweep(0) removed %d files, want 1", n)
	}
	if _, err := os.Stat(s.Path("subdir")); err != nil {
		t.Error("Sweep must leave directories alone")
	}
}
