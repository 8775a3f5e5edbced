package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/recipebox/internal/apperr"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("---\ntitle: Toast\n---\n1. Toast it.\n")
	if err := s.Write("toast.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("toast.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("breads/flat/naan.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("breads/flat/naan.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteReplacesAtomically(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("home.html", []byte("original"))
	if err := s.Write("home.html", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("home.html")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("leftover files after write: %v", names)
	}
}

func TestCreate(t *testing.T) {
	s := tempRoot(t)
	if err := s.Create("soup.md", []byte("v1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create("soup.md", []byte("v2"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("second Create err = %v, want ErrAlreadyExists", err)
	}
	got, _ := s.Read("soup.md")
	if string(got) != "v1" {
		t.Errorf("existing file replaced: %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err := s.Read("del.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("read deleted file err = %v, want ErrNotExist", err)
	}
	if !errors.Is(err, apperr.ErrIO) {
		t.Errorf("read deleted file err = %v, want ErrIO", err)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("b.md", []byte("b"))
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/c.md", []byte("c"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write(".hidden.md", []byte("hidden"))
	_ = s.Write(".git/x.md", []byte("hidden dir"))

	items, err := s.List("", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	want := []string{"a.md", "b.md", "sub/c.md"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestStat(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("recipe.html", []byte("12345"))
	meta, err := s.Stat("recipe.html")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if meta.Size != 5 || meta.UpdatedAt.IsZero() {
		t.Errorf("meta = %+v", meta)
	}
	if _, err := s.Stat("missing.html"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Stat missing err = %v", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("Read(%q) err = %v, want ErrInvalid", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "recipebox-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
