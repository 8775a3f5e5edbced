package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/models"
)

const tmpPrefix = ".recipebox-tmp-"

// PathError is a filesystem failure. It matches both apperr.ErrIO and the
// underlying cause (e.g. os.ErrNotExist) under errors.Is.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "storage: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

// Unwrap exposes both the IO marker and the cause.
func (e *PathError) Unwrap() []error {
	return []error{apperr.ErrIO, e.Err}
}

func pathErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, pathErr("resolve root", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, pathErr("stat root", abs, err)
	}
	if !info.IsDir() {
		return nil, pathErr("stat root", abs, fmt.Errorf("not a directory"))
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalid)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", pathErr("resolve", rel, err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s: %w", rel, apperr.ErrInvalid)
	}
	return abs, nil
}

// List walks dir (relative to root) in lexical order. Hidden files and
// directories are skipped.
func (f *FS) List(dir, ext string) ([]models.FileMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.FileMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if strings.HasPrefix(d.Name(), ".") && p != base {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.FileMetadata{
			Path:      filepath.ToSlash(rel),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, pathErr("list", dir, err)
	}
	return out, nil
}

// Stat returns metadata for the file at path.
func (f *FS) Stat(path string) (models.FileMetadata, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return models.FileMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.FileMetadata{}, pathErr("stat", path, err)
	}
	if info.IsDir() {
		return models.FileMetadata{}, pathErr("stat", path, fmt.Errorf("is a directory"))
	}
	return models.FileMetadata{
		Path:      filepath.ToSlash(path),
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Read returns the raw bytes of a file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, pathErr("read", path, err)
	}
	return data, nil
}

// Write replaces the file: tmp file → fsync → rename. Readers see either the
// old or the new content, never a mix.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return pathErr("mkdir", path, err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return pathErr("write", path, err)
	}
	return nil
}

// Create writes content to a temp file and hard-links it into place, so the
// target appears fully written or not at all and an existing file is never
// replaced.
func (f *FS) Create(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pathErr("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(dir, tmpPrefix+"*")
	if err != nil {
		return pathErr("create temp", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return pathErr("write temp", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return pathErr("fsync", path, err)
	}
	if err := tmp.Close(); err != nil {
		return pathErr("close temp", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return pathErr("chmod", path, err)
	}
	if err := os.Link(tmpName, abs); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("storage: create %s: %w", path, apperr.ErrAlreadyExists)
		}
		return pathErr("link", path, err)
	}
	return nil
}

// Delete removes a file.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return pathErr("delete", path, err)
	}
	return nil
}
