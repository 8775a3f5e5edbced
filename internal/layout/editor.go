// Package layout persists user edits to page layouts.
//
// Content is validated before anything touches disk, and overrides are
// replaced by writing a temporary file and renaming it into place, so the
// live site never sees a partial or broken layout.
package layout

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/checksum"
	"github.com/starford/recipebox/internal/storage"
	"github.com/starford/recipebox/internal/templates"
)

// Registry is the template cache the editor keeps in step with disk.
type Registry interface {
	Resolve(ctx context.Context, slot templates.Slot) (templates.Template, error)
	Invalidate(slot templates.Slot)
}

// SaveResult describes a committed override.
type SaveResult struct {
	Slot     templates.Slot `json:"slot"`
	Checksum string         `json:"checksum"`
	ModTime  time.Time      `json:"modtime"`
}

// Editor writes layout overrides. Writes to one slot are serialized; writes
// to different slots run independently.
type Editor struct {
	fs       storage.Provider
	registry Registry
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[templates.Slot]*sync.Mutex
}

// NewEditor creates an editor for overrides stored in dir.
func NewEditor(dir string, registry Registry, logger *slog.Logger) (*Editor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("layout: %w", &storage.PathError{Op: "mkdir", Path: dir, Err: err})
	}
	fsys, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return &Editor{
		fs:       fsys,
		registry: registry,
		logger:   logger,
		locks:    make(map[templates.Slot]*sync.Mutex),
	}, nil
}

func (e *Editor) lock(slot templates.Slot) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[slot]
	if !ok {
		l = &sync.Mutex{}
		e.locks[slot] = l
	}
	return l
}

// Save validates content and makes it the override for slot. Invalid content
// returns a *templates.ValidationError and leaves disk untouched. Filesystem
// failures match apperr.ErrIO.
func (e *Editor) Save(ctx context.Context, slot templates.Slot, content string) (*SaveResult, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("layout: slot %q: %w", slot, apperr.ErrUnknownSlot)
	}
	if err := templates.Validate(content); err != nil {
		return nil, err
	}

	l := e.lock(slot)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := slot.FileName()
	if err := e.fs.Write(name, []byte(content)); err != nil {
		return nil, fmt.Errorf("layout: save %s: %w", slot, err)
	}
	e.registry.Invalidate(slot)

	res := &SaveResult{Slot: slot, Checksum: checksum.SumString(content), ModTime: time.Now()}
	if meta, err := e.fs.Stat(name); err == nil {
		res.ModTime = meta.UpdatedAt
	}
	e.logger.Info("layout: override saved",
		slog.String("slot", string(slot)),
		slog.String("checksum", res.Checksum))
	return res, nil
}

// Reset removes the override for slot so the default is served again.
// Resetting a slot without an override is not an error.
func (e *Editor) Reset(ctx context.Context, slot templates.Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("layout: slot %q: %w", slot, apperr.ErrUnknownSlot)
	}

	l := e.lock(slot)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.fs.Delete(slot.FileName()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("layout: reset %s: %w", slot, err)
	}
	e.registry.Invalidate(slot)
	e.logger.Info("layout: override removed", slog.String("slot", string(slot)))
	return nil
}
