// Package templates resolves the page layouts used to render the site.
//
// Each slot has a built-in default embedded in the binary. A user override
// at <overrides>/<slot>.html wins whenever it exists and compiles; otherwise
// the default is served and the problem is reported on the returned
// Template and in the log.
package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"
	gocache "github.com/patrickmn/go-cache"

	"github.com/starford/recipebox/internal/checksum"
	"github.com/starford/recipebox/internal/storage"
)

// Origin tells where a resolved template came from.
type Origin string

const (
	OriginDefault  Origin = "default"
	OriginOverride Origin = "override"
)

// Template is the effective layout for a slot.
type Template struct {
	Slot     Slot      `json:"slot"`
	Content  string    `json:"content"`
	Origin   Origin    `json:"origin"`
	ModTime  time.Time `json:"modtime,omitzero"`
	Checksum string    `json:"checksum"`
	// Diagnostic is set when an override exists but could not be used.
	Diagnostic error `json:"-"`

	compiled *pongo2.Template
}

// Compiled returns the executable form of the template.
func (t Template) Compiled() (*pongo2.Template, error) {
	if t.compiled != nil {
		return t.compiled, nil
	}
	return Compile(t.Content)
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	tpl     Template
}

// Registry resolves slots to templates and caches parsed overrides keyed by
// file modification time and size.
type Registry struct {
	fs       storage.Provider
	logger   *slog.Logger
	defaults map[Slot]Template
	cache    *gocache.Cache

	// gens counts invalidations per slot; a read that started before an
	// Invalidate must not repopulate the cache.
	mu   sync.Mutex
	gens map[Slot]uint64
}

// NewRegistry creates a registry for overrides stored in dir, creating the
// directory if needed.
func NewRegistry(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("templates: create overrides dir: %w", &storage.PathError{Op: "mkdir", Path: dir, Err: err})
	}
	fsys, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	defaults := make(map[Slot]Template, len(Slots()))
	for _, slot := range Slots() {
		content, err := Default(slot)
		if err != nil {
			return nil, fmt.Errorf("templates: load default %s: %w", slot, err)
		}
		compiled, err := Compile(content)
		if err != nil {
			return nil, fmt.Errorf("templates: compile default %s: %w", slot, err)
		}
		defaults[slot] = Template{
			Slot:     slot,
			Content:  content,
			Origin:   OriginDefault,
			Checksum: checksum.SumString(content),
			compiled: compiled,
		}
	}

	return &Registry{
		fs:       fsys,
		logger:   logger,
		defaults: defaults,
		cache:    gocache.New(gocache.NoExpiration, 0),
		gens:     make(map[Slot]uint64, len(defaults)),
	}, nil
}

// Dir returns the absolute overrides directory.
func (r *Registry) Dir() string {
	return r.fs.Root()
}

// Resolve returns the effective template for slot. The only error is
// apperr.ErrUnknownSlot; every other problem falls back to the default.
func (r *Registry) Resolve(ctx context.Context, slot Slot) (Template, error) {
	if !slot.Valid() {
		return Template{}, unknownSlot(string(slot))
	}
	if err := ctx.Err(); err != nil {
		return r.fallback(slot, err), nil
	}

	gen := r.generation(slot)
	name := slot.FileName()
	meta, err := r.fs.Stat(name)
	if err != nil {
		r.cache.Delete(string(slot))
		if errors.Is(err, fs.ErrNotExist) {
			return r.defaults[slot], nil
		}
		return r.warn(slot, fmt.Errorf("stat override: %w", err)), nil
	}

	if v, ok := r.cache.Get(string(slot)); ok {
		if e, ok := v.(cacheEntry); ok && e.modTime.Equal(meta.UpdatedAt) && e.size == meta.Size {
			return e.tpl, nil
		}
	}

	data, err := r.fs.Read(name)
	if err != nil {
		return r.warn(slot, fmt.Errorf("read override: %w", err)), nil
	}

	var tpl Template
	compiled, err := Compile(string(data))
	if err != nil {
		tpl = r.warn(slot, fmt.Errorf("override %s: %w", name, err))
	} else {
		tpl = Template{
			Slot:     slot,
			Content:  string(data),
			Origin:   OriginOverride,
			ModTime:  meta.UpdatedAt,
			Checksum: checksum.Sum(data),
			compiled: compiled,
		}
	}
	r.remember(slot, gen, cacheEntry{modTime: meta.UpdatedAt, size: meta.Size, tpl: tpl})
	return tpl, nil
}

func (r *Registry) generation(slot Slot) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[slot]
}

// remember caches e unless slot was invalidated after gen was taken.
func (r *Registry) remember(slot Slot, gen uint64, e cacheEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[slot] != gen {
		return false
	}
	r.cache.Set(string(slot), e, gocache.NoExpiration)
	return true
}

// Invalidate drops the cached entry for slot so the next Resolve reads disk.
// A Resolve already in flight will not cache what it read.
func (r *Registry) Invalidate(slot Slot) {
	r.mu.Lock()
	r.gens[slot]++
	r.cache.Delete(string(slot))
	r.mu.Unlock()
	r.logger.Debug("templates: cache invalidated", slog.String("slot", string(slot)))
}

// Default returns the built-in template for slot.
func (r *Registry) Default(slot Slot) (Template, error) {
	tpl, ok := r.defaults[slot]
	if !ok {
		return Template{}, unknownSlot(string(slot))
	}
	return tpl, nil
}

func (r *Registry) fallback(slot Slot, diag error) Template {
	tpl := r.defaults[slot]
	tpl.Diagnostic = diag
	return tpl
}

func (r *Registry) warn(slot Slot, diag error) Template {
	r.logger.Warn("templates: using default layout",
		slog.String("slot", string(slot)),
		slog.String("error", diag.Error()))
	return r.fallback(slot, diag)
}
