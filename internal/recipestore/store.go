// Package recipestore indexes a directory of recipe files in memory.
//
// Each Scan builds a complete, immutable snapshot off to the side and swaps
// it in atomically. Readers (Get, List) never block and always see one
// consistent snapshot.
package recipestore

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/checksum"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/parser"
	"github.com/starford/recipebox/internal/quantity"
	"github.com/starford/recipebox/internal/storage"
)

const recipeExt = ".md"

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithConcurrency bounds the number of files parsed in parallel.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Store serves recipes from the current snapshot.
type Store struct {
	logger      *slog.Logger
	concurrency int

	current atomic.Pointer[Snapshot]
	scanMu  sync.Mutex
}

// New creates an empty store. Call Scan to populate it.
func New(logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		logger:      logger,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(emptySnapshot("", nil))
	return s
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Dir       string
	Indexed   int
	Failures  []error
	ScannedAt time.Time
}

// Scan indexes every recipe file under dir and replaces the current
// snapshot. Files that fail to parse are reported in ScanResult.Failures and
// left out; they never abort the scan. A missing or unreadable directory is
// a hard failure: the returned error wraps apperr.ErrIO and the store is
// emptied. If ctx is cancelled mid-scan the previous snapshot stays.
func (s *Store) Scan(ctx context.Context, dir string) (*ScanResult, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	fsys, err := storage.NewFS(dir)
	if err != nil {
		return s.fail(dir, err)
	}
	metas, err := fsys.List("", recipeExt)
	if err != nil {
		return s.fail(dir, err)
	}

	loaded := make([]loadResult, len(metas))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, m := range metas {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			loaded[i] = s.load(fsys, m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recipestore: scan %s: %w", dir, err)
	}

	snap := buildSnapshot(fsys.Root(), loaded)
	s.current.Store(snap)

	for _, f := range snap.failures {
		s.logger.Warn("recipestore: file excluded", slog.String("error", f.Error()))
	}
	s.logger.Info("recipestore: scan complete",
		slog.String("dir", snap.dir),
		slog.Int("indexed", len(snap.ordered)),
		slog.Int("failed", len(snap.failures)))

	return snap.result(), nil
}

// Rescan scans the directory of the current snapshot again.
func (s *Store) Rescan(ctx context.Context) (*ScanResult, error) {
	dir := s.Dir()
	if dir == "" {
		return nil, fmt.Errorf("recipestore: rescan before first scan: %w", apperr.ErrInvalid)
	}
	return s.Scan(ctx, dir)
}

func (s *Store) fail(dir string, err error) (*ScanResult, error) {
	snap := emptySnapshot(dir, []error{err})
	s.current.Store(snap)
	s.logger.Error("recipestore: scan failed", slog.String("dir", dir), slog.String("error", err.Error()))
	return snap.result(), fmt.Errorf("recipestore: scan %s: %w", dir, err)
}

// Get returns the recipe with the given identifier.
func (s *Store) Get(id string) (*models.Recipe, error) {
	r, ok := s.current.Load().byID[id]
	if !ok {
		return nil, fmt.Errorf("recipestore: recipe %q: %w", id, apperr.ErrNotFound)
	}
	return r, nil
}

// List returns all recipes ordered by title, ties broken by identifier.
func (s *Store) List() []*models.Recipe {
	return s.current.Load().Recipes()
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Dir returns the directory of the current snapshot.
func (s *Store) Dir() string {
	return s.current.Load().dir
}

// Failures returns the per-file failures recorded by the last scan.
func (s *Store) Failures() []error {
	return s.current.Load().Failures()
}

// ScannedAt returns when the current snapshot was built.
func (s *Store) ScannedAt() time.Time {
	return s.current.Load().scannedAt
}

type loadResult struct {
	recipe *models.Recipe
	err    error
}

func (s *Store) load(fsys storage.Provider, meta models.FileMetadata) loadResult {
	data, err := fsys.Read(meta.Path)
	if err != nil {
		return loadResult{err: err}
	}
	res, err := parser.Parse(meta.Path, data)
	if err != nil {
		return loadResult{err: err}
	}

	h := res.Header
	ingredients := make([]models.Ingredient, len(h.Ingredients))
	for i, e := range h.Ingredients {
		amount := quantity.Parse(string(e.Amount))
		if amount.IsFreeText() {
			s.logger.Debug("recipestore: amount kept as free text",
				slog.String("path", meta.Path),
				slog.String("ingredient", e.Name),
				slog.String("amount", amount.Raw()))
		}
		ingredients[i] = models.Ingredient{Name: e.Name, Amount: amount, Unit: e.Unit}
	}

	return loadResult{recipe: &models.Recipe{
		ID:          DeriveID(meta.Path),
		Title:       h.Title,
		Tags:        dedupe(h.Tags),
		Description: h.Description,
		Ingredients: ingredients,
		Steps:       nonNil(res.Steps),
		Notes:       res.Notes,
		NotesHTML:   res.NotesHTML,
		SourcePath:  meta.Path,
		Checksum:    checksum.Sum(data),
		ModTime:     meta.UpdatedAt,
	}}
}

// Snapshot is the immutable index produced by one scan.
type Snapshot struct {
	dir       string
	byID      map[string]*models.Recipe
	ordered   []*models.Recipe
	failures  []error
	scannedAt time.Time
}

func emptySnapshot(dir string, failures []error) *Snapshot {
	return &Snapshot{
		dir:       dir,
		byID:      map[string]*models.Recipe{},
		failures:  failures,
		scannedAt: time.Now(),
	}
}

func buildSnapshot(dir string, loaded []loadResult) *Snapshot {
	snap := emptySnapshot(dir, nil)

	claims := make(map[string][]*models.Recipe)
	var ids []string
	for _, l := range loaded {
		if l.err != nil {
			snap.failures = append(snap.failures, l.err)
			continue
		}
		id := l.recipe.ID
		if _, seen := claims[id]; !seen {
			ids = append(ids, id)
		}
		claims[id] = append(claims[id], l.recipe)
	}

	for _, id := range ids {
		rs := claims[id]
		if len(rs) > 1 {
			paths := make([]string, len(rs))
			for i, r := range rs {
				paths[i] = r.SourcePath
			}
			sort.Strings(paths)
			snap.failures = append(snap.failures, &CollisionError{ID: id, Paths: paths})
			continue
		}
		snap.byID[id] = rs[0]
		snap.ordered = append(snap.ordered, rs[0])
	}

	sort.Slice(snap.ordered, func(i, j int) bool {
		a, b := snap.ordered[i], snap.ordered[j]
		if fa, fb := strings.ToLower(a.Title), strings.ToLower(b.Title); fa != fb {
			return fa < fb
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	return snap
}

// Recipes returns the snapshot's recipes in list order.
func (s *Snapshot) Recipes() []*models.Recipe {
	out := make([]*models.Recipe, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Failures returns the errors recorded while building the snapshot.
func (s *Snapshot) Failures() []error {
	out := make([]error, len(s.failures))
	copy(out, s.failures)
	return out
}

// Len returns the number of indexed recipes.
func (s *Snapshot) Len() int { return len(s.ordered) }

// ScannedAt returns when the snapshot was built.
func (s *Snapshot) ScannedAt() time.Time { return s.scannedAt }

func (s *Snapshot) result() *ScanResult {
	return &ScanResult{
		Dir:       s.dir,
		Indexed:   len(s.ordered),
		Failures:  s.Failures(),
		ScannedAt: s.scannedAt,
	}
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
