// Package siteservice coordinates the recipe store, layout registry and
// editor behind the HTTP and MCP surfaces.
package siteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/recipebox/internal/layout"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/parser"
	"github.com/starford/recipebox/internal/recipestore"
	"github.com/starford/recipebox/internal/render"
	"github.com/starford/recipebox/internal/templates"
)

// Notifier is told about changes so connected clients can refresh.
type Notifier interface {
	RecipesScanned(indexed, failed int)
	LayoutChanged(slot string, reset bool)
}

type nopNotifier struct{}

func (nopNotifier) RecipesScanned(int, int)    {}
func (nopNotifier) LayoutChanged(string, bool) {}

// RecipeListItem is a lightweight item in a list response.
type RecipeListItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	URL         string    `json:"url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Failure describes a recipe file left out of the index.
type Failure struct {
	Path    string `json:"path"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ScanSummary is the outcome of a rescan.
type ScanSummary struct {
	Indexed   int       `json:"indexed"`
	Failures  []Failure `json:"failures"`
	ScannedAt time.Time `json:"scanned_at"`
}

// LayoutDetail is the effective layout for a slot.
type LayoutDetail struct {
	Slot       templates.Slot   `json:"slot"`
	Origin     templates.Origin `json:"origin"`
	Content    string           `json:"content"`
	Checksum   string           `json:"checksum"`
	ModTime    time.Time        `json:"modtime,omitzero"`
	Diagnostic string           `json:"diagnostic,omitempty"`
}

// Service ties the store, registry and editor together.
type Service struct {
	store    *recipestore.Store
	registry *templates.Registry
	editor   *layout.Editor
	notifier Notifier
}

// NewService creates a service. notifier may be nil.
func NewService(store *recipestore.Store, registry *templates.Registry, editor *layout.Editor, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		store:    store,
		registry: registry,
		editor:   editor,
		notifier: notifier,
	}
}

// ListRecipes returns the indexed recipes in title order, optionally only
// those carrying tag.
func (s *Service) ListRecipes(_ context.Context, tag string) []RecipeListItem {
	items := []RecipeListItem{}
	for _, r := range s.store.List() {
		if tag != "" && !r.HasTag(tag) {
			continue
		}
		items = append(items, RecipeListItem{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Tags:        r.Tags,
			URL:         render.RecipeURL(r.ID),
			UpdatedAt:   r.ModTime,
		})
	}
	return items
}

// GetRecipe returns one recipe by identifier.
func (s *Service) GetRecipe(_ context.Context, id string) (*models.Recipe, error) {
	return s.store.Get(id)
}

// AddRecipe stores a new recipe file and indexes it.
func (s *Service) AddRecipe(ctx context.Context, d recipestore.Draft) (*models.Recipe, error) {
	r, err := s.store.Add(ctx, d)
	if err != nil {
		return nil, err
	}
	s.announceScan()
	return r, nil
}

// Rescan re-indexes the recipes directory.
func (s *Service) Rescan(ctx context.Context) (*ScanSummary, error) {
	res, err := s.store.Rescan(ctx)
	if err != nil {
		return nil, err
	}
	s.notifier.RecipesScanned(res.Indexed, len(res.Failures))
	return &ScanSummary{
		Indexed:   res.Indexed,
		Failures:  Failures(res.Failures),
		ScannedAt: res.ScannedAt,
	}, nil
}

// Failures returns the files excluded by the last scan.
func (s *Service) Failures() []Failure {
	return Failures(s.store.Failures())
}

func (s *Service) announceScan() {
	snap := s.store.Snapshot()
	s.notifier.RecipesScanned(snap.Len(), len(snap.Failures()))
}

// GetLayout returns the layout currently served for slot.
func (s *Service) GetLayout(ctx context.Context, slot templates.Slot) (*LayoutDetail, error) {
	tpl, err := s.registry.Resolve(ctx, slot)
	if err != nil {
		return nil, err
	}
	return layoutDetail(tpl), nil
}

// Layouts returns the effective layout of every slot.
func (s *Service) Layouts(ctx context.Context) ([]LayoutDetail, error) {
	out := make([]LayoutDetail, 0, len(templates.Slots()))
	for _, slot := range templates.Slots() {
		d, err := s.GetLayout(ctx, slot)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// SaveLayout validates content and makes it the override for slot.
func (s *Service) SaveLayout(ctx context.Context, slot templates.Slot, content string) (*layout.SaveResult, error) {
	res, err := s.editor.Save(ctx, slot, content)
	if err != nil {
		return nil, err
	}
	s.notifier.LayoutChanged(string(slot), false)
	return res, nil
}

// ResetLayout drops the override for slot.
func (s *Service) ResetLayout(ctx context.Context, slot templates.Slot) error {
	if err := s.editor.Reset(ctx, slot); err != nil {
		return err
	}
	s.notifier.LayoutChanged(string(slot), true)
	return nil
}

// DiffLayout previews saving content for slot.
func (s *Service) DiffLayout(ctx context.Context, slot templates.Slot, content string) (*layout.Preview, error) {
	return s.editor.Diff(ctx, slot, content)
}

// RenderHome renders the home page, optionally filtered by tag.
func (s *Service) RenderHome(ctx context.Context, tag string) (string, error) {
	recipes := s.store.List()
	if tag != "" {
		filtered := recipes[:0]
		for _, r := range recipes {
			if r.HasTag(tag) {
				filtered = append(filtered, r)
			}
		}
		recipes = filtered
	}
	data := render.HomeContext(recipes)
	data["tag"] = tag
	return render.Page(ctx, s.registry, templates.SlotHome, data)
}

// RenderRecipe renders the page of one recipe.
func (s *Service) RenderRecipe(ctx context.Context, id string) (string, error) {
	r, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	return render.Page(ctx, s.registry, templates.SlotRecipe, render.RecipeContext(r))
}

// RenderDashboard renders the maintainer dashboard.
func (s *Service) RenderDashboard(ctx context.Context) (string, error) {
	snap := s.store.Snapshot()
	data := render.DashboardData{
		Recipes:   snap.Recipes(),
		Failures:  snap.Failures(),
		ScannedAt: snap.ScannedAt(),
	}
	for _, slot := range templates.Slots() {
		tpl, err := s.registry.Resolve(ctx, slot)
		if err != nil {
			return "", err
		}
		data.Layouts = append(data.Layouts, tpl)
	}
	return render.Page(ctx, s.registry, templates.SlotDashboard, render.DashboardContext(data))
}

// Failures converts scan errors to their reported form.
func Failures(errs []error) []Failure {
	out := make([]Failure, 0, len(errs))
	for _, err := range errs {
		out = append(out, failureOf(err))
	}
	return out
}

func failureOf(err error) Failure {
	var pe *parser.ParseError
	var ce *recipestore.CollisionError
	switch {
	case errors.As(err, &pe):
		return Failure{Path: pe.Path, Field: pe.Field, Message: pe.Err.Error()}
	case errors.As(err, &ce):
		return Failure{Path: strings.Join(ce.Paths, ", "), Message: fmt.Sprintf("identifier %q claimed by %d files", ce.ID, len(ce.Paths))}
	default:
		return Failure{Message: err.Error()}
	}
}

func layoutDetail(tpl templates.Template) *LayoutDetail {
	d := &LayoutDetail{
		Slot:     tpl.Slot,
		Origin:   tpl.Origin,
		Content:  tpl.Content,
		Checksum: tpl.Checksum,
		ModTime:  tpl.ModTime,
	}
	if tpl.Diagnostic != nil {
		d.Diagnostic = tpl.Diagnostic.Error()
	}
	return d
}
