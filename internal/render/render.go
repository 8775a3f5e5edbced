// Package render binds recipe data into resolved page layouts.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/parser"
	"github.com/starford/recipebox/internal/recipestore"
	"github.com/starford/recipebox/internal/templates"
)

// Context is the data a layout is rendered against. Keys not present render
// as empty text.
type Context map[string]any

// Resolver returns the effective layout for a slot and its built-in default.
type Resolver interface {
	Resolve(ctx context.Context, slot templates.Slot) (templates.Template, error)
	Default(slot templates.Slot) (templates.Template, error)
}

// Render executes tpl against data. Values are HTML-escaped unless the
// layout marks them safe.
func Render(tpl templates.Template, data Context) (string, error) {
	compiled, err := tpl.Compiled()
	if err != nil {
		return "", err
	}
	out, err := compiled.Execute(pongo2.Context(data))
	if err != nil {
		return "", fmt.Errorf("render: %s: %w", tpl.Slot, err)
	}
	return out, nil
}

// Page resolves slot through resolver and renders it. An override that
// fails while executing is logged and the built-in default is rendered
// instead.
func Page(ctx context.Context, resolver Resolver, slot templates.Slot, data Context) (string, error) {
	tpl, err := resolver.Resolve(ctx, slot)
	if err != nil {
		return "", err
	}
	out, err := Render(tpl, data)
	if err == nil || tpl.Origin != templates.OriginOverride {
		return out, err
	}

	slog.Warn("render: override failed, using default layout",
		slog.String("slot", string(slot)),
		slog.String("error", err.Error()))
	def, derr := resolver.Default(slot)
	if derr != nil {
		return "", err
	}
	return Render(def, data)
}

// RecipeURL is the public page of a recipe.
func RecipeURL(id string) string {
	return "/recipes/" + id
}

// RecipeContext exposes a single recipe as "recipe".
func RecipeContext(r *models.Recipe) Context {
	return Context{"recipe": recipeValue(r)}
}

// HomeContext exposes the recipe listing as "recipes" and the distinct tags
// as "tags".
func HomeContext(recipes []*models.Recipe) Context {
	list := make([]map[string]any, len(recipes))
	var tags []string
	seen := map[string]struct{}{}
	for i, r := range recipes {
		list[i] = summaryValue(r)
		for _, t := range r.Tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				tags = append(tags, t)
			}
		}
	}
	return Context{"recipes": list, "tags": tags}
}

// DashboardData is everything the dashboard page shows.
type DashboardData struct {
	Recipes   []*models.Recipe
	Failures  []error
	ScannedAt time.Time
	Layouts   []templates.Template
}

// DashboardContext exposes the dashboard data.
func DashboardContext(d DashboardData) Context {
	recipes := make([]map[string]any, len(d.Recipes))
	for i, r := range d.Recipes {
		recipes[i] = summaryValue(r)
	}

	failures := make([]map[string]any, len(d.Failures))
	for i, err := range d.Failures {
		failures[i] = failureValue(err)
	}

	layouts := make([]map[string]any, len(d.Layouts))
	for i, l := range d.Layouts {
		diag := ""
		if l.Diagnostic != nil {
			diag = l.Diagnostic.Error()
		}
		layouts[i] = map[string]any{
			"slot":       string(l.Slot),
			"origin":     string(l.Origin),
			"checksum":   l.Checksum,
			"diagnostic": diag,
		}
	}

	c := Context{
		"recipes":      recipes,
		"recipe_count": len(d.Recipes),
		"failures":     failures,
		"layouts":      layouts,
	}
	if !d.ScannedAt.IsZero() {
		c["scanned_at"] = d.ScannedAt
	}
	return c
}

func summaryValue(r *models.Recipe) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"title":       r.Title,
		"description": r.Description,
		"tags":        r.Tags,
		"url":         RecipeURL(r.ID),
		"source_path": r.SourcePath,
	}
}

func recipeValue(r *models.Recipe) map[string]any {
	ingredients := make([]map[string]any, len(r.Ingredients))
	for i, in := range r.Ingredients {
		ingredients[i] = map[string]any{
			"name":      in.Name,
			"amount":    in.Amount.String(),
			"unit":      in.Unit,
			"display":   in.Display(),
			"free_text": in.Amount.IsFreeText(),
		}
	}
	v := summaryValue(r)
	v["ingredients"] = ingredients
	v["steps"] = r.Steps
	v["notes"] = r.Notes
	v["notes_html"] = r.NotesHTML
	if !r.ModTime.IsZero() {
		v["updated_at"] = r.ModTime
	}
	return v
}

func failureValue(err error) map[string]any {
	v := map[string]any{"message": err.Error()}
	var pe *parser.ParseError
	var ce *recipestore.CollisionError
	switch {
	case errors.As(err, &pe):
		v["path"] = pe.Path
		v["field"] = pe.Field
		v["message"] = pe.Err.Error()
	case errors.As(err, &ce):
		v["path"] = strings.Join(ce.Paths, ", ")
	}
	return v
}
