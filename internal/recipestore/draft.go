package recipestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/checksum"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/parser"
	"github.com/starford/recipebox/internal/storage"
)

// Draft is a new recipe submitted through the add-recipe form or API.
type Draft struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Tags        []string          `json:"tags"`
	Ingredients []DraftIngredient `json:"ingredients"`
	Steps       []string          `json:"steps"`
	Notes       string            `json:"notes"`
}

// DraftIngredient is one ingredient line of a Draft.
type DraftIngredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// FileName returns the file the draft is stored under.
func (d Draft) FileName() string {
	slug := Slug(d.Title)
	if slug == "" {
		slug = "recipe-" + checksum.SumString(d.Title)[:12]
	}
	return slug + recipeExt
}

func (d Draft) header() parser.Header {
	h := parser.Header{
		Title:       d.Title,
		Tags:        d.Tags,
		Description: d.Description,
	}
	for _, in := range d.Ingredients {
		h.Ingredients = append(h.Ingredients, parser.IngredientEntry{
			Name:   in.Name,
			Amount: parser.Scalar(in.Amount),
			Unit:   in.Unit,
		})
	}
	return h
}

// Add writes d as a new recipe file and rescans. It never replaces an
// existing file: a name or identifier clash returns apperr.ErrAlreadyExists.
// A draft that would not parse back returns a *parser.ParseError.
func (s *Store) Add(ctx context.Context, d Draft) (*models.Recipe, error) {
	dir := s.Dir()
	if dir == "" {
		return nil, fmt.Errorf("recipestore: add before first scan: %w", apperr.ErrInvalid)
	}

	data, err := parser.Format(d.header(), d.Steps, d.Notes)
	if err != nil {
		return nil, err
	}
	name := d.FileName()
	id := DeriveID(name)
	if _, err := s.Get(id); err == nil {
		return nil, fmt.Errorf("recipestore: add %q: %w", id, apperr.ErrAlreadyExists)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fsys, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("recipestore: add: %w", err)
	}
	if err := fsys.Create(name, data); err != nil {
		return nil, fmt.Errorf("recipestore: add: %w", err)
	}
	s.logger.Info("recipestore: recipe added", slog.String("path", name), slog.String("id", id))

	// The file is on disk now; index it even if the caller has gone away.
	if _, err := s.Scan(context.WithoutCancel(ctx), dir); err != nil {
		return nil, err
	}
	return s.Get(id)
}
