// Package models defines the domain types for RecipeBox.
package models

import (
	"time"

	"github.com/starford/recipebox/internal/quantity"
)

// Recipe is one parsed recipe file. Values are immutable once published in a
// store snapshot.
type Recipe struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Tags        []string     `json:"tags"`
	Description string       `json:"description,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []string     `json:"steps"`
	Notes       string       `json:"notes,omitempty"`
	NotesHTML   string       `json:"-"`
	SourcePath  string       `json:"source_path"`
	Checksum    string       `json:"checksum"`
	ModTime     time.Time    `json:"updated_at"`
}

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Name   string            `json:"name"`
	Amount quantity.Quantity `json:"amount"`
	Unit   string            `json:"unit,omitempty"`
}

// Display returns the amount and unit as they should be printed, e.g. "4 1/2 c".
func (i Ingredient) Display() string {
	amount := i.Amount.String()
	if i.Unit == "" {
		return amount
	}
	if amount == "" {
		return i.Unit
	}
	return amount + " " + i.Unit
}

// HasTag reports whether the recipe carries tag.
func (r *Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FileMetadata is a lightweight description of a file returned by storage listings.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
