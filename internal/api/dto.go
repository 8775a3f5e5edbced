package api

import (
	"github.com/starford/recipebox/internal/layout"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/recipestore"
	"github.com/starford/recipebox/internal/siteservice"
)

// AddRecipeRequest is the request body for adding a recipe.
type AddRecipeRequest = recipestore.Draft

// LayoutRequest is the request body for saving or previewing a layout.
type LayoutRequest struct {
	Content string `json:"content" example:"<h1>{{ site.title }}</h1>" validate:"required"`
}

// RecipeDetail is the full recipe response type (aliased from the domain layer).
type RecipeDetail = models.Recipe

// RecipeListItem is a lightweight item in a list response (aliased from the domain layer).
type RecipeListItem = siteservice.RecipeListItem

// RecipeListResponse wraps recipe listings.
type RecipeListResponse struct {
	Recipes []RecipeListItem `json:"recipes" validate:"required"`
	Total   int              `json:"total" example:"42" validate:"required"`
}

// FailureListResponse wraps the files excluded by the last scan.
type FailureListResponse struct {
	Failures []siteservice.Failure `json:"failures" validate:"required"`
}

// ScanResponse is returned after a rescan.
type ScanResponse = siteservice.ScanSummary

// LayoutDetail is the effective layout of a slot.
type LayoutDetail = siteservice.LayoutDetail

// LayoutListResponse wraps the effective layout of every slot.
type LayoutListResponse struct {
	Layouts []LayoutDetail `json:"layouts" validate:"required"`
}

// LayoutSaveResponse is returned after a layout is saved.
type LayoutSaveResponse = layout.SaveResult

// LayoutPreview is returned by the diff endpoint.
type LayoutPreview = layout.Preview
