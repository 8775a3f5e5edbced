package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recipebox/internal/siteservice"
	"github.com/starford/recipebox/internal/templates"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListRecipes handles GET /api/recipes.
//
//	@Summary		List indexed recipes in title order
//	@Tags			recipes
//	@Produce		json
//	@Param			tag	query		string	false	"Filter by tag"
//	@Success		200	{object}	RecipeListResponse
//	@Router			/recipes [get]
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	items := h.svc.ListRecipes(r.Context(), r.URL.Query().Get("tag"))
	writeJSON(w, http.StatusOK, RecipeListResponse{Recipes: items, Total: len(items)})
}

// GetRecipe handles GET /api/recipes/{id}.
//
//	@Summary		Get a single recipe by identifier
//	@Tags			recipes
//	@Produce		json
//	@Param			id	path		string	true	"Recipe identifier"
//	@Success		200	{object}	RecipeDetail
//	@Failure		404	{object}	errResponse
//	@Router			/recipes/{id} [get]
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.svc.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// AddRecipe handles POST /api/recipes.
//
//	@Summary		Add a new recipe file
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddRecipeRequest	true	"Recipe to add"
//	@Success		201		{object}	RecipeDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes [post]
func (h *Handler) AddRecipe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req AddRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	recipe, err := h.svc.AddRecipe(r.Context(), req)
	if err != nil {
		writeError(w, "add recipe", err)
		return
	}
	w.Header().Set("Location", "/api/recipes/"+recipe.ID)
	writeJSON(w, http.StatusCreated, recipe)
}

// Rescan handles POST /api/rescan.
//
//	@Summary		Re-index the recipes directory
//	@Tags			recipes
//	@Produce		json
//	@Success		200	{object}	ScanResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rescan [post]
func (h *Handler) Rescan(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Rescan(r.Context())
	if err != nil {
		writeError(w, "rescan", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Failures handles GET /api/failures.
//
//	@Summary		List recipe files excluded by the last scan
//	@Tags			recipes
//	@Produce		json
//	@Success		200	{object}	FailureListResponse
//	@Security		BearerAuth
//	@Router			/failures [get]
func (h *Handler) Failures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FailureListResponse{Failures: h.svc.Failures()})
}

// ListLayouts handles GET /api/layouts.
//
//	@Summary		Get the effective layout of every slot
//	@Tags			layouts
//	@Produce		json
//	@Success		200	{object}	LayoutListResponse
//	@Security		BearerAuth
//	@Router			/layouts [get]
func (h *Handler) ListLayouts(w http.ResponseWriter, r *http.Request) {
	layouts, err := h.svc.Layouts(r.Context())
	if err != nil {
		writeError(w, "list layouts", err)
		return
	}
	writeJSON(w, http.StatusOK, LayoutListResponse{Layouts: layouts})
}

// GetLayout handles GET /api/layouts/{slot}.
//
//	@Summary		Get the layout currently served for a slot
//	@Tags			layouts
//	@Produce		json
//	@Param			slot	path		string	true	"Layout slot"	Enums(home, recipe, dashboard)
//	@Success		200		{object}	LayoutDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layouts/{slot} [get]
func (h *Handler) GetLayout(w http.ResponseWriter, r *http.Request) {
	slot, err := templates.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, "get layout", err)
		return
	}
	d, err := h.svc.GetLayout(r.Context(), slot)
	if err != nil {
		writeError(w, "get layout", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// SaveLayout handles PUT /api/layouts/{slot}.
//
//	@Summary		Validate and save a layout override
//	@Tags			layouts
//	@Accept			json
//	@Produce		json
//	@Param			slot	path		string			true	"Layout slot"	Enums(home, recipe, dashboard)
//	@Param			body	body		LayoutRequest	true	"Layout source"
//	@Success		200		{object}	LayoutSaveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layouts/{slot} [put]
func (h *Handler) SaveLayout(w http.ResponseWriter, r *http.Request) {
	slot, req, ok := decodeLayout(w, r)
	if !ok {
		return
	}
	res, err := h.svc.SaveLayout(r.Context(), slot, req.Content)
	if err != nil {
		writeError(w, "save layout", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResetLayout handles DELETE /api/layouts/{slot}.
//
//	@Summary		Remove a layout override
//	@Tags			layouts
//	@Param			slot	path	string	true	"Layout slot"	Enums(home, recipe, dashboard)
//	@Success		204		"Override removed"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layouts/{slot} [delete]
func (h *Handler) ResetLayout(w http.ResponseWriter, r *http.Request) {
	slot, err := templates.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, "reset layout", err)
		return
	}
	if err := h.svc.ResetLayout(r.Context(), slot); err != nil {
		writeError(w, "reset layout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DiffLayout handles POST /api/layouts/{slot}/diff.
//
//	@Summary		Preview a layout change without saving it
//	@Tags			layouts
//	@Accept			json
//	@Produce		json
//	@Param			slot	path		string			true	"Layout slot"	Enums(home, recipe, dashboard)
//	@Param			body	body		LayoutRequest	true	"Proposed layout source"
//	@Success		200		{object}	LayoutPreview
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/layouts/{slot}/diff [post]
func (h *Handler) DiffLayout(w http.ResponseWriter, r *http.Request) {
	slot, req, ok := decodeLayout(w, r)
	if !ok {
		return
	}
	p, err := h.svc.DiffLayout(r.Context(), slot, req.Content)
	if err != nil {
		writeError(w, "diff layout", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func decodeLayout(w http.ResponseWriter, r *http.Request) (templates.Slot, LayoutRequest, bool) {
	var req LayoutRequest
	slot, err := templates.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, "layout", err)
		return "", req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return "", req, false
	}
	return slot, req, true
}
