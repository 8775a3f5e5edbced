package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/siteservice"
)

// Pages serves the rendered HTML pages.
type Pages struct {
	svc *siteservice.Service
}

// NewPages creates a new Pages handler.
func NewPages(svc *siteservice.Service) *Pages {
	return &Pages{svc: svc}
}

// Home handles GET /.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	out, err := p.svc.RenderHome(r.Context(), r.URL.Query().Get("tag"))
	writeHTML(w, "render home", out, err)
}

// Recipe handles GET /recipes/{id}.
func (p *Pages) Recipe(w http.ResponseWriter, r *http.Request) {
	out, err := p.svc.RenderRecipe(r.Context(), chi.URLParam(r, "id"))
	writeHTML(w, "render recipe", out, err)
}

// Dashboard handles GET /dashboard.
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	out, err := p.svc.RenderDashboard(r.Context())
	writeHTML(w, "render dashboard", out, err)
}

func writeHTML(w http.ResponseWriter, op, body string, err error) {
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		slog.Error(op+" failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
