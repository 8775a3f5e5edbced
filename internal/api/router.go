package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recipebox/internal/siteservice"
)

// NewRouter creates a chi router with the rendered pages at the root and the
// JSON API under /api. Reads of recipes and public pages are open; the
// dashboard, layouts and every mutation sit behind AuthMiddleware.
// sseHandler, if non-nil, is mounted at GET /api/events inside the auth group.
func NewRouter(svc *siteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	p := NewPages(svc)
	auth := AuthMiddleware(authEnabled, token)

	r := chi.NewRouter()

	// Pages.
	r.Get("/", p.Home)
	r.Get("/recipes/{id}", p.Recipe)
	r.With(auth).Get("/dashboard", p.Dashboard)

	r.Route("/api", func(r chi.Router) {
		// Public recipe reads.
		r.Get("/recipes", h.ListRecipes)
		r.Get("/recipes/{id}", h.GetRecipe)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/recipes", h.AddRecipe)
			r.Post("/rescan", h.Rescan)
			r.Get("/failures", h.Failures)

			r.Get("/layouts", h.ListLayouts)
			r.Get("/layouts/{slot}", h.GetLayout)
			r.Put("/layouts/{slot}", h.SaveLayout)
			r.Delete("/layouts/{slot}", h.ResetLayout)
			r.Post("/layouts/{slot}/diff", h.DiffLayout)

			if sseHandler != nil {
				r.Get("/events", sseHandler.ServeHTTP)
			}
		})
	})

	return r
}
