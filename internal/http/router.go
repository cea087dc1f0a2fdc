// Package http wires the handlers into the chi router.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docqa-ai/internal/handlers"
	"docqa-ai/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Service handlers.Service
	Store   vectorstore.VectorStore
}

// NewRouter creates the HTTP router with all API routes registered.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", handlers.NewQueryHandler(deps.Service))
		r.Method(http.MethodPost, "/intent", handlers.NewIntentHandler(deps.Service))
		r.Method(http.MethodPost, "/rephrase", handlers.NewRephraseHandler(deps.Service))
		r.Method(http.MethodPost, "/cache", handlers.NewCacheHandler(deps.Service))
		r.Method(http.MethodGet, "/tenants", handlers.NewTenantsHandler(deps.Service))
		r.Method(http.MethodPost, "/tenants/{tenant}/files", handlers.NewFileIngestHandler(deps.Service))
		r.Method(http.MethodPost, "/tenants/{tenant}/urls", handlers.NewURLIngestHandler(deps.Service))
		r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(deps.Service))
	})

	r.Method(http.MethodGet, "/healthz", handlers.NewHealthHandler(deps.Store, deps.Service))

	return r
}
