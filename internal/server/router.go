package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/docpipe/internal/api"
	"github.com/cloo-solutions/docpipe/internal/api/handlers"
	"github.com/cloo-solutions/docpipe/internal/api/middleware"
)

type RouterConfig struct {
	IngestHandler *handlers.IngestHandler
	RunsHandler   *handlers.RunsHandler
	SearchHandler *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", cfg.IngestHandler.Create)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", cfg.RunsHandler.List)
			r.Get("/{id}", cfg.RunsHandler.Get)
		})

		r.Get("/search", cfg.SearchHandler.Search)
	})

	return r
}
