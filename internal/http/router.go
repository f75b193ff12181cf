package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"archivist-ai/internal/handlers"
	"archivist-ai/internal/indexer"
	"archivist-ai/internal/rag"
	"archivist-ai/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine         rag.Engine
	Pipeline       *indexer.Pipeline
	SourceRepo     storage.SourceStore
	PassageRepo    storage.PassageStore
	SettingsRepo   storage.SettingsStore
	DB             *sql.DB
	VectorChecker  handlers.CollectionChecker
	LLMChecker     handlers.LLMChecker
	CollectionName string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.Engine)
	sourceHandler := handlers.NewSourceHandler(deps.Pipeline, deps.SourceRepo)
	settingsHandler := handlers.NewSettingsHandler(deps.SettingsRepo)
	statsHandler := handlers.NewStatsHandler(deps.PassageRepo)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.VectorChecker, deps.LLMChecker, deps.CollectionName)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Post("/sources", sourceHandler.Ingest)
		r.Get("/sources", sourceHandler.List)
		r.Delete("/sources/{id}", sourceHandler.Delete)
		r.Put("/settings/{key}", settingsHandler.Put)
		r.Method(http.MethodGet, "/stats", statsHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
