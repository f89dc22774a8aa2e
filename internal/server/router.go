package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"code-courier/internal/database"
	"code-courier/internal/handlers"
	"code-courier/internal/notify"
	"code-courier/internal/ratelimit"
)

// Options carries the collaborators the router exposes over HTTP.
type Options struct {
	DB      *database.DB
	Runner  handlers.ExtractionRunner
	Limiter *ratelimit.TriggerLimiter
	Hub     *notify.Hub
}

// NewRouter creates the HTTP router and registers all routes
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	codeHandler := handlers.NewCodeHandler(opts.DB)
	processHandler := handlers.NewProcessHandler(opts.Runner, opts.Limiter)
	healthHandler := handlers.NewHealthHandler(opts.DB)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)

		r.Get("/codes", codeHandler.GetCodes)
		r.Get("/codes/{id}", codeHandler.GetCodeByID)
		r.Patch("/codes/{id}/deactivate", codeHandler.DeactivateCode)

		r.Post("/gmail/process", processHandler.Process)
	})

	if opts.Hub != nil {
		r.Get("/ws", opts.Hub.ServeWS)
	}

	return r
}
