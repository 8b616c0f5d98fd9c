// Package router wires the admin HTTP surface.
package router

import (
	"net/http"

	"abc-inventory-monitor/internal/handler"
	"abc-inventory-monitor/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	ClientHandler  *handler.ClientHandler
	MonitorHandler *handler.MonitorHandler
	AuthMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "X-Admin-Key"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Public status endpoint for uptime probes.
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
			}

			if cfg.ClientHandler != nil {
				r.Route("/clients", func(r chi.Router) {
					r.Get("/", cfg.ClientHandler.List)
					r.Post("/", cfg.ClientHandler.Create)
					r.Get("/{id}", cfg.ClientHandler.Get)
					r.Delete("/{id}", cfg.ClientHandler.Delete)
					r.Post("/{id}/track", cfg.ClientHandler.Track)
				})
			}

			if cfg.MonitorHandler != nil {
				r.Route("/monitor", func(r chi.Router) {
					r.Post("/cycle", cfg.MonitorHandler.Cycle)
					r.Post("/reset", cfg.MonitorHandler.Reset)
				})
			}
		})
	})

	return r
}
