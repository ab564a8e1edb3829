package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kiesman99/tilex/internal/api"
)

// NewRouter mounts the API of s under /api/v1 with the standard middleware
// stack. Requests other than the WebSocket stream are cut off after timeout.
func NewRouter(s *Server, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	// Add middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// CORS middleware for API access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived, stays outside the request timeout
		r.Get("/extract/ws", s.StreamExtraction)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			api.HandlerWithOptions(s, api.ChiServerOptions{
				BaseRouter:       r,
				ErrorHandlerFunc: s.HandleParamError,
			})
		})
	})

	// Legacy health endpoint (without /api/v1 prefix for backward compatibility)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}
