package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-loadsynth/internal/auth"
)

// healthTimeout bounds the dependency checks of the health endpoint.
const healthTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/runs", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermRunRead)).Get("/", s.handleListRuns)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermRunRead)).Get("/", s.handleGetRun)
					r.With(s.requirePermission(auth.PermRunDelete)).Delete("/", s.handleDeleteRun)
					r.With(s.requirePermission(auth.PermRunRead)).Get("/stats", s.handleRunStats)
					r.With(s.requirePermission(auth.PermRunRead)).Get("/occurrences", s.handleRunOccurrences)
				})
			})

			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAudit)
			r.With(s.requirePermission(auth.PermRunWatch)).Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth reports the server and every registered dependency.
// Any failing dependency turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.health[name].HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  checks,
	})
}
