package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/sensors", s.handleListSensors)
		r.Get("/sensors/{id}", s.handleGetSensor)
		r.Get("/discovery", s.handleDiscovery)
	})

	return r
}

// handleHealth returns the bridge health. The bridge keeps serving inverters
// while upstream is down, so a lost upstream is "degraded", not an error.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":             "ok",
		"version":            s.version,
		"upstream_connected": false,
		"model":              s.bridge.Model().Name,
	}

	var err error
	if s.upstream == nil {
		err = errors.New("no upstream client")
	} else {
		err = s.upstream.HealthCheck(r.Context())
	}
	if err != nil {
		resp["status"] = "degraded"
		resp["upstream_error"] = err.Error()
	} else {
		resp["upstream_connected"] = true
	}

	writeJSON(w, http.StatusOK, resp)
}
