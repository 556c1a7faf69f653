package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Session lifecycle
		r.Route("/session", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/refresh", s.handleRefreshSession)
			r.Get("/stats", s.handleSessionStats)
		})

		// Bridge pairing
		r.Post("/bridges/{bridgeID}/pair", s.handlePairBridge)
	})

	// WebSocket gateway; auth happens in-band via the auth message.
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
