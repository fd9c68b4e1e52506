package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. wsHandler
// may be nil when the WebSocket stream is not wired.
func MountRoutes(r chi.Router, h *Handlers, wsHandler http.HandlerFunc) {
	r.Get("/health", h.Health)
	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Agent instances
		r.Get("/agents", h.ListAgents)
		r.Post("/agents", h.CreateAgent)
		r.Get("/agents/{id}", h.GetAgent)
		r.Post("/agents/{id}/start", h.StartAgent)
		r.Post("/agents/{id}/stop", h.StopAgent)
		r.Post("/agents/{id}/run", h.RunAgent)
		r.Get("/agents/{id}/runs", h.ListAgentRuns)

		// Catalog entries (keyed by type name)
		r.Post("/agents/{id}/enable", h.EnableAgent)
		r.Post("/agents/{id}/disable", h.DisableAgent)
		r.Put("/agents/{id}/config", h.UpdateAgentConfig)

		// Registry
		r.Get("/registry", h.ListRegistry)
		r.Post("/registry/reload", h.ReloadRegistry)
	})
}
