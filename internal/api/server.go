package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	RegisterRoutes(r, h)
	return r
}

// RegisterRoutes registers the session routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Post("/document", h.UploadDocument)
		r.Delete("/document", h.DeleteDocument)
		r.Post("/translate", h.Translate)
		r.Post("/explain-more", h.ExplainMore)
	})
}
