package contact

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the contact endpoint with the Chi router
func RegisterRoutes(r chi.Router, handler *Handler) {
	r.Route("/contact", func(r chi.Router) {
		// POST /api/contact - submit the contact form
		r.Post("/", handler.Submit)

		// GET /api/contact - configuration presence check for smoke tests
		r.Get("/", handler.Status)
	})
}
