package documents

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers knowledge base routes on the router
func RegisterRoutes(r chi.Router, handler *Handler) {
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", handler.Status)
		r.Post("/", handler.Upload)
		r.Post("/reindex", handler.Reindex)
		r.Delete("/{documentID}", handler.Remove)
	})
}
