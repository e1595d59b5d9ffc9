package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat session routes on the router
func RegisterRoutes(r chi.Router, handler *Handler) {
	r.Route("/chat-session", func(r chi.Router) {
		r.Post("/", handler.StartSession)
		r.Get("/", handler.ListSessions)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", handler.GetSession)
			r.Post("/close", handler.CloseSession)
			r.Post("/ask", handler.Ask)
			r.Post("/ask-audio", handler.AskAudio)
			r.Get("/transcript", handler.ExportTranscript)
		})
	})
}
