package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chatapi "github.com/futig/ragchat/internal/api/chat"
	"github.com/futig/ragchat/internal/api/docs"
	documentsapi "github.com/futig/ragchat/internal/api/documents"
	"github.com/futig/ragchat/internal/api/middleware"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	chatHandler *chatapi.Handler,
	documentsHandler *documentsapi.Handler,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	r.Use(chimiddleware.Timeout(120 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	docs.RegisterRoutes(r)
	chatapi.RegisterRoutes(r, chatHandler)
	documentsapi.RegisterRoutes(r, documentsHandler)

	return r
}
