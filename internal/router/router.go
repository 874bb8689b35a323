package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"coach-backend/internal/handlers"
	"coach-backend/internal/middleware"
	"coach-backend/internal/web"
)

func New(
	logger zerolog.Logger,
	chatHandler *handlers.ChatHandler,
	smokeHandler *handlers.SmokeHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Get("/", chatHandler.Status)
			r.Post("/", chatHandler.Chat)
		})

		r.Route("/test", func(r chi.Router) {
			r.Get("/", smokeHandler.Get)
			r.Post("/", smokeHandler.Echo)
		})
	})

	// Chat page
	r.Handle("/*", web.Handler())

	return r
}
