package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/httpserver/handlers"
)

func init() { Register(registerMedia) }

func registerMedia(r chi.Router, d deps.Deps) {
	admin(r, d).Get("/api/media", handlers.Browse(d))

	a := action(r, d)
	a.Post("/api/media/refresh", handlers.MediaRefresh(d))
	a.Post("/api/media/repair", handlers.MediaRepair(d))
	a.Post("/api/media/cleanup", handlers.MediaCleanup(d))
	a.Post("/api/media/insert", handlers.MediaInsert(d))
	a.Post("/api/media/upload", handlers.MediaUpload(d))
	a.Post("/api/media/{id}/retry", handlers.MediaRetry(d))
}
