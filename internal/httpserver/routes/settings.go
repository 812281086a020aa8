package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/httpserver/handlers"
)

func init() { Register(registerSettings) }

func registerSettings(r chi.Router, d deps.Deps) {
	api(r, d).Get("/api/site-settings", handlers.GetSettings(d))
	admin(r, d).Put("/api/site-settings", handlers.PutSettings(d))
}
