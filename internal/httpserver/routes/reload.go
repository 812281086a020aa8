package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/httpserver/handlers"
)

func init() { Register(registerReload) }

func registerReload(r chi.Router, d deps.Deps) {
	if d.ReloadTrigger == nil {
		return
	}
	ops(r, d).With(d.Auth.Require).Post("/reload", handlers.Reload(d))
}
