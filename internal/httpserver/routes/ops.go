package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/encore/internal/metrics"
)

func init() { Register(registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	o := ops(r, d)
	o.Get("/healthz", handlers.Healthz(d))
	o.Get("/readyz", handlers.Readyz(d))
	o.Get("/infra", handlers.Infra(d))
	o.Method("GET", "/metrics", metrics.Handler())
}
