package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/encore/internal/httpserver/mw"
)

func init() { Register(registerSession) }

func registerSession(r chi.Router, d deps.Deps) {
	a := api(r, d)
	a.Get("/api/session", handlers.Session(d))
	a.Post("/api/logout", handlers.Logout(d))
	a.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.LoginBurst,
		RefillPerIPPerMin: d.LoginRefill,
		MaxEntries:        10000,
		IdleTTL:           time.Hour,
		TrustProxy:        d.TrustProxy,
		Message:           "Too many login attempts, please try again later",
	})).Post("/api/login", handlers.Login(d))
}
