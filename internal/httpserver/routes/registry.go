package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var registry []entry

// Register a registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// Called once from server.New()
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		sub := r.With(e.mws...) // apply per-route middlewares
		e.reg(sub, d)
	}
}

// api is the public site API: host-checked, short timeout.
func api(r chi.Router, d deps.Deps) chi.Router {
	return r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		middleware.Timeout(d.RequestTimeout),
	)
}

// admin requires an administrator session.
func admin(r chi.Router, d deps.Deps) chi.Router {
	return api(r, d).With(d.Auth.Require)
}

// action is admin with the long timeout used for uploads and library actions.
func action(r chi.Router, d deps.Deps) chi.Router {
	return r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		middleware.Timeout(d.ActionTimeout),
		d.Auth.Require,
	)
}

// ops is for probes and metrics scrapers.
func ops(r chi.Router, d deps.Deps) chi.Router {
	return r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
}
