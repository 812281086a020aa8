package mw

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/MrSnakeDoc/encore/internal/logger"
)

const corsMaxAge = 600

// CORS lets the configured site origins call the API with the session
// cookie. The allowed origin is echoed back, never "*", because credentials
// are sent. A preflight from an allowed origin gets 204, any other gets 403.
// If origins is empty it acts as a passthrough (same-origin deploy).
func CORS(origins []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		log.Debug("CORS: no origins configured, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		allowed = append(allowed, strings.TrimSuffix(strings.ToLower(o), "/"))
	}
	log.Debugf("CORS: initialized with origins=%v", allowed)

	c := cors.New(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:     []string{"*"},
		AllowCredentials:   true,
		MaxAge:             corsMaxAge,
		OptionsPassthrough: true,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			preflight := r.Method == http.MethodOptions &&
				r.Header.Get("Access-Control-Request-Method") != "" &&
				r.Header.Get("Origin") != ""
			if !preflight {
				next.ServeHTTP(w, r)
				return
			}
			if w.Header().Get("Access-Control-Allow-Origin") == "" {
				log.Debugf("CORS: preflight from %s rejected", r.Header.Get("Origin"))
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
	}
}
