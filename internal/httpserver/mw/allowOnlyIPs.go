package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/utils"
)

// AllowOnlyCIDRS guards the ops endpoints (/metrics, /readyz, /infra,
// /reload). Entries are single addresses or CIDR prefixes; an empty list
// disables the check. trustProxy selects whether the client address comes
// from the tunnel headers or from the TCP peer.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	matcher := utils.NewIPMatcher(allowed)
	if matcher.IsEmpty() {
		log.Debug("AllowOnlyCIDRS: no valid ranges configured, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}
	log.Debug("AllowOnlyCIDRS: ops endpoints restricted",
		logger.Strings("ranges", allowed), logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := utils.ClientIP(r, trustProxy); !matcher.Allow(ip) {
				log.Warn("ops request from outside the allowed ranges",
					logger.String("ip", ip), logger.String("path", r.URL.Path))
				deny(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
