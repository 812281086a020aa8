package mw

import (
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/encore/internal/logger"
)

// EnforceHost rejects requests whose Host header is not one of allowedHosts.
// A pattern "*.encorekaraoke.com" matches any subdomain but not the apex.
// An empty list disables the check.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedHosts) == 0 {
		log.Debug("EnforceHost: no hosts configured, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	patterns := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		patterns = append(patterns, strings.ToLower(strings.TrimSpace(h)))
	}
	log.Debugf("EnforceHost: initialized with hosts=%v", patterns)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := requestHost(r)
			if slices.ContainsFunc(patterns, func(p string) bool { return matchHost(host, p) }) {
				next.ServeHTTP(w, r)
				return
			}
			log.Debugf("EnforceHost: host %q rejected", host)
			deny(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// requestHost is r.Host lowercased, without port.
func requestHost(r *http.Request) string {
	host := strings.ToLower(r.Host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func matchHost(host, pattern string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix) && len(host) > len(suffix)
	}
	return host == pattern
}
