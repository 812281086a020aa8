package mw

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/encore/internal/metrics"
)

// Metrics records request count and latency labelled by route pattern, so
// /api/media/{id}/retry is one series regardless of the id.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.status
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}
