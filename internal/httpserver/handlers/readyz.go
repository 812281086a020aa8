package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
)

const probeTimeout = 2 * time.Second

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Readyz fails while the upload backend or the redis settings backend is
// unreachable.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		if d.RedisClient != nil {
			if err := d.RedisClient.Ping(ctx).Err(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: "settings backend unavailable"})
				return
			}
		}
		if err := d.Blobs.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: "upload storage unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
