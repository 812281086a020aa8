package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/logger"
)

// Reload asks the scheduler to re-read the settings backend and rebuild the
// catalog. It does not wait for the reload to finish.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeMessage(w, http.StatusAccepted, "Reload triggered")
		default:
			d.Logger.Warn("reload already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeMessage(w, http.StatusTooManyRequests, "Reload already in progress, please wait")
		}
	}
}
