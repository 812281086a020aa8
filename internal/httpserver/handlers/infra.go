package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/library"
	"github.com/MrSnakeDoc/encore/internal/media"
)

type componentStatus struct {
	OK         bool           `json:"ok"`
	Backend    string         `json:"backend,omitempty"`
	Records    *int           `json:"records,omitempty"`
	ByStatus   map[string]int `json:"by_status,omitempty"`
	LastReload string         `json:"last_reload,omitempty"`
	Busy       []string       `json:"busy,omitempty"`
	Impact     string         `json:"impact,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"settings": checkSettings(ctx, d),
			"uploads":  checkUploads(ctx, d),
			"catalog":  catalogStatus(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

// determineMode: settings down is critical (site cannot be edited or served),
// uploads down is degraded (site works, media library is read-only).
func determineMode(components map[string]componentStatus) string {
	if s, ok := components["settings"]; ok && !s.OK {
		return "critical"
	}
	if u, ok := components["uploads"]; ok && !u.OK {
		return "degraded"
	}
	return "ok"
}

func checkSettings(ctx context.Context, d deps.Deps) componentStatus {
	st := componentStatus{OK: true, Backend: d.SettingsBackend}
	if d.SettingsBackend != "redis" {
		return st
	}
	if d.RedisClient == nil {
		st.OK = false
		st.Error = "client not initialized"
		return st
	}
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		st.OK = false
		st.Impact = "settings-read-only"
		st.Error = "timeout"
	}
	return st
}

func checkUploads(ctx context.Context, d deps.Deps) componentStatus {
	backend := "minio"
	if d.UploadDir != "" {
		backend = "local"
	}
	st := componentStatus{OK: true, Backend: backend}
	if err := d.Blobs.Ping(ctx); err != nil {
		st.OK = false
		st.Impact = "uploads-disabled"
		st.Error = err.Error()
	}
	return st
}

func catalogStatus(d deps.Deps) componentStatus {
	catalog := d.Media.Catalog()
	records := catalog.Records()
	n := len(records)

	byStatus := make(map[string]int, 3)
	for _, rec := range records {
		byStatus[rec.Status.String()]++
	}

	lastReload := "never"
	if t := catalog.LastRefresh(); !t.IsZero() {
		lastReload = t.Format("2006-01-02 15:04:05")
	}

	var busy []string
	for _, a := range []string{library.ActionUpload, library.ActionRefresh, library.ActionRepair, library.ActionCleanup, library.ActionInsert} {
		if d.Media.Busy(a) {
			busy = append(busy, a)
		}
	}

	return componentStatus{
		OK:         byStatus[media.StatusBroken.String()] == 0,
		Records:    &n,
		ByStatus:   byStatus,
		LastReload: lastReload,
		Busy:       busy,
	}
}
