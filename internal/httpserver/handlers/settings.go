package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/site"
)

const maxSettingsBytes = 10 << 20

// GetSettings returns the whole settings document, {} when nothing is saved.
func GetSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Store.Snapshot())
	}
}

// PutSettings replaces the document. Last write wins.
func PutSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body any
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBytes)).Decode(&body); err != nil {
			if statusFor(err) == http.StatusRequestEntityTooLarge {
				writeError(d, w, r, err)
				return
			}
			writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		obj, ok := body.(map[string]any)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "Settings must be a JSON object")
			return
		}

		if err := d.Store.Dispatch(r.Context(), site.ReplaceDocument{Doc: site.Document(obj)}); err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}
