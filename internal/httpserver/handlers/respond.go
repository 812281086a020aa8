package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/encore/internal/auth"
	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/library"
	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/site"
)

type messageResponse struct {
	Message string `json:"message"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, library.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, library.ErrUnknownRecord):
		return http.StatusNotFound
	case errors.Is(err, library.ErrStillBroken):
		return http.StatusUnprocessableEntity
	case errors.Is(err, library.ErrNotSelectable),
		errors.Is(err, library.ErrEmptyUpload),
		errors.Is(err, site.ErrInvalidPointer),
		errors.Is(err, site.ErrPointerMissing):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and writes {message}. Internal error
// text is not exposed to the client.
func writeError(d deps.Deps, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		d.Logger.Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
		msg = "Internal server error"
	}
	writeMessage(w, status, msg)
}
