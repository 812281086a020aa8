package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/encore/internal/auth"
	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/logger"
)

type sessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session reports whether the caller holds an admin session.
func Session(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Auth.Authenticated(r) {
			writeJSON(w, http.StatusUnauthorized, sessionResponse{Authenticated: false})
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true})
	}
}

func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeMessage(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		err := d.Auth.Login(w, r, req.Email, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Auth.Logout(w, r); err != nil {
			d.Logger.Warn("logout failed", logger.Error(err))
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}
