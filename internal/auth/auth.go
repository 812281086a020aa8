// Package auth implements the single-administrator session login.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionName = "encore_session"
	// adminKey holds the email of the logged-in administrator.
	adminKey = "admin_email"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Options struct {
	Email string
	// PasswordHash is a bcrypt hash. When empty, Password is hashed at startup.
	PasswordHash string
	Password     string
	SessionKey   []byte
	Secure       bool
	MaxAge       time.Duration
}

// Authenticator checks credentials and manages the session cookie.
type Authenticator struct {
	store  *sessions.CookieStore
	email  string
	hash   []byte
	logger logger.Logger
}

func New(opts Options, log logger.Logger) (*Authenticator, error) {
	if strings.TrimSpace(opts.Email) == "" {
		return nil, errors.New("admin email is required")
	}
	if len(opts.SessionKey) < 32 {
		return nil, fmt.Errorf("session key must be at least 32 bytes, got %d", len(opts.SessionKey))
	}

	hash := []byte(opts.PasswordHash)
	switch {
	case len(hash) > 0:
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
	case opts.Password != "":
		h, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		hash = h
	default:
		return nil, errors.New("admin password or password hash is required")
	}

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}

	store := sessions.NewCookieStore(opts.SessionKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Authenticator{
		store:  store,
		email:  normalizeEmail(opts.Email),
		hash:   hash,
		logger: log,
	}, nil
}

// Verify checks credentials without touching the session.
func (a *Authenticator) Verify(email, password string) error {
	emailOK := subtle.ConstantTimeCompare([]byte(normalizeEmail(email)), []byte(a.email)) == 1
	// Always run bcrypt so a wrong email costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	if !emailOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies credentials and sets the session cookie.
func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request, email, password string) error {
	if err := a.Verify(email, password); err != nil {
		a.logger.Warn("login rejected", logger.String("remote_ip", r.RemoteAddr))
		return err
	}

	session, _ := a.store.Get(r, sessionName)
	session.Values[adminKey] = a.email
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	a.logger.Info("admin logged in", logger.String("remote_ip", r.RemoteAddr))
	return nil
}

// Logout expires the session cookie.
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := a.store.Get(r, sessionName)
	delete(session.Values, adminKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Authenticated reports whether the request carries a valid admin session.
// An undecodable cookie counts as no session.
func (a *Authenticator) Authenticated(r *http.Request) bool {
	session, err := a.store.Get(r, sessionName)
	if err != nil {
		return false
	}
	email, ok := session.Values[adminKey].(string)
	return ok && email == a.email
}

// Require rejects requests without an admin session with 401.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Authenticated(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
