package mw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/encore/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		expected      bool
	}{
		{"encorekaraoke.com", "encorekaraoke.com", true},
		{"api.encorekaraoke.com", "*.encorekaraoke.com", true},
		{"encorekaraoke.com", "*.encorekaraoke.com", false},
		{"evil.com", "encorekaraoke.com", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.expected {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.expected)
		}
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"api.encorekaraoke.com"}, logger.Nop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Host = "API.encorekaraoke.com"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("allowed host status = %d, want 200", rec.Code)
	}

	req.Host = "other.example.com"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign host status = %d, want 403", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://encorekaraoke.com/"}, logger.Nop())(okHandler)

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllowed bool
	}{
		{name: "same origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "allowed simple", method: http.MethodGet, origin: "https://encorekaraoke.com", wantStatus: http.StatusOK, wantAllowed: true},
		{name: "allowed preflight", method: http.MethodOptions, origin: "https://encorekaraoke.com", preflight: true, wantStatus: http.StatusNoContent, wantAllowed: true},
		{name: "foreign simple", method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusOK},
		{name: "foreign preflight", method: http.MethodOptions, origin: "https://evil.example", preflight: true, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/site-settings", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPut)
				req.Header.Set("Access-Control-Request-Headers", "content-type")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.wantAllowed && rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("missing Allow-Credentials on allowed origin")
			}
			if tt.wantAllowed && got != tt.origin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.origin)
			}
			if !tt.wantAllowed && got != "" {
				t.Errorf("Allow-Origin = %q, want none", got)
			}
			if tt.wantAllowed && tt.preflight && !strings.EqualFold(rec.Header().Get("Access-Control-Allow-Headers"), "content-type") {
				t.Errorf("Allow-Headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
			}
		})
	}
}

func TestLimiter(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 60})
	now := time.Now()

	for i := 0; i < 2; i++ {
		if ok, _, _ := l.allow("1.2.3.4", now); !ok {
			t.Fatalf("request %d rejected within burst", i+1)
		}
	}
	ok, _, retry := l.allow("1.2.3.4", now)
	if ok || retry < 1 {
		t.Errorf("third request = %v (retry %d), want rejected", ok, retry)
	}
	if ok, _, _ := l.allow("5.6.7.8", now); !ok {
		t.Error("other client should have its own bucket")
	}
	// one token per second at 60/min
	if ok, _, _ := l.allow("1.2.3.4", now.Add(time.Second)); !ok {
		t.Error("request after refill rejected")
	}
}

func TestRateLimitResponse(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 1, Message: "slow down"})(okHandler)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if body := rec.Body.String(); body != "{\"message\":\"slow down\"}\n" {
		t.Errorf("body = %q", body)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, true, logger.Nop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:1"
	req.Header.Set("X-Forwarded-For", "10.1.2.3")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("proxied allowed client status = %d, want 200", rec.Code)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outside client status = %d, want 403", rec.Code)
	}
}
