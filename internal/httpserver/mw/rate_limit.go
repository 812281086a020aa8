package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/encore/internal/utils"
)

type RateLimitConfig struct {
	Burst             int           // attempts allowed at once
	RefillPerIPPerMin int           // attempts given back per minute
	MaxEntries        int           // sweep early once this many clients are tracked (0 = no cap)
	SweepInterval     time.Duration // how often idle clients are forgotten
	IdleTTL           time.Duration
	TrustProxy        bool // resolve IP from proxy headers when true
	Message           string
}

type tokens struct {
	left    float64
	updated time.Time
}

// limiter is a token bucket per client key, guarded by one mutex. Login is
// the only limited route, so contention is negligible.
type limiter struct {
	burst     int
	perSec    float64
	maxKeys   int
	sweepEach time.Duration
	idleTTL   time.Duration

	mu        sync.Mutex
	clients   map[string]*tokens
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	l := &limiter{
		burst:     max(cfg.Burst, 1),
		perSec:    float64(max(cfg.RefillPerIPPerMin, 1)) / 60,
		maxKeys:   cfg.MaxEntries,
		sweepEach: cfg.SweepInterval,
		idleTTL:   cfg.IdleTTL,
		clients:   make(map[string]*tokens),
		lastSweep: time.Now(),
	}
	if l.sweepEach <= 0 {
		l.sweepEach = time.Minute
	}
	if l.idleTTL <= 0 {
		l.idleTTL = 15 * time.Minute
	}
	return l
}

// allow takes one token for key. When none is left it reports how many
// whole seconds until the next one.
func (l *limiter) allow(key string, now time.Time) (ok bool, remaining int, retryAfterSec int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.sweepEach || (l.maxKeys > 0 && len(l.clients) >= l.maxKeys) {
		l.sweep(now)
	}

	t, seen := l.clients[key]
	if !seen {
		t = &tokens{left: float64(l.burst), updated: now}
		l.clients[key] = t
	}
	if dt := now.Sub(t.updated).Seconds(); dt > 0 {
		t.left = math.Min(float64(l.burst), t.left+dt*l.perSec)
		t.updated = now
	}

	if t.left < 1 {
		wait := int(math.Ceil((1 - t.left) / l.perSec))
		return false, 0, max(wait, 1)
	}
	t.left--
	return true, int(t.left), 0
}

func (l *limiter) sweep(now time.Time) {
	for key, t := range l.clients {
		if now.Sub(t.updated) > l.idleTTL {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// RateLimit is a per-client token bucket. Login uses it to slow down
// password guessing.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.burst)
	msg := cfg.Message
	if msg == "" {
		msg = http.StatusText(http.StatusTooManyRequests)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, retry := l.allow(utils.ClientIP(r, cfg.TrustProxy), time.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retry))
				deny(w, http.StatusTooManyRequests, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
