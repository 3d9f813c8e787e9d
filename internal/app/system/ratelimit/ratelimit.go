// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key. Buckets idle longer than the
// idle TTL are evicted, as are the least recently used ones once size keys
// are tracked. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
	every   rate.Limit
	burst   int
}

// New creates a limiter refilling perSecond tokens per second up to burst.
func New(perSecond float64, burst, size int, idle time.Duration) *Limiter {
	if size <= 0 {
		size = 10000
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		buckets: expirable.NewLRU[string, *rate.Limiter](size, nil, idle),
		every:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets.Get(key)
	if !ok {
		b = rate.NewLimiter(l.every, l.burst)
	}
	// Re-adding refreshes the idle TTL.
	l.buckets.Add(key, b)
	return b
}

// Allow reports whether one more event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Remaining returns the whole tokens currently available for key.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	b, ok := l.buckets.Peek(key)
	l.mu.Unlock()
	if !ok {
		return l.burst
	}
	n := int(b.Tokens())
	if n < 0 {
		return 0
	}
	return n
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets.Remove(key)
}

// ClientIP extracts the client IP from an HTTP request. chi's RealIP
// middleware has normally already rewritten RemoteAddr; the headers are
// checked for requests that bypass it.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter throttles sign-in attempts per client IP and per email.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter builds a login limiter. The email bucket refills at a
// fifth of the IP rate with the same burst.
func NewLoginLimiter(perSecond float64, burst int) *LoginLimiter {
	return &LoginLimiter{
		ip:    New(perSecond, burst, 10000, 15*time.Minute),
		email: New(perSecond/5, burst, 10000, time.Hour),
	}
}

// Check reports whether a login attempt may proceed and, if not, a message
// suitable for the login form.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		if !ll.email.Allow(key) {
			return false, "Too many login attempts for this account. Please wait a few minutes."
		}
	}
	return true, ""
}

// ResetEmail clears the per-email bucket after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" {
		ll.email.Reset(key)
	}
}
