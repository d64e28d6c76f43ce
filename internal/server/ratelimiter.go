package server

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	rateLimitMax    = 30
	rateLimitWindow = time.Minute
)

type rateWindow struct {
	count   int
	resetAt time.Time
}

// rateLimiter is a fixed-window counter keyed by action and client address.
// It guards the unauthenticated entry points (login, join) against brute
// force; authenticated moderator routes are not limited.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]rateWindow
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{windows: make(map[string]rateWindow)}
}

func (l *rateLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	window, ok := l.windows[key]
	if !ok || now.After(window.resetAt) {
		l.windows[key] = rateWindow{count: 1, resetAt: now.Add(rateLimitWindow)}
		l.prune(now)
		return true
	}
	if window.count >= rateLimitMax {
		return false
	}
	window.count++
	l.windows[key] = window
	return true
}

func (l *rateLimiter) prune(now time.Time) {
	for key, window := range l.windows {
		if now.After(window.resetAt) {
			delete(l.windows, key)
		}
	}
}

func (s *Server) enforceRateLimit(w http.ResponseWriter, r *http.Request, action string) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if s.limiter.Allow(action+":"+host, time.Now()) {
		return true
	}
	log.Printf("rate limited action=%s addr=%s", action, host)
	writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
	return false
}
