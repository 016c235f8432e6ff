// Package ratelimit holds in-memory limiters for the public endpoints.
//
// Buckets live in process memory guarded by a mutex; a background goroutine
// drops expired buckets. The package imports nothing from the project so both
// handlers and middleware can use it.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

type bucket struct {
	count       int
	windowStart time.Time
}

// AttemptLimiter caps attempts per key within a fixed window. It guards code
// lookups and joins so session codes cannot be enumerated by brute force.
//
//	limiter := NewAttemptLimiter(20, time.Minute)
//	if !limiter.Allow(ip) { return 429 }
type AttemptLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewAttemptLimiter starts a limiter and its cleanup goroutine.
func NewAttemptLimiter(maxAttempts int, window time.Duration) *AttemptLimiter {
	rl := &AttemptLimiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow records one attempt for key and reports whether it is within limit.
func (rl *AttemptLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists || now.Sub(b.windowStart) > rl.window {
		rl.buckets[key] = &bucket{count: 1, windowStart: now}
		return true
	}

	b.count++
	return b.count <= rl.maxAttempts
}

// Reset forgets key, e.g. after a successful join.
func (rl *AttemptLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.buckets, key)
}

// RetryAfterSeconds returns the seconds left in key's window, rounded up.
func (rl *AttemptLimiter) RetryAfterSeconds(key string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[key]
	if !exists {
		return 0
	}

	remaining := rl.window - time.Since(b.windowStart)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Stop ends the cleanup goroutine.
func (rl *AttemptLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *AttemptLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *AttemptLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) > rl.window {
			delete(rl.buckets, key)
		}
	}
}

// ExtractIP returns the client address of r.
//
// By default only RemoteAddr counts: forwarding headers are client input and
// a client that rotates them would get a fresh bucket on every request.
//
// With trustProxy the order is first X-Forwarded-For entry, then X-Real-IP,
// then RemoteAddr. Behind a reverse proxy RemoteAddr is always the proxy, so
// every client would share one bucket without the headers.
func ExtractIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormatRetryMessage renders a wait, e.g. 120 -> "2 minute(s)".
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
