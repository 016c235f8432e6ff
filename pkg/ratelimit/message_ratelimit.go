package ratelimit

import (
	"sync"
	"time"
)

// messageBucket tracks one sender. While cooldownUntil is in the future every
// post is rejected; otherwise count runs inside a window starting at
// windowStart.
type messageBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time // zero: no cooldown
}

// MessageRateLimiter throttles posts and replies per sender key.
//
// Unlike AttemptLimiter the window and the penalty differ: with (5, 5s, 15s)
// five posts in five seconds pass, the sixth starts a fifteen second cooldown
// during which everything is rejected.
//
//	limiter := NewMessageRateLimiter(5, 5*time.Second, 15*time.Second)
//	if !limiter.Allow(key) { return 429 }
type MessageRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[string]*messageBucket
	maxMessages int
	window      time.Duration
	cooldown    time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMessageRateLimiter starts a limiter and its cleanup goroutine.
func NewMessageRateLimiter(maxMessages int, window, cooldown time.Duration) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets:     make(map[string]*messageBucket),
		maxMessages: maxMessages,
		window:      window,
		cooldown:    cooldown,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow records a post for key and reports whether it may go through.
func (rl *MessageRateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists {
		rl.buckets[key] = &messageBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() && now.Before(b.cooldownUntil) {
		return false
	}

	// Cooldown over: start fresh.
	if !b.cooldownUntil.IsZero() {
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > rl.maxMessages {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}

	return true
}

// CooldownSeconds returns the remaining cooldown for key, rounded up, for the
// Retry-After header. Zero when key is not cooling down.
func (rl *MessageRateLimiter) CooldownSeconds(key string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[key]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := time.Until(b.cooldownUntil)
	if remaining <= 0 {
		return 0
	}

	return int(remaining.Seconds()) + 1
}

// Stop ends the cleanup goroutine.
func (rl *MessageRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *MessageRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
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

// cleanup drops buckets whose window and cooldown have both expired.
func (rl *MessageRateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)

		if windowExpired && cooldownExpired {
			delete(rl.buckets, key)
		}
	}
}
