package server

import (
	"log/slog"
	"sync"
	"time"
)

// Limiter is a fixed-window per-key rate limiter with lockout escalation.
// A key that keeps hammering past its window budget collects strikes; enough
// strikes lock it out entirely for a cooldown period. The same limiter
// instance serves both the per-IP and per-conversation scopes, the caller
// just prefixes the key.
type Limiter struct {
	perWindow int
	window    time.Duration
	threshold int
	lockout   time.Duration

	now func() time.Time

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

type limiterEntry struct {
	windowStart time.Time
	count       int
	strikes     int
	lockedUntil time.Time
	lastSeen    time.Time
}

// NewLimiter creates a Limiter allowing perMinute requests per key per
// minute, locking a key out for lockout after threshold over-budget windows.
func NewLimiter(perMinute, threshold int, lockout time.Duration) *Limiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if threshold <= 0 {
		threshold = 5
	}
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	return &Limiter{
		perWindow: perMinute,
		window:    time.Minute,
		threshold: threshold,
		lockout:   lockout,
		now:       time.Now,
		entries:   make(map[string]*limiterEntry),
	}
}

// Allow reports whether key may proceed, counting the attempt either way.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{windowStart: now}
		l.entries[key] = e
	}
	e.lastSeen = now

	if now.Before(e.lockedUntil) {
		return false
	}

	if now.Sub(e.windowStart) >= l.window {
		e.windowStart = now
		e.count = 0
	}

	e.count++
	if e.count > l.perWindow {
		e.strikes++
		if e.strikes >= l.threshold {
			e.lockedUntil = now.Add(l.lockout)
			e.strikes = 0
			slog.Warn("rate limit lockout", "key", key, "until", e.lockedUntil)
		}
		return false
	}
	return true
}

// Prune drops keys idle longer than maxIdle and returns how many were
// removed. Run periodically so one-off callers do not accumulate forever.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) >= maxIdle && now.After(e.lockedUntil) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}
