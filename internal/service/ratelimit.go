package service

import (
	"sync"
	"time"
)

// KeyLimiter enforces per-key request budgets with a fixed one-minute
// window. Limits differ per key, so this sits behind authentication where
// the key's configured rate is known; IP-level limiting stays in the router
// middleware.
type KeyLimiter struct {
	mu      sync.Mutex
	windows map[int64]*keyWindow
}

type keyWindow struct {
	start time.Time
	count int
}

const limiterSweepSize = 4096

func NewKeyLimiter() *KeyLimiter {
	return &KeyLimiter{windows: make(map[int64]*keyWindow)}
}

// Allow records one request for the key and reports whether it fits inside
// the key's per-minute budget. A non-positive limit disables limiting for
// the key.
func (l *KeyLimiter) Allow(keyID int64, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[keyID]
	if !ok || now.Sub(w.start) >= time.Minute {
		if len(l.windows) >= limiterSweepSize {
			l.sweepLocked(now)
		}
		l.windows[keyID] = &keyWindow{start: now, count: 1}
		return true
	}

	w.count++
	return w.count <= perMinute
}

// Retry reports how long the key must wait before its window resets. Only
// meaningful right after Allow returned false.
func (l *KeyLimiter) Retry(keyID int64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[keyID]
	if !ok {
		return 0
	}
	remaining := time.Minute - time.Since(w.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// sweepLocked drops windows that expired, bounding the map for long-running
// processes with many short-lived keys. Caller holds the lock.
func (l *KeyLimiter) sweepLocked(now time.Time) {
	for id, w := range l.windows {
		if now.Sub(w.start) >= time.Minute {
			delete(l.windows, id)
		}
	}
}
