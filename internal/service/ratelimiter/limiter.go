// Package ratelimiter gates per-user AI requests with a sliding window and a
// failure cooldown.
package ratelimiter

import (
	"sync"
	"time"
)

// Status is a point-in-time view of a user's quota, used by /status.
type Status struct {
	Recent            int
	Remaining         int
	CooldownRemaining time.Duration
}

// Limiter tracks request timestamps and last AI failure per user. All state
// is in-process; a restart clears it.
type Limiter struct {
	window   time.Duration
	max      int
	cooldown time.Duration

	mu          sync.Mutex
	requests    map[int64][]time.Time
	lastFailure map[int64]time.Time

	now func() time.Time
}

// New builds a limiter allowing max requests per window, with a cooldown
// applied after any AI backend failure.
func New(window time.Duration, max int, cooldown time.Duration) *Limiter {
	return &Limiter{
		window:      window,
		max:         max,
		cooldown:    cooldown,
		requests:    map[int64][]time.Time{},
		lastFailure: map[int64]time.Time{},
		now:         time.Now,
	}
}

// Allow prunes expired entries and reports whether the user may issue a new
// AI request. Pruning is lazy: the window is only evaluated here.
func (l *Limiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	l.prune(userID, now)
	if len(l.requests[userID]) >= l.max {
		return false
	}
	if fail, ok := l.lastFailure[userID]; ok && now.Sub(fail) < l.cooldown {
		return false
	}
	return true
}

// Record appends the current timestamp to the user's request log.
func (l *Limiter) Record(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests[userID] = append(l.requests[userID], l.now())
}

// RecordFailure starts the user's failure cooldown.
func (l *Limiter) RecordFailure(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastFailure[userID] = l.now()
}

// Status reports the user's current usage and cooldown state.
func (l *Limiter) Status(userID int64) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	l.prune(userID, now)
	recent := len(l.requests[userID])
	remaining := l.max - recent
	if remaining < 0 {
		remaining = 0
	}
	var cd time.Duration
	if fail, ok := l.lastFailure[userID]; ok {
		if left := l.cooldown - now.Sub(fail); left > 0 {
			cd = left
		}
	}
	return Status{Recent: recent, Remaining: remaining, CooldownRemaining: cd}
}

// Reset clears the user's request log and cooldown.
func (l *Limiter) Reset(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, userID)
	delete(l.lastFailure, userID)
}

func (l *Limiter) prune(userID int64, now time.Time) {
	kept := l.requests[userID][:0]
	for _, ts := range l.requests[userID] {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.requests, userID)
		return
	}
	l.requests[userID] = kept
}

// WithClock overrides the time source; used by tests to simulate the window.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}
