// Package limiter implements the per-session sliding-window admission check
// that protects the server from command flooding. Each session owns exactly
// one Limiter; state is never shared across sessions.
package limiter

import (
	"sync"
	"time"
)

// Limiter admits at most max events within a trailing window. It records the
// timestamps of admitted events and evicts the ones that have aged out of the
// window on every call.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	stamps []time.Time
}

// New creates a Limiter admitting max events per window. Non-positive inputs
// are clamped to a single event per second.
func New(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		max:    max,
		window: window,
		stamps: make([]time.Time, 0, max),
	}
}

// Allow reports whether an event at the given instant is admitted. Admitted
// events are recorded; rejected events leave the window untouched.
func (l *Limiter) Allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(now)
	if len(l.stamps) >= l.max {
		return false
	}
	l.stamps = append(l.stamps, now)
	return true
}

// Wait returns how long the caller must wait from now until the oldest
// recorded event leaves the window, or zero if the window has capacity.
func (l *Limiter) Wait(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(now)
	if len(l.stamps) < l.max {
		return 0
	}
	wait := l.window - now.Sub(l.stamps[0])
	if wait < 0 {
		return 0
	}
	return wait
}

// evict drops timestamps older than now minus the window. Caller holds l.mu.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
