package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of a single rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
}

type window struct {
	count   int
	startAt time.Time
}

// Limiter is a fixed-window counter per key. A denied check returns
// immediately; callers reject the request (HTTP 429), there is no blocking.
type Limiter struct {
	maxRequests int
	windowSize  time.Duration
	now         func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type Option func(*Limiter)

// WithClock substitutes the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(maxRequests int, windowSize time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		maxRequests: maxRequests,
		windowSize:  windowSize,
		now:         time.Now,
		windows:     make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check increments the counter for key and reports whether the call is
// allowed within the current window. Expired windows reset to zero, and
// stale keys are reclaimed opportunistically on every check.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictExpired(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.startAt) >= l.windowSize {
		w = &window{startAt: now}
		l.windows[key] = w
	}

	if w.count >= l.maxRequests {
		return Result{Allowed: false, Remaining: 0}
	}
	w.count++
	return Result{Allowed: true, Remaining: l.maxRequests - w.count}
}

// Len reports the number of tracked keys, expired entries included until the
// next check evicts them.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) evictExpired(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.startAt) >= l.windowSize {
			delete(l.windows, key)
		}
	}
}
