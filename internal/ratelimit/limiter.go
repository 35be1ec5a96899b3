// Package ratelimit is an in-process sliding-window counter used to gate
// abusive write traffic. It is advisory: endpoints opt in by calling Allow.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most Limit actions per key within a trailing Window.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
}

// New builds a limiter with the real clock.
func New(limit int, window time.Duration) *Limiter {
	return NewWithClock(limit, window, time.Now)
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(limit int, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     now,
		buckets: make(map[string][]time.Time),
	}
}

// Allow records an action for key and reports whether it is within the
// limit. Expired timestamps are pruned on each call; the read-prune-append
// cycle runs under one lock so concurrent callers cannot undercount.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	old := l.buckets[key]
	bucket := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			bucket = append(bucket, t)
		}
	}
	if len(bucket) >= l.limit {
		l.buckets[key] = bucket
		return false
	}
	l.buckets[key] = append(bucket, now)
	return true
}
