// Package ratelimit provides an in-memory sliding-window rate limiter keyed
// by client address. State is process-local: a restart resets all counters,
// and multiple instances do not share limits.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow admits at most limit requests per key within the trailing
// window. It is a strict counting window, not a token bucket: a burst that
// would exceed the limit at the boundary is rejected outright.
type SlidingWindow struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewSlidingWindow creates a limiter admitting limit requests per window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow reports whether a request from key may proceed at time now. Accepted
// requests are recorded; rejected ones are not. The prune-check-append
// sequence runs under the lock so concurrent requests for the same key cannot
// both be admitted into the last remaining slot.
func (rl *SlidingWindow) Allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.window)

	requests := rl.requests[key]
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	requests = requests[i:]

	if len(requests) >= rl.limit {
		rl.requests[key] = requests
		return false
	}

	rl.requests[key] = append(requests, now)
	return true
}
