package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowLimit(t *testing.T) {
	rl := NewSlidingWindow(5, time.Minute)
	now := time.Now()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("1.2.3.4", now.Add(time.Duration(i)*time.Second)), "request %d should be admitted", i+1)
	}

	assert.False(t, rl.Allow("1.2.3.4", now.Add(10*time.Second)), "6th request within the window must be rejected")
}

func TestSlidingWindowExpiry(t *testing.T) {
	rl := NewSlidingWindow(5, time.Minute)
	now := time.Now()

	for i := 0; i < 5; i++ {
		rl.Allow("1.2.3.4", now)
	}
	assert.False(t, rl.Allow("1.2.3.4", now.Add(59*time.Second)))

	// Once the first requests fall out of the trailing window, capacity frees up.
	assert.True(t, rl.Allow("1.2.3.4", now.Add(61*time.Second)))
}

func TestSlidingWindowRejectionNotRecorded(t *testing.T) {
	rl := NewSlidingWindow(2, time.Minute)
	now := time.Now()

	rl.Allow("k", now)
	rl.Allow("k", now)

	// Hammering while full must not extend the penalty.
	for i := 0; i < 10; i++ {
		assert.False(t, rl.Allow("k", now.Add(time.Duration(i)*time.Second)))
	}

	assert.True(t, rl.Allow("k", now.Add(61*time.Second)))
}

func TestSlidingWindowKeysIndependent(t *testing.T) {
	rl := NewSlidingWindow(1, time.Minute)
	now := time.Now()

	assert.True(t, rl.Allow("a", now))
	assert.False(t, rl.Allow("a", now))
	assert.True(t, rl.Allow("b", now))
}

func TestSlidingWindowConcurrent(t *testing.T) {
	const limit = 5
	rl := NewSlidingWindow(limit, time.Minute)
	now := time.Now()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if rl.Allow("shared", now.Add(time.Duration(i)*time.Millisecond)) {
				admitted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load(), "exactly %d of the concurrent requests may be admitted", limit)
}

func TestSlidingWindowManyKeys(t *testing.T) {
	rl := NewSlidingWindow(3, time.Minute)
	now := time.Now()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("10.0.0.%d", i)
		assert.True(t, rl.Allow(key, now))
	}
}
