package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownEnforcesInterval(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCooldown(10 * time.Second)
	c.now = func() time.Time { return now }

	ok, _ := c.Allow("w1")
	assert.True(t, ok, "first attempt is always allowed")

	c.Record("w1")
	ok, retryAfter := c.Allow("w1")
	assert.False(t, ok)
	assert.Equal(t, 10*time.Second, retryAfter)

	now = now.Add(4 * time.Second)
	ok, retryAfter = c.Allow("w1")
	assert.False(t, ok)
	assert.Equal(t, 6*time.Second, retryAfter)

	now = now.Add(6 * time.Second)
	ok, _ = c.Allow("w1")
	assert.True(t, ok, "cooldown has elapsed")
}

func TestCooldownKeysAreIndependent(t *testing.T) {
	c := NewCooldown(time.Minute)
	c.Record("w1")

	ok, _ := c.Allow("w2")
	assert.True(t, ok, "one wallet's cooldown must not throttle another")
}

func TestCooldownSweepEvictsExpiredKeys(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewCooldown(10 * time.Second)
	c.now = func() time.Time { return now }

	c.Record("old")
	now = now.Add(11 * time.Second)
	c.Record("fresh")

	c.Sweep()
	assert.NotContains(t, c.last, "old")
	assert.Contains(t, c.last, "fresh")
}

func TestSlidingWindowAllowsBurstsUpToMax(t *testing.T) {
	now := time.Unix(1000, 0)
	w := NewSlidingWindow(time.Minute, 3)
	w.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := w.Allow("w1")
		assert.True(t, ok)
		w.Record("w1")
		now = now.Add(time.Second)
	}

	ok, retryAfter := w.Allow("w1")
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))

	// Oldest hit leaves the window; one slot frees up.
	now = now.Add(time.Minute)
	ok, _ = w.Allow("w1")
	assert.True(t, ok)
}

func TestSlidingWindowZeroCapacityDeniesWithoutPanic(t *testing.T) {
	for _, max := range []int{0, -1} {
		w := NewSlidingWindow(time.Minute, max)
		ok, retryAfter := w.Allow("w1")
		assert.False(t, ok)
		assert.Equal(t, time.Minute, retryAfter)
	}
}

func TestSlidingWindowSweepDropsIdleKeys(t *testing.T) {
	now := time.Unix(1000, 0)
	w := NewSlidingWindow(time.Minute, 3)
	w.now = func() time.Time { return now }

	w.Record("w1")
	now = now.Add(2 * time.Minute)
	w.Record("w2")

	w.Sweep()
	assert.NotContains(t, w.hits, "w1")
	assert.Contains(t, w.hits, "w2")
}
