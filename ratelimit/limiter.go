// Package ratelimit provides per-key admission control for the economy
// endpoints. State lives in process memory only: a restart forgets it. That
// is acceptable because the limiter is a throttle, not a security boundary —
// the per-call and per-trade ceilings hold regardless.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is the injected throttle interface. Allow reports whether a request
// for key may proceed and, when it may not, how long the caller should wait.
// Record marks a successful attempt; rejected or invalid requests are not
// recorded so they never extend the window.
type Limiter interface {
	Allow(key string) (bool, time.Duration)
	Record(key string)
	Sweep()
}

// Cooldown enforces a minimum interval between attempts per key. Used by the
// claim, save and trade paths, which only care about call cadence.
type Cooldown struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time

	now func() time.Time
}

func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

func (c *Cooldown) Allow(key string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.last[key]
	if !ok {
		return true, 0
	}
	elapsed := c.now().Sub(last)
	if elapsed >= c.interval {
		return true, 0
	}
	return false, c.interval - elapsed
}

func (c *Cooldown) Record(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[key] = c.now()
}

// Sweep drops keys whose cooldown has fully elapsed.
func (c *Cooldown) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, last := range c.last {
		if now.Sub(last) >= c.interval {
			delete(c.last, key)
		}
	}
}

// SlidingWindow allows up to max attempts per key within a rolling window.
// Used by burst-style endpoints where a strict interval is too coarse.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   map[string][]time.Time

	now func() time.Time
}

func NewSlidingWindow(window time.Duration, max int) *SlidingWindow {
	return &SlidingWindow{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (w *SlidingWindow) Allow(key string) (bool, time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// A window with no capacity denies everything rather than panicking on
	// an empty hit list.
	if w.max <= 0 {
		return false, w.window
	}
	recent := w.pruneLocked(key)
	if len(recent) < w.max {
		return true, 0
	}
	return false, recent[0].Add(w.window).Sub(w.now())
}

func (w *SlidingWindow) Record(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hits[key] = append(w.pruneLocked(key), w.now())
}

// Sweep prunes every key and drops the empty ones to bound memory.
func (w *SlidingWindow) Sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.hits {
		if len(w.pruneLocked(key)) == 0 {
			delete(w.hits, key)
		}
	}
}

func (w *SlidingWindow) pruneLocked(key string) []time.Time {
	cutoff := w.now().Add(-w.window)
	recent := w.hits[key][:0]
	for _, t := range w.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	w.hits[key] = recent
	return recent
}
