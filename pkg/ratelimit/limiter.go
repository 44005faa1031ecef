// Package ratelimit implements per-address sliding-window admission control.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the oldest admitted attempt leaves the window.
	ResetAt time.Time
}

// RetryAfter is how long a rejected caller should wait, at least one second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetAt.Sub(now).Round(time.Second)
	if wait < time.Second {
		return time.Second
	}
	return wait
}

// Limiter admits at most Limit attempts per key within a sliding window.
// Only admitted attempts are counted.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// window is a ring of admission timestamps, oldest at head.
type window struct {
	times []time.Time
	head  int
	size  int
}

func newWindow(capacity int) *window {
	return &window{times: make([]time.Time, capacity)}
}

// evict drops timestamps at or before cutoff.
func (w *window) evict(cutoff time.Time) {
	for w.size > 0 && !w.times[w.head].After(cutoff) {
		w.times[w.head] = time.Time{}
		w.head = (w.head + 1) % len(w.times)
		w.size--
	}
}

func (w *window) push(t time.Time) {
	w.times[(w.head+w.size)%len(w.times)] = t
	w.size++
}

func (w *window) oldest() time.Time {
	return w.times[w.head]
}

// Memory is a single-process Limiter. One mutex guards all windows; the
// critical section is a few slice operations.
type Memory struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewMemory creates an in-memory limiter.
func NewMemory(limit int, period time.Duration) *Memory {
	if limit < 1 {
		limit = 1
	}
	return &Memory{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// WithClock replaces the time source, for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok {
		w = newWindow(m.limit)
		m.windows[key] = w
	}
	w.evict(now.Add(-m.period))

	if w.size >= m.limit {
		return Decision{
			Allowed:   false,
			Limit:     m.limit,
			Remaining: 0,
			ResetAt:   w.oldest().Add(m.period),
		}, nil
	}

	w.push(now)
	return Decision{
		Allowed:   true,
		Limit:     m.limit,
		Remaining: m.limit - w.size,
		ResetAt:   w.oldest().Add(m.period),
	}, nil
}

// Sweep removes keys whose window has emptied and returns how many it removed.
func (m *Memory) Sweep() int {
	cutoff := m.now().Add(-m.period)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, w := range m.windows {
		w.evict(cutoff)
		if w.size == 0 {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Len is the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// StartJanitor sweeps every interval until ctx is done.
func (m *Memory) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}
