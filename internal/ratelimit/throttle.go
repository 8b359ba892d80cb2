package ratelimit

import (
	"sync"
	"time"
)

// Throttle partitions time into fixed windows of length wait, aligned to
// floor(now/wait)*wait. Each call replaces the pending invocation for its
// window, which runs on the window's trailing edge. Invocations pending in
// other windows are left alone.
type Throttle[T any] struct {
	wait  time.Duration
	clock Clock
	fn    func(T)

	mu      sync.Mutex
	windows map[int64]*invocation[T]
}

// NewThrottle creates a window throttle.
func NewThrottle[T any](wait time.Duration, clock Clock, fn func(T)) *Throttle[T] {
	if clock == nil {
		clock = RealClock
	}
	return &Throttle[T]{
		wait:    wait,
		clock:   clock,
		fn:      fn,
		windows: make(map[int64]*invocation[T]),
	}
}

// Window returns the start of the window containing t, in unix nanoseconds.
func (t *Throttle[T]) Window(at time.Time) int64 {
	w := int64(t.wait)
	return at.UnixNano() / w * w
}

// Call schedules fn(arg) at the end of the current window.
func (t *Throttle[T]) Call(arg T) {
	now := t.clock.Now()
	window := t.Window(now)
	delay := time.Duration(window + int64(t.wait) - now.UnixNano())

	t.mu.Lock()
	if prev, ok := t.windows[window]; ok {
		prev.timer.Stop()
		delete(t.windows, window)
	}
	if delay <= 0 {
		t.mu.Unlock()
		t.fn(arg)
		return
	}
	inv := &invocation[T]{arg: arg}
	t.windows[window] = inv
	inv.timer = t.clock.AfterFunc(delay, func() { t.fire(window, inv) })
	t.mu.Unlock()
}

func (t *Throttle[T]) fire(window int64, inv *invocation[T]) {
	t.mu.Lock()
	if t.windows[window] != inv {
		t.mu.Unlock()
		return
	}
	delete(t.windows, window)
	t.mu.Unlock()

	t.fn(inv.arg)
}

// Cancel drops every pending invocation.
func (t *Throttle[T]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for window, inv := range t.windows {
		inv.timer.Stop()
		delete(t.windows, window)
	}
}

// Pending returns the number of windows with a scheduled invocation.
func (t *Throttle[T]) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}
