package ratelimit

import (
	"sync"
	"time"
)

// Debouncer runs f with the latest argument once wait has elapsed since the
// most recent Call. Earlier pending arguments are dropped.
type Debouncer[T any] struct {
	wait  time.Duration
	clock Clock
	fn    func(T)

	mu      sync.Mutex
	timer   Timer
	pending *invocation[T]
}

type invocation[T any] struct {
	arg   T
	timer Timer
}

// NewDebouncer creates a trailing-edge debouncer.
func NewDebouncer[T any](wait time.Duration, clock Clock, fn func(T)) *Debouncer[T] {
	if clock == nil {
		clock = RealClock
	}
	return &Debouncer[T]{wait: wait, clock: clock, fn: fn}
}

// Call schedules fn(arg), replacing whatever was pending.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	inv := &invocation[T]{arg: arg}
	d.pending = inv
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(inv) })
}

func (d *Debouncer[T]) fire(inv *invocation[T]) {
	d.mu.Lock()
	if d.pending != inv {
		// Replaced or cancelled after the timer started.
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.fn(inv.arg)
}

// Cancel drops the pending invocation, if any.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.pending = nil
}

// Pending returns 1 if an invocation is scheduled, otherwise 0.
func (d *Debouncer[T]) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		return 1
	}
	return 0
}
