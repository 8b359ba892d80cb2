package ratelimit

import "time"

// Timer is a scheduled callback that can be stopped before it runs.
type Timer interface {
	// Stop prevents the callback from running. It reports false if the
	// callback already started or the timer was already stopped.
	Stop() bool
}

// Clock supplies the current time and schedules callbacks.
// Tests substitute a manual clock (see ratelimittest).
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is the wall clock backed by the time package.
var RealClock Clock = realClock{}
