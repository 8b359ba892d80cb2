// Package ratelimit coalesces bursts of calls into fewer invocations.
//
// Two strategies are provided: a trailing-edge Debouncer and a window
// Throttle. Both are safe for concurrent use and take an injectable Clock.
package ratelimit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrWait = errors.New("ratelimit: wait must be positive")
	ErrMode = errors.New("ratelimit: unknown mode")
)

// Limiter is the behaviour shared by Debouncer and Throttle.
type Limiter[T any] interface {
	Call(arg T)
	Cancel()
	Pending() int
}

// Mode selects a limiting strategy.
type Mode int

const (
	ModeThrottle Mode = iota
	ModeDebounce
)

const (
	DefaultThrottleWait = 200 * time.Millisecond
	DefaultDebounceWait = 300 * time.Millisecond
)

func (m Mode) String() string {
	switch m {
	case ModeThrottle:
		return "throttle"
	case ModeDebounce:
		return "debounce"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// DefaultWait returns the wait used when none is configured.
func (m Mode) DefaultWait() time.Duration {
	if m == ModeDebounce {
		return DefaultDebounceWait
	}
	return DefaultThrottleWait
}

// ParseMode parses "throttle" or "debounce". The empty string is throttle.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "throttle":
		return ModeThrottle, nil
	case "debounce":
		return ModeDebounce, nil
	default:
		return ModeThrottle, fmt.Errorf("ratelimit: unknown mode %q", s)
	}
}

// New builds the limiter for mode. wait must be positive.
func New[T any](mode Mode, wait time.Duration, clock Clock, fn func(T)) (Limiter[T], error) {
	if wait <= 0 {
		return nil, fmt.Errorf("%w, got %s", ErrWait, wait)
	}
	if fn == nil {
		return nil, fmt.Errorf("ratelimit: nil func")
	}
	switch mode {
	case ModeThrottle:
		return NewThrottle(wait, clock, fn), nil
	case ModeDebounce:
		return NewDebouncer(wait, clock, fn), nil
	default:
		return nil, fmt.Errorf("%w %s", ErrMode, mode)
	}
}
