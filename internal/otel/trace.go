package otel

import (
	"os"
	"sync/atomic"
)

var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("GEOCOMPLETE_TRACE") != "")
}

// TraceEnabled reports whether message tracing is on. When true the TUI
// records every message it receives as trace.msg_received.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides GEOCOMPLETE_TRACE.
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}
