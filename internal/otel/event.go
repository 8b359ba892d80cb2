// Package otel records the search lifecycle as JSONL events.
//
// Events are written asynchronously by a drain goroutine. A RingBuffer can be
// attached to keep recent events in memory for the TUI debug overlay.
package otel

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Level is event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind is "<subsystem>.<action>".
type EventKind string

const (
	// Query lifecycle. A search moves schedule -> dispatch -> one of
	// complete, discard or error. cancel marks a schedule that never ran.
	KindSearchSchedule EventKind = "search.schedule"
	KindSearchDispatch EventKind = "search.dispatch"
	KindSearchComplete EventKind = "search.complete"
	KindSearchDiscard  EventKind = "search.discard"
	KindSearchError    EventKind = "search.error"
	KindSearchCancel   EventKind = "search.cancel"

	KindMenuOpen  EventKind = "menu.open"
	KindMenuClose EventKind = "menu.close"

	KindSelect EventKind = "ui.select"
	KindKey    EventKind = "ui.key"

	KindConfigReload EventKind = "config.reload"
	KindStoreError   EventKind = "store.error"

	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"

	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is one JSONL record. Only Kind is required.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "engine", "ui", "cli", "main"
	SessionID string         `json:"session_id,omitempty"`
	QueryID   string         `json:"qid,omitempty"` // one per dispatched request
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	Query     string         `json:"query,omitempty"`
	Reason    string         `json:"reason,omitempty"` // why a search was discarded or cancelled
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to dur_ms.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
