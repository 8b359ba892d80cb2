package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/otel"
)

func TestDebugOverlayNilRing(t *testing.T) {
	result := debugOverlay(nil, autocomplete.State{}, 80, 24)
	if result != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", result)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	now := time.Now()
	for _, k := range []otel.EventKind{
		otel.KindSearchSchedule, otel.KindSearchSchedule, otel.KindSearchDispatch,
		otel.KindSearchComplete, otel.KindSearchDiscard, otel.KindMenuOpen,
	} {
		ring.Push(otel.Event{Kind: k, Time: now})
	}

	result := debugOverlay(ring, autocomplete.State{Dispatched: 3, Settled: 1, Pending: "lon"}, 80, 40)

	for _, want := range []string{
		"Search Stats",
		"2 scheduled, 1 dispatched, 0 cancelled",
		"1 complete, 1 discarded, 0 errors",
		"1 opened, 0 closed",
		`2 in flight, pending "lon"`,
		"6 / 64 events",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("overlay should contain %q, got:\n%s", want, result)
		}
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindSearchDiscard, Time: time.Now(), Query: "lon", Reason: "stale"})
	ring.Push(otel.Event{Kind: otel.KindSearchError, Time: time.Now(), Err: "timeout"})
	ring.Push(otel.Event{Kind: otel.KindSearchDispatch, Time: time.Now(), QueryID: "abcdef1234567890"})

	result := debugOverlay(ring, autocomplete.State{}, 80, 40)

	for _, want := range []string{"Recent Events", `"lon"`, "(stale)", "ERR:timeout", "qid:abcdef12"} {
		if !strings.Contains(result, want) {
			t.Errorf("overlay should contain %q, got:\n%s", want, result)
		}
	}
}

func TestDebugOverlayLastQueryTrail(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	now := time.Now()
	ring.Push(otel.Event{Kind: otel.KindSearchDispatch, Time: now, Query: "par", QueryID: "11111111aaaa"})
	ring.Push(otel.Event{Kind: otel.KindSearchDispatch, Time: now, Query: "pari", QueryID: "22222222bbbb"})
	ring.Push(otel.Event{Kind: otel.KindSearchDiscard, Time: now, Query: "par", QueryID: "11111111aaaa", Reason: "stale"})
	ring.Push(otel.Event{Kind: otel.KindSearchComplete, Time: now, Query: "pari", QueryID: "22222222bbbb", Count: 3})

	qid, trail := lastQuery(ring)
	if qid != "22222222bbbb" {
		t.Fatalf("lastQuery id = %q, want the newest dispatch", qid)
	}
	if len(trail) != 2 || trail[0].Kind != otel.KindSearchDispatch || trail[1].Kind != otel.KindSearchComplete {
		t.Errorf("trail = %+v, want dispatch then complete", trail)
	}

	result := debugOverlay(ring, autocomplete.State{}, 80, 40)
	if !strings.Contains(result, "Last Query 22222222") {
		t.Errorf("overlay should name the last query, got:\n%s", result)
	}
}

func TestDebugOverlayNoDispatchNoTrail(t *testing.T) {
	ring := otel.NewRingBuffer(8)
	ring.Push(otel.Event{Kind: otel.KindSearchSchedule, Time: time.Now(), Query: "x"})

	if qid, trail := lastQuery(ring); qid != "" || trail != nil {
		t.Errorf("lastQuery = %q, %v; want nothing before a dispatch", qid, trail)
	}
	if strings.Contains(debugOverlay(ring, autocomplete.State{}, 80, 40), "Last Query") {
		t.Error("overlay should omit the last query section")
	}
}

func TestDebugOverlayTruncation(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindSearchSchedule, Time: time.Now()})
	}

	result := debugOverlay(ring, autocomplete.State{}, 80, 10)
	if result == "" {
		t.Error("overlay should still render with small height")
	}
	if lines := strings.Count(result, "\n"); lines > 20 {
		t.Errorf("overlay should be truncated, got %d lines", lines)
	}
}

func TestInFlight(t *testing.T) {
	if got := inFlight(autocomplete.State{Dispatched: 1, Settled: 4}); got != 0 {
		t.Errorf("inFlight = %d, want 0", got)
	}
}

func TestDebugToggle(t *testing.T) {
	ring := otel.NewRingBuffer(16)
	app := NewApp(Deps{Controller: &fakeController{}, Ring: ring}, Settings{})
	app.ready = true
	app.width = 80
	app.height = 24

	if app.debug {
		t.Error("debug should be hidden initially")
	}

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	updated := model.(App)
	if !updated.debug {
		t.Error("ctrl+d should show debug overlay")
	}
	if view := updated.View(); !strings.Contains(view, "[DEBUG]") {
		t.Errorf("debug view should contain '[DEBUG]', got:\n%s", view)
	}

	model, _ = updated.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if model.(App).debug {
		t.Error("esc should hide debug overlay")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{0, "0ms"},
		{50 * time.Millisecond, "50ms"},
		{999 * time.Millisecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{30 * time.Second, "30.0s"},
		{90 * time.Second, "2m"},
		{5 * time.Minute, "5m"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.dur); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.dur, got, tt.want)
		}
	}
}

func TestFormatAgeNegative(t *testing.T) {
	if got := formatAge(-5 * time.Second); got != "0ms" {
		t.Errorf("formatAge(-5s) = %q, want \"0ms\"", got)
	}
}

func TestTraceRecordsMessages(t *testing.T) {
	orig := otel.TraceEnabled()
	t.Cleanup(func() { otel.SetTraceEnabled(orig) })
	otel.SetTraceEnabled(true)

	ring := otel.NewRingBuffer(16)
	events := otel.NewNullLogger()
	events.SetRingBuffer(ring)

	app := NewApp(Deps{Controller: &fakeController{}, Events: events, Ring: ring}, Settings{})
	app.Update(FeaturesChanged{})
	events.Close()

	traced := ring.Filter(func(e otel.Event) bool { return e.Kind == otel.KindMsgReceived })
	if len(traced) != 1 || traced[0].Msg != "ui.FeaturesChanged" {
		t.Errorf("traced = %+v, want one ui.FeaturesChanged", traced)
	}
}
