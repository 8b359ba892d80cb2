package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/otel"
)

// debugPanelChrome is the number of lines taken by DebugPanel's border and
// vertical padding.
const debugPanelChrome = 4

// debugOverlay renders search lifecycle counters and recent events.
// Returns "" if ring is nil.
func debugOverlay(ring *otel.RingBuffer, st autocomplete.State, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Search Stats"))
	lines = append(lines, fmt.Sprintf("  Searches:   %d scheduled, %d dispatched, %d cancelled",
		stats[otel.KindSearchSchedule], stats[otel.KindSearchDispatch], stats[otel.KindSearchCancel]))
	lines = append(lines, fmt.Sprintf("  Outcomes:   %d complete, %d discarded, %d errors",
		stats[otel.KindSearchComplete], stats[otel.KindSearchDiscard], stats[otel.KindSearchError]))
	lines = append(lines, fmt.Sprintf("  Menu:       %d opened, %d closed, %d selected",
		stats[otel.KindMenuOpen], stats[otel.KindMenuClose], stats[otel.KindSelect]))
	lines = append(lines, fmt.Sprintf("  Engine:     %d in flight, pending %q",
		inFlight(st), st.Pending))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	if qid, trail := lastQuery(ring); qid != "" {
		lines = append(lines, DebugHeaderStyle.Render("Last Query "+shortID(qid)))
		for _, e := range trail {
			lines = append(lines, eventLine(e))
		}
		lines = append(lines, "")
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		lines = append(lines, eventLine(e))
	}

	maxHeight := max(height-debugPanelChrome, 1)
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := min(76, width-4)
	if panelWidth < 20 {
		panelWidth = 20
	}
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// lastQuery returns the id of the newest dispatched search and every
// buffered event for it.
func lastQuery(ring *otel.RingBuffer) (string, []otel.Event) {
	sent := ring.Filter(func(e otel.Event) bool {
		return e.Kind == otel.KindSearchDispatch && e.QueryID != ""
	})
	if len(sent) == 0 {
		return "", nil
	}
	qid := sent[len(sent)-1].QueryID
	return qid, ring.Query(qid)
}

func eventLine(e otel.Event) string {
	line := fmt.Sprintf("  %6s  %-18s", formatAge(time.Since(e.Time)), string(e.Kind))
	if e.Query != "" {
		line += fmt.Sprintf("  %q", truncateRunes(e.Query, 24))
	}
	if e.Reason != "" {
		line += "  (" + e.Reason + ")"
	}
	if e.Msg != "" {
		line += "  " + truncateRunes(e.Msg, 40)
	}
	if e.Err != "" {
		line += "  ERR:" + truncateRunes(e.Err, 30)
	}
	if e.QueryID != "" {
		line += "  qid:" + shortID(e.QueryID)
	}
	return line
}

func shortID(qid string) string {
	if len(qid) > 8 {
		return qid[:8]
	}
	return qid
}

func inFlight(st autocomplete.State) uint64 {
	if st.Settled > st.Dispatched {
		return 0
	}
	return st.Dispatched - st.Settled
}

// formatAge formats a duration compactly. Negative durations from clock
// skew clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("^D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
