package autocomplete

// NoHighlight is the Highlighted value when no row is highlighted.
const NoHighlight = -1

// MenuState is the observable state of the result list.
type MenuState struct {
	Open        bool
	Highlighted int
}

// Menu is the Closed / Open(highlight) state machine over the current
// result list. Navigation wraps in both directions. The zero value is
// closed; use NewMenu to get NoHighlight set.
type Menu struct {
	open        bool
	highlighted int
}

func NewMenu() Menu {
	return Menu{highlighted: NoHighlight}
}

func (m *Menu) State() MenuState {
	return MenuState{Open: m.open, Highlighted: m.highlighted}
}

// Open opens the menu with nothing highlighted. It reports whether the
// state changed.
func (m *Menu) Open() bool {
	if m.open && m.highlighted == NoHighlight {
		return false
	}
	m.open = true
	m.highlighted = NoHighlight
	return true
}

// Close closes the menu. It reports whether the state changed.
func (m *Menu) Close() bool {
	if !m.open {
		return false
	}
	m.open = false
	m.highlighted = NoHighlight
	return true
}

// Move shifts the highlight by delta over n rows, wrapping at both ends.
// From no highlight, a positive delta lands on the first row and a negative
// one on the last. Closed menus and empty lists ignore navigation.
func (m *Menu) Move(delta, n int) bool {
	if !m.open || n == 0 || delta == 0 {
		return false
	}
	var next int
	switch {
	case m.highlighted == NoHighlight && delta > 0:
		next = (delta - 1) % n
	case m.highlighted == NoHighlight:
		next = ((n+delta)%n + n) % n
	default:
		next = ((m.highlighted+delta)%n + n) % n
	}
	if next == m.highlighted {
		return false
	}
	m.highlighted = next
	return true
}

// Highlight sets the highlight directly, e.g. on pointer hover. Indexes
// outside [0, n) are ignored.
func (m *Menu) Highlight(i, n int) bool {
	if !m.open || i < 0 || i >= n || i == m.highlighted {
		return false
	}
	m.highlighted = i
	return true
}
