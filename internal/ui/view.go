package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/geocode"
)

// rowsTop is the screen line of the first result row: the bordered input
// box takes three lines.
const rowsTop = 3

type rowData struct {
	Feature geocode.Feature
	Index   int
	Active  bool
	Term    string
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.debug {
		return debugOverlay(a.deps.Ring, a.state, a.width, a.height) + "\n" + debugStatusBar(a.width)
	}

	var b strings.Builder
	b.WriteString(InputBox.Width(max(a.width-2, 12)).Render(a.input.View()))
	b.WriteString("\n")

	switch {
	case a.state.Menu.Open && len(a.features) > 0:
		b.WriteString(a.renderRows())
	case a.selected != nil:
		b.WriteString(a.renderSelected())
	default:
		b.WriteString(a.renderRecent())
	}

	body := b.String()
	used := lipgloss.Height(body)

	footer := ""
	if a.err != nil {
		footer += ErrorStyle.Width(a.width).Render("Error: "+a.err.Error()) + "\n"
	}
	footer += a.renderStatusBar()

	if gap := a.height - used - lipgloss.Height(footer); gap > 0 {
		body += strings.Repeat("\n", gap)
	}
	return body + "\n" + footer
}

// window returns the slice of rows that fits on screen, scrolled so the
// highlighted row is visible.
func (a App) window() (start, end int) {
	n := len(a.features)
	limit := a.settings.MaxRows
	if limit <= 0 || limit > n {
		limit = n
	}
	h := a.state.Menu.Highlighted
	if h >= limit {
		start = h - limit + 1
	}
	return start, start + limit
}

func (a App) renderRows() string {
	start, end := a.window()
	width := max(a.width-4, 10)

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		active := i == a.state.Menu.Highlighted
		text := a.renderRow(rowData{
			Feature: a.features[i],
			Index:   i,
			Active:  active,
			Term:    a.state.Input,
		})
		text = truncateRunes(text, width)
		if active {
			lines = append(lines, ActiveRow.Render(text))
		} else {
			lines = append(lines, NormalRow.Render(text))
		}
	}
	return strings.Join(lines, "\n")
}

func (a App) renderRow(d rowData) string {
	var sb strings.Builder
	if err := a.rowTmpl.Execute(&sb, d); err != nil {
		return d.Feature.Label
	}
	return strings.ReplaceAll(sb.String(), "\n", " ")
}

func (a App) renderSelected() string {
	f := a.selected
	line := "✓ " + f.Label
	if p, ok := f.Point(); ok {
		line += RowDetail.Render(fmt.Sprintf("  %.5f, %.5f", p.Lat, p.Lon))
	}
	return SelectedBanner.Render(line)
}

func (a App) renderRecent() string {
	if len(a.recent) == 0 {
		return ""
	}
	limit := a.settings.RecentLimit
	if limit <= 0 || limit > len(a.recent) {
		limit = len(a.recent)
	}
	width := max(a.width-4, 10)

	lines := []string{SectionHeader.Render("Recent")}
	for _, s := range a.recent[:limit] {
		detail := humanize.Time(s.SelectedAt)
		if s.Uses > 1 {
			detail = fmt.Sprintf("%d× · %s", s.Uses, detail)
		}
		lines = append(lines, RecentRow.Render(truncateRunes(s.Label, width-lipgloss.Width(detail)-3)+"  "+RowDetail.Render(detail)))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderStatusBar() string {
	var left string
	switch {
	case a.state.Loading:
		left = " " + a.spin.View() + " searching "
	case a.state.Menu.Open && len(a.features) > 0:
		pos := "-"
		if h := a.state.Menu.Highlighted; h != autocomplete.NoHighlight {
			pos = fmt.Sprint(h + 1)
		}
		left = fmt.Sprintf(" %s/%d ", pos, len(a.features))
	case len(a.features) > 0:
		left = fmt.Sprintf(" %d results ", len(a.features))
	default:
		left = " "
	}

	keys := []string{
		StatusBarKey.Render("↑/↓") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("Enter") + StatusBarText.Render(":select"),
		StatusBarKey.Render("Esc") + StatusBarText.Render(":close"),
		StatusBarKey.Render("^D") + StatusBarText.Render(":debug"),
	}
	hints := strings.Join(keys, " ")

	padding := max(a.width-lipgloss.Width(left)-lipgloss.Width(hints)-2, 0)
	return StatusBar.Width(a.width).Render(left + strings.Repeat(" ", padding) + hints)
}

// truncateRunes shortens s to at most n runes, ending in "…" when cut.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
