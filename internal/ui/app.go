package ui

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/logging"
	"github.com/abelbrown/geocomplete/internal/otel"
	"github.com/abelbrown/geocomplete/internal/store"
)

// DefaultRowTemplate renders the label followed by the Pelias layer.
const DefaultRowTemplate = `{{.Feature.Label}}{{with index .Feature.Properties "layer"}} ({{.}}){{end}}`

// Controller is the part of the engine the UI drives.
// *autocomplete.Engine implements it.
type Controller interface {
	InputChanged(value string, reason autocomplete.ChangeReason)
	Navigate(delta int)
	Highlight(i int)
	OpenMenu()
	CloseMenu()
	Commit()
	Select(i int)
}

// Settings are the config-driven parts of the UI.
type Settings struct {
	Placeholder string
	Value       string
	AutoFocus   bool
	RowTemplate string
	MaxRows     int
	RecentLimit int
}

// Deps wires the App to the engine and persistence. Only Controller is
// required.
type Deps struct {
	Controller Controller
	// LoadRecent returns a Cmd producing RecentLoaded.
	LoadRecent func() tea.Cmd
	// SaveSelection returns a Cmd producing SelectionSaved.
	SaveSelection func(f geocode.Feature, term string) tea.Cmd
	Events        *otel.Logger
	Ring          *otel.RingBuffer
}

// App is the root Bubble Tea model. It never reads engine state directly;
// everything arrives as messages from a Bridge.
type App struct {
	deps     Deps
	settings Settings
	rowTmpl  *template.Template

	input textinput.Model
	spin  spinner.Model

	features []geocode.Feature
	state    autocomplete.State
	recent   []store.Selection
	selected *geocode.Feature
	err      error

	// committed is the input value when the last commit was requested.
	committed  string
	committing bool

	debug  bool
	width  int
	height int
	ready  bool
}

// NewApp builds the model. An invalid row template falls back to
// DefaultRowTemplate.
func NewApp(deps Deps, s Settings) App {
	in := textinput.New()
	in.Prompt = "› "
	in.CharLimit = 256
	in.SetValue(s.Value)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = SpinnerStyle

	a := App{
		deps:  deps,
		input: in,
		spin:  sp,
		state: autocomplete.State{Menu: autocomplete.MenuState{Highlighted: autocomplete.NoHighlight}},
	}
	a.applySettings(s)
	if s.AutoFocus {
		a.input.Focus()
	}
	return a
}

func (a *App) applySettings(s Settings) {
	if s.MaxRows <= 0 {
		s.MaxRows = 10
	}
	a.settings = s
	a.input.Placeholder = s.Placeholder

	src := s.RowTemplate
	if src == "" {
		src = DefaultRowTemplate
	}
	tmpl, err := template.New("row").Parse(src)
	if err != nil {
		logging.Warn("row template rejected", "err", err)
		tmpl = template.Must(template.New("row").Parse(DefaultRowTemplate))
	}
	a.rowTmpl = tmpl
}

// Init starts the cursor and spinner, applies the initial value and loads
// history.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, a.spin.Tick}
	if v := strings.TrimSpace(a.settings.Value); v != "" && a.deps.Controller != nil {
		ctrl := a.deps.Controller
		cmds = append(cmds, func() tea.Msg {
			ctrl.InputChanged(v, autocomplete.ReasonSetValue)
			return nil
		})
	}
	if a.deps.LoadRecent != nil {
		cmds = append(cmds, a.deps.LoadRecent())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		if _, tick := msg.(spinner.TickMsg); !tick {
			a.deps.Events.Emit(otel.Event{
				Level: otel.LevelDebug,
				Kind:  otel.KindMsgReceived,
				Comp:  "ui",
				Msg:   fmt.Sprintf("%T", msg),
			})
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.MouseMsg:
		return a.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(msg.Width-8, 10)
		a.ready = true
		return a, nil

	case FeaturesChanged:
		a.features = msg.Features
		return a, nil

	case StateChanged:
		a.state = msg.State
		return a, nil

	case Selected:
		term := strings.TrimSpace(a.input.Value())
		typed := false
		if a.committing {
			term = strings.TrimSpace(a.committed)
			typed = a.input.Value() != a.committed
			a.committing = false
		}
		f := msg.Feature
		if !typed {
			a.selected = &f
			a.input.SetValue(f.Label)
			a.input.CursorEnd()
		}
		if a.deps.SaveSelection != nil {
			return a, a.deps.SaveSelection(f, term)
		}
		return a, nil

	case SelectionSaved:
		if msg.Err != nil {
			a.err = fmt.Errorf("save selection: %w", msg.Err)
			return a, nil
		}
		if a.deps.LoadRecent != nil {
			return a, a.deps.LoadRecent()
		}
		return a, nil

	case RecentLoaded:
		if msg.Err != nil {
			logging.Warn("load history failed", "err", msg.Err)
			return a, nil
		}
		a.recent = msg.Selections
		return a, nil

	case SearchFailed:
		a.err = msg.Err
		return a, nil

	case ConfigReloaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		value := a.settings.Value
		a.applySettings(msg.Settings)
		a.settings.Value = value
		a.deps.Events.Emit(otel.Event{Kind: otel.KindConfigReload, Comp: "ui", Msg: "settings applied"})
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := a.deps.Controller

	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit

	case "ctrl+d":
		a.debug = !a.debug
		return a, nil

	case "esc":
		if a.debug {
			a.debug = false
			return a, nil
		}
		if a.state.Menu.Open {
			ctrl.CloseMenu()
			return a, nil
		}
		if a.input.Value() != "" {
			a.input.SetValue("")
			a.selected = nil
			a.err = nil
			ctrl.InputChanged("", autocomplete.ReasonReset)
			return a, nil
		}
		return a, tea.Quit

	case "down", "ctrl+n", "tab":
		if !a.state.Menu.Open {
			ctrl.OpenMenu()
		}
		ctrl.Navigate(1)
		return a, nil

	case "up", "ctrl+p", "shift+tab":
		if !a.state.Menu.Open {
			ctrl.OpenMenu()
		}
		ctrl.Navigate(-1)
		return a, nil

	case "enter":
		a.deps.Events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKey, Comp: "ui", Msg: "enter"})
		a.committed, a.committing = a.input.Value(), true
		ctrl.Commit()
		return a, nil
	}

	before := a.input.Value()
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if v := a.input.Value(); v != before {
		a.err = nil
		a.selected = nil
		ctrl.InputChanged(v, autocomplete.ReasonInput)
	}
	return a, cmd
}

func (a App) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.state.Menu.Open || a.debug {
		return a, nil
	}
	start, end := a.window()
	i := start + msg.Y - rowsTop
	if msg.Y < rowsTop || i >= end {
		return a, nil
	}

	switch {
	case msg.Action == tea.MouseActionMotion:
		a.deps.Controller.Highlight(i)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		a.committed, a.committing = a.input.Value(), true
		a.deps.Controller.Select(i)
	case msg.Button == tea.MouseButtonWheelDown:
		a.deps.Controller.Navigate(1)
	case msg.Button == tea.MouseButtonWheelUp:
		a.deps.Controller.Navigate(-1)
	}
	return a, nil
}

// Value returns the text in the input (for testing).
func (a App) Value() string { return a.input.Value() }

// Features returns the rows last received (for testing).
func (a App) Features() []geocode.Feature { return a.features }

// Err returns the error shown in the error bar, if any.
func (a App) Err() error { return a.err }
