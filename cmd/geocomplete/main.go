// Command geocomplete is an interactive place search for the terminal.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/config"
	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/logging"
	"github.com/abelbrown/geocomplete/internal/otel"
	"github.com/abelbrown/geocomplete/internal/store"
	"github.com/abelbrown/geocomplete/internal/ui"
)

// ringSize is the number of recent events kept for the debug overlay.
const ringSize = 512

func main() {
	dir := config.DefaultDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	mgr := config.NewManager(dir)
	cfg, err := mgr.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "geocomplete: %v\n", err)
		fmt.Fprintln(os.Stderr, "  run 'geoc config init' or export GEOCOMPLETE_API_KEY")
		os.Exit(1)
	}

	if err := logging.Init(cfg.LogDir(dir), cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	events, err := otel.OpenFile(config.EventLogPath(dir))
	if err != nil {
		logging.Warn("event log unavailable", "err", err)
		events = otel.NewNullLogger()
	}
	defer events.Close()
	if cfg.Logging.Trace {
		otel.SetTraceEnabled(true)
	}
	ring := otel.NewRingBuffer(ringSize)
	events.SetRingBuffer(ring)
	events.Emit(otel.Event{Kind: otel.KindStartup, Comp: "main", Msg: "geocomplete starting", Extra: map[string]any{"config": mgr.FileUsed()}})

	var st *store.Store
	if cfg.History.Enabled {
		path := cfg.HistoryPath(dir)
		st, err = store.Open(path)
		if err != nil {
			logging.Warn("history disabled", "path", path, "err", err)
			events.Warn(otel.KindStoreError, "main", "history disabled: "+err.Error())
			st = nil
		} else {
			defer st.Close()
			logging.Info("store initialized", "path", path)
		}
	}

	bridge := &ui.Bridge{}
	opts, err := cfg.EngineOptions()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	initial := opts.Value
	opts.Value = "" // applied by the UI once the program is running
	opts.Events = events
	bridge.Install(&opts)

	eng, err := autocomplete.New(opts)
	if err != nil {
		logging.Error("engine construction failed", "err", err)
		fmt.Fprintf(os.Stderr, "geocomplete: %v\n", err)
		os.Exit(1)
	}

	settings := uiSettings(cfg)
	settings.Value = initial
	settings.AutoFocus = eng.AutoFocus()

	app := ui.NewApp(newDeps(eng, st, events, ring), settings)
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	bridge.Attach(program)

	mgr.OnChange(func(c *config.Config) {
		if err := c.Validate(); err != nil {
			events.Warn(otel.KindConfigReload, "main", "rejected: "+err.Error())
			bridge.Send(ui.ConfigReloaded{Err: fmt.Errorf("config not reloaded: %w", err)})
			return
		}
		logging.Info("config reloaded", "file", mgr.FileUsed())
		events.Info(otel.KindConfigReload, "main", "applied")
		eng.Reconfigure(c.APIKey, c.GeocodeParams())
		bridge.Send(ui.ConfigReloaded{Settings: uiSettings(c)})
	})
	if mgr.FileUsed() != "" {
		if err := mgr.Watch(); err != nil {
			logging.Warn("config watch failed", "err", err)
		}
	}

	logging.Info("starting UI")
	if _, err := program.Run(); err != nil {
		logging.Error("application error", "err", err)
	}

	bridge.Detach()
	eng.Close()
	events.Info(otel.KindShutdown, "main", "geocomplete exiting")
}

// uiSettings maps the [ui] and [history] sections onto ui.Settings.
func uiSettings(c *config.Config) ui.Settings {
	limit := c.History.Limit
	if !c.History.Enabled {
		limit = 0
	}
	return ui.Settings{
		Placeholder: c.UI.Placeholder,
		Value:       c.UI.Value,
		AutoFocus:   c.UI.AutoFocus,
		RowTemplate: c.UI.RowTemplate,
		MaxRows:     c.UI.MaxRows,
		RecentLimit: limit,
	}
}

// newDeps wires the UI to the engine and, when st is non-nil, to history.
func newDeps(ctrl ui.Controller, st *store.Store, events *otel.Logger, ring *otel.RingBuffer) ui.Deps {
	deps := ui.Deps{Controller: ctrl, Events: events, Ring: ring}
	if st == nil {
		return deps
	}

	deps.LoadRecent = func() tea.Cmd {
		return func() tea.Msg {
			sels, err := st.RecentSelections(0)
			return ui.RecentLoaded{Selections: sels, Err: err}
		}
	}
	deps.SaveSelection = func(f geocode.Feature, term string) tea.Cmd {
		return func() tea.Msg {
			err := st.SaveSelection(f, term, time.Now())
			if err != nil {
				events.Error(otel.KindStoreError, "main", err)
			}
			return ui.SelectionSaved{Feature: f, Err: err}
		}
	}
	return deps
}

var _ ui.Controller = (*autocomplete.Engine)(nil)
