package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/geocomplete/internal/config"
	"github.com/abelbrown/geocomplete/internal/logging"
	"github.com/abelbrown/geocomplete/internal/otel"
	"github.com/abelbrown/geocomplete/internal/store"
)

var (
	flagDir      string
	flagLogLevel string

	app *cliApp

	rootCmd = &cobra.Command{
		Use:   "geoc",
		Short: "Place autocomplete from the command line",
		Long: `geoc queries a Pelias-compatible autocomplete API (geocode.earth by
default) and inspects what the interactive geocomplete TUI recorded.

Configuration is read from ~/.geocomplete/config.toml and GEOCOMPLETE_*
environment variables, e.g. GEOCOMPLETE_API_KEY.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion":
				return nil
			}
			var err error
			app, err = newCLIApp(flagDir, flagLogLevel)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app != nil {
				app.Close()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", config.DefaultDir(), "data directory holding config, history and logs")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "geoc:", err)
		os.Exit(1)
	}
}

// cliApp is the state shared by subcommands.
type cliApp struct {
	dir    string
	mgr    *config.Manager
	cfg    *config.Config
	events *otel.Logger
}

func newCLIApp(dir, level string) (*cliApp, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	mgr := config.NewManager(dir)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}

	if level == "" {
		level = cfg.Logging.Level
	}
	if err := logging.Init(cfg.LogDir(dir), level); err != nil {
		return nil, err
	}
	logging.Debug("cli started", "args", os.Args[1:], "config", mgr.FileUsed())

	return &cliApp{dir: dir, mgr: mgr, cfg: cfg}, nil
}

// Events opens the shared event log on first use.
func (a *cliApp) Events() *otel.Logger {
	if a.events != nil {
		return a.events
	}
	ev, err := otel.OpenFile(config.EventLogPath(a.dir))
	if err != nil {
		logging.Warn("event log unavailable", "err", err)
		a.events = otel.NewNullLogger()
		return a.events
	}
	a.events = ev
	return ev
}

// OpenStore opens the selection history.
func (a *cliApp) OpenStore() (*store.Store, error) {
	return store.Open(a.cfg.HistoryPath(a.dir))
}

func (a *cliApp) Close() {
	if a.events != nil {
		a.events.Close()
	}
	logging.Close()
}
