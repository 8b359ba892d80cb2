package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/ratelimit"
)

var (
	simGap    time.Duration
	simSettle time.Duration
	simType   string
	simMode   string
	simWait   time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [step...]",
	Short: "Drive the autocomplete engine with scripted input",
	Long: `Feeds a sequence of steps to an autocomplete engine and prints every
callback it fires, with the time since the first step.

A step is either the full input value after a keystroke, or a control:
  :down :up        move the highlight
  :enter           commit the highlighted row
  :esc             close the menu
  :open            reopen the menu
  :clear           clear the input
  :select=N        select row N
  :wait=DUR        pause, e.g. :wait=500ms

Examples:
  geoc simulate --type paris
  geoc simulate lon london :wait=1s :down :enter
  geoc simulate --mode debounce --gap 120ms p pa par`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().DurationVar(&simGap, "gap", 80*time.Millisecond, "delay between steps")
	simulateCmd.Flags().DurationVar(&simSettle, "settle", 3*time.Second, "max time to wait for searches after the last step")
	simulateCmd.Flags().StringVar(&simType, "type", "", "type this word one character at a time before the other steps")
	simulateCmd.Flags().StringVar(&simMode, "mode", "", "override search.mode (throttle or debounce)")
	simulateCmd.Flags().DurationVar(&simWait, "wait", 0, "override search.wait_ms")
}

// typedPrefixes returns the successive input values produced by typing word.
func typedPrefixes(word string) []string {
	r := []rune(word)
	out := make([]string, len(r))
	for i := range r {
		out[i] = string(r[:i+1])
	}
	return out
}

// tracer prints callbacks with elapsed time. Callbacks arrive on the engine
// goroutine while steps print from the caller, so writes are serialised.
type tracer struct {
	mu    sync.Mutex
	w     io.Writer
	start time.Time
}

func (t *tracer) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.start).Milliseconds()
	fmt.Fprintf(t.w, "%+6dms  %s\n", elapsed, fmt.Sprintf(format, args...))
}

func (t *tracer) install(opts *autocomplete.Options) {
	opts.OnChange = func(term string) { t.printf("change    %q", term) }
	opts.OnFeatures = func(fs []geocode.Feature) {
		labels := make([]string, 0, 3)
		for i, f := range fs {
			if i == 3 {
				labels = append(labels, fmt.Sprintf("+%d more", len(fs)-3))
				break
			}
			labels = append(labels, truncate(f.Label, 30))
		}
		t.printf("features  %d [%s]", len(fs), strings.Join(labels, "; "))
	}
	opts.OnState = func(st autocomplete.State) {
		menu := "closed"
		if st.Menu.Open {
			menu = "open"
			if st.Menu.Highlighted != autocomplete.NoHighlight {
				menu = fmt.Sprintf("open(%d)", st.Menu.Highlighted)
			}
		}
		t.printf("state     loading=%t menu=%s", st.Loading, menu)
	}
	opts.OnSelect = func(f geocode.Feature) { t.printf("select    %s (%s)", f.Label, f.ID) }
	opts.OnError = func(err error) { t.printf("error     %v", err) }
}

func runSimulate(cmd *cobra.Command, args []string) error {
	steps := append(typedPrefixes(simType), args...)
	if len(steps) == 0 {
		return fmt.Errorf("nothing to simulate: pass steps or --type")
	}

	cfg := app.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	if simMode != "" {
		if opts.Mode, err = ratelimit.ParseMode(simMode); err != nil {
			return err
		}
		opts.Wait = 0
	}
	if simWait > 0 {
		opts.Wait = simWait
	}
	opts.Value = ""
	opts.Events = app.Events()

	tr := &tracer{w: cmd.OutOrStdout(), start: time.Now()}
	tr.install(&opts)

	eng, err := autocomplete.New(opts)
	if err != nil {
		return err
	}
	defer eng.Close()

	for i, step := range steps {
		if i > 0 {
			time.Sleep(simGap)
		}
		if err := applyStep(eng, step, tr); err != nil {
			return err
		}
	}

	st := settle(eng, simSettle)
	tr.printf("done      input=%q results=%d dispatched=%d settled=%d loading=%t",
		st.Input, len(st.Results.Features), st.Dispatched, st.Settled, st.Loading)
	return nil
}

func applyStep(eng *autocomplete.Engine, step string, tr *tracer) error {
	name, arg, _ := strings.Cut(step, "=")
	switch name {
	case ":down":
		tr.printf("key       down")
		eng.Navigate(1)
	case ":up":
		tr.printf("key       up")
		eng.Navigate(-1)
	case ":enter":
		tr.printf("key       enter")
		eng.Commit()
	case ":esc":
		tr.printf("key       esc")
		eng.CloseMenu()
	case ":open":
		eng.OpenMenu()
	case ":clear":
		tr.printf("type      \"\"")
		eng.InputChanged("", autocomplete.ReasonReset)
	case ":select":
		i, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("step %q: %w", step, err)
		}
		eng.Select(i)
	case ":wait":
		d, err := time.ParseDuration(arg)
		if err != nil {
			return fmt.Errorf("step %q: %w", step, err)
		}
		time.Sleep(d)
	default:
		tr.printf("type      %q", step)
		eng.InputChanged(step, autocomplete.ReasonInput)
	}
	return nil
}

// settle polls until nothing is loading and every dispatched request has
// settled, or until timeout.
func settle(eng *autocomplete.Engine, timeout time.Duration) autocomplete.State {
	deadline := time.Now().Add(timeout)
	for {
		st := eng.Snapshot()
		if (!st.Loading && st.Dispatched == st.Settled) || time.Now().After(deadline) {
			return st
		}
		time.Sleep(20 * time.Millisecond)
	}
}
