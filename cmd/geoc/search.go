package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/abelbrown/geocomplete/internal/coord"
	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/otel"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	searchJSON        bool
	searchConcurrency int
	searchTimeout     time.Duration
)

var searchCmd = &cobra.Command{
	Use:   "search <term> [term...]",
	Short: "Run autocomplete queries and print the results",
	Long: `Runs one autocomplete request per term, concurrently, using the
configured host, parameters and rate limit. Results print in argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().IntVarP(&searchConcurrency, "concurrency", "c", coord.DefaultConcurrency, "parallel requests")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", coord.DefaultTimeout, "per-term timeout")
}

type searchOutput struct {
	Term     string            `json:"term"`
	DurMs    float64           `json:"dur_ms"`
	Error    string            `json:"error,omitempty"`
	Features []geocode.Feature `json:"features"`
}

func runSearch(cmd *cobra.Command, terms []string) error {
	searcher, err := batchSearcher(app.cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	events := app.Events()
	events.Emit(otel.Event{Kind: otel.KindStartup, Comp: "cli", Msg: "search", Count: len(terms)})

	c := coord.New(searcher, searchConcurrency, searchTimeout, events)
	results := c.SearchAll(ctx, terms, nil)

	out := cmd.OutOrStdout()
	if searchJSON {
		rows := make([]searchOutput, len(results))
		for i, r := range results {
			rows[i] = searchOutput{
				Term:     r.Term,
				DurMs:    float64(r.Dur) / float64(time.Millisecond),
				Features: r.Features,
			}
			if r.Err != nil {
				rows[i].Error = r.Err.Error()
			}
			if rows[i].Features == nil {
				rows[i].Features = []geocode.Feature{}
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	failed := 0
	for _, r := range results {
		ms := float64(r.Dur) / float64(time.Millisecond)
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(out, ">>> %q  error: %v\n", r.Term, r.Err)
			continue
		case r.Discard:
			fmt.Fprintf(out, ">>> %q  skipped\n", r.Term)
			continue
		}
		fmt.Fprintf(out, ">>> %q  (%.*fms, %d results)\n", r.Term, durPrecision(ms), ms, len(r.Features))
		for i, f := range r.Features {
			line := fmt.Sprintf("  %2d. %-48s %s", i+1, truncate(f.Label, 48), f.ID)
			if p, ok := f.Point(); ok {
				line += fmt.Sprintf("  %.5f,%.5f", p.Lat, p.Lon)
			}
			fmt.Fprintln(out, strings.TrimRight(line, " "))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d searches failed", failed, len(results))
	}
	return nil
}
