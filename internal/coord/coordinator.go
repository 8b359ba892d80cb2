// Package coord fans a batch of search terms out over a Searcher.
package coord

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/otel"
)

const (
	// DefaultConcurrency limits parallel requests.
	DefaultConcurrency = 4

	// DefaultTimeout bounds each individual search.
	DefaultTimeout = 10 * time.Second
)

// Result is the outcome for one term. Err is per term; a failing term never
// fails the batch.
type Result struct {
	Term     string
	Features []geocode.Feature
	Discard  bool
	Err      error
	Dur      time.Duration
}

// Coordinator runs batches. Context cancellation is the only stop
// mechanism.
type Coordinator struct {
	searcher    geocode.Searcher
	concurrency int
	timeout     time.Duration
	events      *otel.Logger
}

// New creates a Coordinator. Zero concurrency or timeout use the defaults;
// events may be nil.
func New(s geocode.Searcher, concurrency int, timeout time.Duration, events *otel.Logger) *Coordinator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{searcher: s, concurrency: concurrency, timeout: timeout, events: events}
}

// SearchAll searches every term and returns results in input order.
// onResult, if non-nil, is called as each term finishes (order
// non-deterministic, possibly concurrently).
func (c *Coordinator) SearchAll(ctx context.Context, terms []string, onResult func(Result)) []Result {
	results := make([]Result, len(terms))

	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, term := range terms {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = Result{Term: term, Discard: true}
				return nil
			}
			results[i] = c.searchOne(ctx, term)
			if onResult != nil {
				onResult(results[i])
			}
			return nil // never fail the group - errors reported per term
		})
	}

	_ = g.Wait()
	return results
}

func (c *Coordinator) searchOne(ctx context.Context, term string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	term = strings.TrimSpace(term)
	start := time.Now()
	env, err := c.searcher.Search(ctx, term)
	r := Result{Term: term, Features: env.Features, Discard: env.Discard, Err: err, Dur: time.Since(start)}

	ev := otel.Event{Kind: otel.KindSearchComplete, Comp: "coord", Query: term, Count: len(env.Features), Dur: r.Dur}
	switch {
	case err != nil:
		ev.Kind, ev.Level, ev.Err = otel.KindSearchError, otel.LevelError, err.Error()
	case env.Discard:
		ev.Kind, ev.Reason = otel.KindSearchDiscard, "discarded"
	}
	c.events.Emit(ev)
	return r
}
