// Package autocomplete schedules geocoding searches against keystrokes and
// reconciles their responses with the live input.
//
// An Engine owns one goroutine. Public methods post events to it and return
// immediately; timers and network completions post to the same queue, so
// all state transitions happen in order on a single goroutine.
package autocomplete

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/logging"
	"github.com/abelbrown/geocomplete/internal/otel"
	"github.com/abelbrown/geocomplete/internal/ratelimit"
)

// Engine is the query orchestrator for one autocomplete input.
type Engine struct {
	opts    Options
	limiter ratelimit.Limiter[scheduled]
	events  *otel.Logger
	mb      *mailbox

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// Everything below is owned by the loop goroutine.
	searcher  geocode.Searcher
	input     string
	results   ResultSet
	pending   string
	dismissed string // term whose menu the user closed
	lastID    uint64
	settled   uint64
	epoch     uint64 // bumped whenever scheduled searches are cancelled
	menu      Menu
	last      State // last state passed to OnState
}

type scheduled struct {
	term  string
	epoch uint64
}

type request struct {
	id   uint64
	term string
	qid  string
	dur  time.Duration
}

// New starts an engine. Configuration errors are reported once through
// OnError and returned.
func New(opts Options) (*Engine, error) {
	if opts.Clock == nil {
		opts.Clock = ratelimit.RealClock
	}
	if opts.Wait == 0 {
		opts.Wait = opts.Mode.DefaultWait()
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		opts:   opts,
		events: opts.Events,
		mb:     newMailbox(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		menu:   NewMenu(),
	}
	e.last.Menu = e.menu.State()

	limiter, err := ratelimit.New(opts.Mode, opts.Wait, opts.Clock, e.onFire)
	if err != nil {
		cancel()
		cfgErr := &geocode.ConfigError{Field: "wait", Reason: "must be positive"}
		if errors.Is(err, ratelimit.ErrMode) {
			cfgErr = &geocode.ConfigError{Field: "mode", Reason: "unknown mode " + opts.Mode.String()}
		}
		e.reportError(cfgErr)
		return nil, cfgErr
	}
	e.limiter = limiter

	e.searcher = opts.Searcher
	if e.searcher == nil {
		s, err := e.buildSearcher(opts.APIKey, opts.Params)
		if err != nil {
			cancel()
			e.reportError(err)
			return nil, err
		}
		e.searcher = s
	}

	go e.run()

	if v := strings.TrimSpace(opts.Value); v != "" {
		e.SetValue(v)
	}
	return e, nil
}

func (e *Engine) buildSearcher(apiKey string, params geocode.Params) (geocode.Searcher, error) {
	copts := append([]geocode.Option{geocode.WithHost(e.opts.Host)}, e.opts.ClientOptions...)
	client, err := geocode.NewClient(apiKey, params, copts...)
	if err != nil {
		return nil, err
	}
	if e.opts.CacheSize > 0 {
		return geocode.NewCachedSearcher(client, e.opts.CacheSize, e.opts.CacheTTL), nil
	}
	return client, nil
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.mb.signal:
			for _, fn := range e.mb.take() {
				if e.ctx.Err() != nil {
					return
				}
				fn()
			}
		}
	}
}

// AutoFocus reports whether the host should focus the input on start.
func (e *Engine) AutoFocus() bool { return e.opts.AutoFocus }

// InputChanged records a new input value.
func (e *Engine) InputChanged(value string, reason ChangeReason) {
	e.mb.post(func() { e.inputChanged(value, reason) })
}

// SetValue replaces the input programmatically and searches for it.
func (e *Engine) SetValue(value string) {
	e.InputChanged(value, ReasonSetValue)
}

// Navigate moves the highlight by delta rows, wrapping.
func (e *Engine) Navigate(delta int) {
	e.mb.post(func() {
		if e.current() && e.menu.Move(delta, len(e.results.Features)) {
			e.notifyState()
		}
	})
}

// Highlight highlights row i.
func (e *Engine) Highlight(i int) {
	e.mb.post(func() {
		if e.current() && e.menu.Highlight(i, len(e.results.Features)) {
			e.notifyState()
		}
	})
}

// OpenMenu reopens the list if there are results for the current input.
func (e *Engine) OpenMenu() {
	e.mb.post(func() {
		if len(e.results.Features) == 0 || !e.current() {
			return
		}
		e.dismissed = ""
		if e.menu.Open() {
			e.notifyState()
		}
	})
}

// CloseMenu closes the list. It stays closed for the current input even if
// a duplicate response arrives.
func (e *Engine) CloseMenu() {
	e.mb.post(func() {
		e.dismissed = e.input
		if e.menu.Close() {
			e.notifyState()
		}
	})
}

// Commit selects the highlighted row. It does nothing without a highlight.
func (e *Engine) Commit() {
	e.mb.post(func() {
		if h := e.menu.State().Highlighted; h != NoHighlight {
			e.selectIndex(h)
		}
	})
}

// Select selects row i of the open list.
func (e *Engine) Select(i int) {
	e.mb.post(func() { e.selectIndex(i) })
}

// Reconfigure swaps in a client built from apiKey and params. On error the
// current client is kept and OnError fires.
func (e *Engine) Reconfigure(apiKey string, params geocode.Params) {
	e.mb.post(func() {
		s, err := e.buildSearcher(apiKey, params)
		if err != nil {
			e.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindConfigReload, Comp: "engine", Err: err.Error()})
			e.reportError(err)
			return
		}
		e.searcher = s
		e.emit(otel.Event{Kind: otel.KindConfigReload, Msg: "client rebuilt"})
	})
}

// Snapshot returns the engine state after every previously posted event has
// been handled. After Close it returns the zero State.
func (e *Engine) Snapshot() State {
	reply := make(chan State, 1)
	e.mb.post(func() { reply <- e.state() })
	select {
	case st := <-reply:
		return st
	case <-e.done:
		return State{}
	}
}

// Close cancels scheduled searches and in-flight requests and stops the
// engine goroutine. No callback fires after Close returns.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.limiter.Cancel()
		e.cancel()
		<-e.done
	})
}

func (e *Engine) inputChanged(value string, reason ChangeReason) {
	term := strings.TrimSpace(value)
	changed := term != e.input
	e.input = term
	if changed {
		e.dismissed = ""
		if e.opts.OnChange != nil {
			e.opts.OnChange(term)
		}
	}

	switch {
	case term == "":
		e.cancelScheduled("cleared")
		e.pending = ""
		e.applyResults(ResultSet{})
		e.menu.Close()
	case !reason.searches():
		e.cancelScheduled(reason.String())
		e.pending = ""
		if changed {
			e.menu.Close()
		}
	case !changed && (e.pending == term || e.results.Term == term):
		// Already searching for, or showing, this term.
	default:
		e.pending = term
		e.menu.Close()
		e.limiter.Call(scheduled{term: term, epoch: e.epoch})
		e.emit(otel.Event{Kind: otel.KindSearchSchedule, Query: term, Reason: reason.String()})
	}
	e.notifyState()
}

func (e *Engine) cancelScheduled(reason string) {
	if e.limiter.Pending() > 0 {
		e.emit(otel.Event{Kind: otel.KindSearchCancel, Query: e.pending, Reason: reason})
	}
	e.epoch++
	e.limiter.Cancel()
}

// onFire runs on a timer goroutine.
func (e *Engine) onFire(s scheduled) {
	e.mb.post(func() { e.fire(s) })
}

func (e *Engine) fire(s scheduled) {
	// A timer may have started before the schedule was cancelled or the
	// input moved on.
	if s.epoch != e.epoch || s.term != e.input {
		e.emit(otel.Event{Kind: otel.KindSearchCancel, Query: s.term, Reason: "stale"})
		return
	}
	e.dispatch(s.term)
}

func (e *Engine) dispatch(term string) {
	e.lastID++
	req := request{id: e.lastID, term: term, qid: uuid.NewString()}
	searcher := e.searcher
	e.emit(otel.Event{Kind: otel.KindSearchDispatch, Query: term, QueryID: req.qid})

	go func() {
		start := time.Now()
		env, err := searcher.Search(e.ctx, term)
		req.dur = time.Since(start)
		e.mb.post(func() {
			e.settled++
			if err != nil {
				e.searchFailed(err, req)
				return
			}
			e.searchResolved(env, req)
		})
	}()
}

func (e *Engine) searchResolved(env geocode.Envelope, req request) {
	if env.Discard || req.term != e.input {
		if req.term == e.input && req.id == e.lastID && e.pending == req.term {
			e.pending = ""
		}
		reason := "stale"
		if env.Discard {
			reason = "superseded"
		}
		e.emit(otel.Event{Kind: otel.KindSearchDiscard, Query: req.term, QueryID: req.qid, Reason: reason, Dur: req.dur})
		e.notifyState()
		return
	}

	if e.pending == req.term {
		e.pending = ""
	}
	changed := e.applyResults(ResultSet{Term: req.term, Features: env.Features})
	switch {
	case len(env.Features) == 0:
		e.menu.Close()
	case changed:
		e.menu.Open()
	case !e.menu.open && e.dismissed != req.term:
		e.menu.Open()
	}
	e.emit(otel.Event{Kind: otel.KindSearchComplete, Query: req.term, QueryID: req.qid, Count: len(env.Features), Dur: req.dur})
	e.notifyState()
}

func (e *Engine) searchFailed(err error, req request) {
	if req.term != e.input {
		e.emit(otel.Event{Kind: otel.KindSearchDiscard, Query: req.term, QueryID: req.qid, Reason: "stale", Err: err.Error()})
		return
	}
	if e.pending == req.term {
		e.pending = ""
	}
	e.events.Emit(otel.Event{
		Level:   otel.LevelError,
		Kind:    otel.KindSearchError,
		Comp:    "engine",
		Query:   req.term,
		QueryID: req.qid,
		Dur:     req.dur,
		Err:     err.Error(),
	})
	e.reportError(err)
	e.notifyState()
}

// current reports whether the held results answer the live input.
func (e *Engine) current() bool {
	return e.results.Term == e.input
}

func (e *Engine) selectIndex(i int) {
	if !e.menu.open || !e.current() || i < 0 || i >= len(e.results.Features) {
		return
	}
	f := e.results.Features[i]

	e.menu.Close()
	e.applyResults(ResultSet{})
	e.emit(otel.Event{Kind: otel.KindSelect, Query: e.input, Msg: f.ID})
	e.inputChanged(f.Label, ReasonSelect)

	if e.opts.OnSelect != nil {
		e.opts.OnSelect(f)
	}
}

// applyResults installs rs. OnFeatures fires when the list of ids changes.
// The result reports whether either the term or the list changed.
func (e *Engine) applyResults(rs ResultSet) bool {
	sameList := slices.EqualFunc(e.results.Features, rs.Features, func(a, b geocode.Feature) bool {
		return a.ID == b.ID
	})
	changed := !sameList || e.results.Term != rs.Term
	e.results = rs
	if !sameList && e.opts.OnFeatures != nil {
		e.opts.OnFeatures(rs.Features)
	}
	return changed
}

func (e *Engine) state() State {
	return State{
		Input:      e.input,
		Results:    e.results,
		Pending:    e.pending,
		Loading:    e.pending != "" && e.pending == e.input,
		Menu:       e.menu.State(),
		Dispatched: e.lastID,
		Settled:    e.settled,
	}
}

// notifyState calls OnState when loading or the menu changed.
func (e *Engine) notifyState() {
	st := e.state()
	if st.Loading == e.last.Loading && st.Menu == e.last.Menu {
		return
	}
	if st.Menu.Open != e.last.Menu.Open {
		kind := otel.KindMenuClose
		if st.Menu.Open {
			kind = otel.KindMenuOpen
		}
		e.emit(otel.Event{Kind: kind, Query: st.Input, Count: len(st.Results.Features)})
	}
	e.last = st
	if e.opts.OnState != nil {
		e.opts.OnState(st)
	}
}

func (e *Engine) reportError(err error) {
	if e.opts.OnError != nil {
		e.opts.OnError(err)
		return
	}
	logging.Error("autocomplete", "err", err)
}

func (e *Engine) emit(ev otel.Event) {
	ev.Comp = "engine"
	e.events.Emit(ev)
}
