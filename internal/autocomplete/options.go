package autocomplete

import (
	"time"

	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/otel"
	"github.com/abelbrown/geocomplete/internal/ratelimit"
)

// ChangeReason says where an input change came from. Only keystrokes and
// programmatic sets start a search.
type ChangeReason int

const (
	ReasonInput ChangeReason = iota
	ReasonSetValue
	ReasonSelect
	ReasonReset
)

func (r ChangeReason) String() string {
	switch r {
	case ReasonInput:
		return "input"
	case ReasonSetValue:
		return "set_value"
	case ReasonSelect:
		return "select"
	case ReasonReset:
		return "reset"
	default:
		return "unknown"
	}
}

func (r ChangeReason) searches() bool {
	return r == ReasonInput || r == ReasonSetValue
}

// Options configure an Engine. APIKey is required unless Searcher is set.
//
// Callbacks run on the engine goroutine, in event order, and may call back
// into the Engine. They must not call Close or Snapshot.
type Options struct {
	APIKey string
	Params geocode.Params
	Host   string

	// Mode and Wait pick the rate limiter. Wait defaults to 200ms for
	// throttle and 300ms for debounce.
	Mode ratelimit.Mode
	Wait time.Duration

	// Value is applied with SetValue once the engine is running.
	Value     string
	AutoFocus bool

	// CacheSize > 0 enables an in-memory LRU of recent envelopes.
	CacheSize int
	CacheTTL  time.Duration

	OnChange   func(term string)
	OnSelect   func(feature geocode.Feature)
	OnError    func(err error)
	OnFeatures func(features []geocode.Feature)
	OnState    func(state State)

	// Searcher replaces the HTTP client built from APIKey and Params.
	Searcher geocode.Searcher
	// ClientOptions are passed to geocode.NewClient.
	ClientOptions []geocode.Option
	Clock         ratelimit.Clock
	Events        *otel.Logger
}

// ResultSet is the list produced by one search. It is shown only while Term
// equals the current input.
type ResultSet struct {
	Term     string
	Features []geocode.Feature
}

// State is a point-in-time copy of the engine's observable state.
type State struct {
	Input   string
	Results ResultSet
	Pending string
	Loading bool
	Menu    MenuState

	// Dispatched counts requests sent; Settled counts responses and
	// failures processed, stale ones included.
	Dispatched uint64
	Settled    uint64
}

// Highlighted returns the highlighted feature, if any.
func (s State) Highlighted() (geocode.Feature, bool) {
	i := s.Menu.Highlighted
	if !s.Menu.Open || i < 0 || i >= len(s.Results.Features) {
		return geocode.Feature{}, false
	}
	return s.Results.Features[i], true
}
