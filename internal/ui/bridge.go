package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/logging"
)

// Bridge turns engine callbacks into Bubble Tea messages. Messages sent
// before Attach or after Detach are dropped.
type Bridge struct {
	program atomic.Pointer[tea.Program]
}

// Attach starts forwarding messages to p.
func (b *Bridge) Attach(p *tea.Program) { b.program.Store(p) }

// Detach stops forwarding. Call it before closing the engine so a blocked
// Send cannot hold the engine goroutine.
func (b *Bridge) Detach() { b.program.Store(nil) }

// Send forwards msg to the attached program.
func (b *Bridge) Send(msg tea.Msg) {
	if p := b.program.Load(); p != nil {
		p.Send(msg)
	}
}

// Install sets the engine callbacks on opts.
func (b *Bridge) Install(opts *autocomplete.Options) {
	opts.OnChange = func(term string) {
		logging.Debug("input changed", "term", term)
	}
	opts.OnFeatures = func(features []geocode.Feature) {
		b.Send(FeaturesChanged{Features: features})
	}
	opts.OnState = func(st autocomplete.State) {
		b.Send(StateChanged{State: st})
	}
	opts.OnSelect = func(f geocode.Feature) {
		b.Send(Selected{Feature: f})
	}
	opts.OnError = func(err error) {
		logging.Warn("search failed", "err", err)
		b.Send(SearchFailed{Err: err})
	}
}
