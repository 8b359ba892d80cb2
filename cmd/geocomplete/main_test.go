package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/geocomplete/internal/autocomplete"
	"github.com/abelbrown/geocomplete/internal/config"
	"github.com/abelbrown/geocomplete/internal/geocode"
	"github.com/abelbrown/geocomplete/internal/otel"
	"github.com/abelbrown/geocomplete/internal/store"
	"github.com/abelbrown/geocomplete/internal/ui"
)

type nopController struct{}

func (nopController) InputChanged(string, autocomplete.ChangeReason) {}
func (nopController) Navigate(int)                                   {}
func (nopController) Highlight(int)                                  {}
func (nopController) OpenMenu()                                      {}
func (nopController) CloseMenu()                                     {}
func (nopController) Commit()                                        {}
func (nopController) Select(int)                                     {}

func TestUISettings(t *testing.T) {
	cfg := config.Default()
	cfg.UI.RowTemplate = "{{.Feature.Label}}"
	cfg.History.Limit = 5

	s := uiSettings(cfg)
	assert.Equal(t, "Search for a place", s.Placeholder)
	assert.Equal(t, "{{.Feature.Label}}", s.RowTemplate)
	assert.Equal(t, 10, s.MaxRows)
	assert.Equal(t, 5, s.RecentLimit)

	cfg.History.Enabled = false
	assert.Zero(t, uiSettings(cfg).RecentLimit)
}

func TestNewDepsWithoutStore(t *testing.T) {
	deps := newDeps(nopController{}, nil, nil, nil)
	assert.Nil(t, deps.LoadRecent)
	assert.Nil(t, deps.SaveSelection)
	assert.NotNil(t, deps.Controller)
}

func TestNewDepsHistoryRoundTrip(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	deps := newDeps(nopController{}, st, nil, nil)
	require.NotNil(t, deps.SaveSelection)

	f := geocode.Feature{ID: "whosonfirst:locality:101751119", Label: "Paris, France"}
	msg := deps.SaveSelection(f, "par")()
	saved, ok := msg.(ui.SelectionSaved)
	require.True(t, ok)
	require.NoError(t, saved.Err)

	var loadMsg tea.Msg = deps.LoadRecent()()
	loaded, ok := loadMsg.(ui.RecentLoaded)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	require.Len(t, loaded.Selections, 1)
	assert.Equal(t, "Paris, France", loaded.Selections[0].Label)
	assert.Equal(t, "par", loaded.Selections[0].Term)
}

func TestNewDepsSaveFailureIsLogged(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	events := otel.NewNullLogger()
	ring := otel.NewRingBuffer(8)
	events.SetRingBuffer(ring)

	deps := newDeps(nopController{}, st, events, ring)
	saved, ok := deps.SaveSelection(geocode.Feature{ID: "wof:1", Label: "Lyon"}, "ly")().(ui.SelectionSaved)
	require.True(t, ok)
	require.Error(t, saved.Err)
	events.Close()

	logged := ring.Filter(func(e otel.Event) bool { return e.Kind == otel.KindStoreError })
	require.Len(t, logged, 1)
	assert.Equal(t, otel.LevelError, logged[0].Level)
	assert.Equal(t, "main", logged[0].Comp)
	assert.NotEmpty(t, logged[0].Err)
}
