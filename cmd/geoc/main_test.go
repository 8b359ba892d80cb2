package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/geocomplete/internal/config"
	"github.com/abelbrown/geocomplete/internal/geocode"
)

func TestTypedPrefixes(t *testing.T) {
	assert.Equal(t, []string{"p", "pa", "par"}, typedPrefixes("par"))
	assert.Equal(t, []string{"Z", "Zü"}, typedPrefixes("Zü"))
	assert.Empty(t, typedPrefixes(""))
}

func TestEventFilter(t *testing.T) {
	ev := eventRecord{Kind: "search.discard", Level: "info", Comp: "engine", QueryID: "abcdef123", SessionID: "s1"}

	assert.True(t, eventFilter{}.match(ev))
	assert.True(t, eventFilter{kind: "search"}.match(ev))
	assert.False(t, eventFilter{kind: "menu"}.match(ev))
	assert.True(t, eventFilter{minLevel: "debug"}.match(ev))
	assert.False(t, eventFilter{minLevel: "warn"}.match(ev))
	assert.False(t, eventFilter{comp: "ui"}.match(ev))
	assert.True(t, eventFilter{qid: "abcdef"}.match(ev))
	assert.False(t, eventFilter{session: "s2"}.match(ev))
}

func TestReadTailLines(t *testing.T) {
	log := strings.Join([]string{
		`{"t":"2026-01-02T10:00:00Z","kind":"search.schedule","query":"p"}`,
		`not json`,
		`{"t":"2026-01-02T10:00:01Z","kind":"search.dispatch","query":"pa"}`,
		``,
		`{"t":"2026-01-02T10:00:02Z","kind":"menu.open"}`,
		`{"t":"2026-01-02T10:00:03Z","kind":"search.complete","query":"pa","count":3}`,
	}, "\n")

	all := func(eventRecord) bool { return true }
	lines := readTailLines(strings.NewReader(log), 2, all)
	require.Len(t, lines, 2)
	assert.Equal(t, "menu.open", lines[0].ev.Kind)
	assert.Equal(t, "search.complete", lines[1].ev.Kind)

	search := eventFilter{kind: "search"}.match
	lines = readTailLines(strings.NewReader(log), 10, search)
	require.Len(t, lines, 3)
	assert.Equal(t, "p", lines[0].ev.Query)

	assert.Empty(t, readTailLines(strings.NewReader(log), 0, all))
}

func TestFormatEvent(t *testing.T) {
	ev := eventRecord{
		Time:    time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		Level:   "info",
		Kind:    "search.complete",
		Comp:    "engine",
		Query:   "lon",
		DurMs:   12.5,
		Count:   4,
		QueryID: "0123456789",
	}
	got := formatEvent(ev)
	for _, want := range []string{"10:00:00.000", "INFO", "search.complete", `q="lon"`, "(12.5ms)", "n=4", "qid=01234567"} {
		assert.Contains(t, got, want)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Paris, ...", truncate("Paris, France", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "1 selection", pluralize(1, "selection"))
	assert.Equal(t, "1,200 selections", pluralize(1200, "selection"))
}

func TestBatchSearcherUsesIndependentClients(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("text") == "slow" {
			time.Sleep(50 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"gid":"g1","label":"One"}}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.APIKey = "k"
	cfg.Host = srv.URL
	cfg.Search.RequestsPerSecond = 0

	s, err := batchSearcher(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	slow := make(chan geocode.Envelope, 1)
	go func() {
		env, _ := s.Search(ctx, "slow")
		slow <- env
	}()
	time.Sleep(10 * time.Millisecond)
	fast, err := s.Search(ctx, "fast")
	require.NoError(t, err)
	assert.False(t, fast.Discard)

	env := <-slow
	assert.False(t, env.Discard, "a later-finishing batch term must not be superseded")
	assert.Len(t, env.Features, 1)
	assert.EqualValues(t, 2, hits.Load())
}

func TestBatchSearcherRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	_, err := batchSearcher(cfg)
	var cfgErr *geocode.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "api_key", cfgErr.Field)

	cfg.APIKey = "k"
	cfg.Host = "not a url"
	_, err = batchSearcher(cfg)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "host", cfgErr.Field)
}

func TestNewCLIApp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	a, err := newCLIApp(dir, "debug")
	require.NoError(t, err)
	defer a.Close()

	_, err = os.Stat(dir)
	require.NoError(t, err)
	assert.NotNil(t, a.cfg)
	assert.NotNil(t, a.Events())

	st, err := a.OpenStore()
	require.NoError(t, err)
	require.NoError(t, st.Close())
}
