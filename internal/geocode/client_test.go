package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const parisBody = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [2.3522, 48.8566]},
     "properties": {"gid": "whosonfirst:locality:101751119", "label": "Paris, France", "layer": "locality"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-95.5555, 33.6609]},
     "properties": {"id": "101725293", "label": "Paris, TX, USA"}}
  ]
}`

func newTestClient(t *testing.T, srv *httptest.Server, params Params) *Client {
	t.Helper()
	c, err := NewClient("ge-test", params,
		WithHost(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
	)
	require.NoError(t, err)
	return c
}

func TestSearch_Success(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/autocomplete", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, DefaultClientName, r.Header.Get("User-Agent"))
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(parisBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Params{Lang: "fr", Size: 5, Layers: []string{"locality", "region"}})

	env, err := c.Search(context.Background(), "  paris ")
	require.NoError(t, err)
	assert.False(t, env.Discard)
	require.Len(t, env.Features, 2)

	assert.Equal(t, "whosonfirst:locality:101751119", env.Features[0].ID)
	assert.Equal(t, "Paris, France", env.Features[0].Label)
	assert.Equal(t, "locality", env.Features[0].Properties["layer"])
	pt, ok := env.Features[0].Point()
	require.True(t, ok)
	assert.InDelta(t, 48.8566, pt.Lat, 1e-9)
	assert.InDelta(t, 2.3522, pt.Lon, 1e-9)

	assert.Equal(t, "101725293", env.Features[1].ID, "falls back to properties.id")

	assert.Contains(t, gotQuery, "text=paris")
	assert.Contains(t, gotQuery, "api_key=ge-test")
	assert.Contains(t, gotQuery, "lang=fr")
	assert.Contains(t, gotQuery, "size=5")
	assert.Contains(t, gotQuery, "layers=locality%2Cregion")
	assert.NotContains(t, gotQuery, "sources")
}

func TestSearch_EmptyTermMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Params{})
	env, err := c.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.True(t, env.Discard)
	assert.Equal(t, int32(0), hits.Load())
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"geocoding":{"errors":["invalid api_key"]}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Params{})
	_, err := c.Search(context.Background(), "lon")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid api_key", apiErr.Message)
}

func TestSearch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features": [`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Params{})
	_, err := c.Search(context.Background(), "lon")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.Status)
}

func TestSearch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := newTestClient(t, srv, Params{})
	srv.Close()

	_, err := c.Search(context.Background(), "xyz")

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Error(t, errors.Unwrap(netErr))
}

func TestSearch_CancelledContextDiscards(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, Params{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	env, err := c.Search(ctx, "lon")
	require.NoError(t, err)
	assert.True(t, env.Discard)
}

func TestSearch_DeadlineIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, Params{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	env, err := c.Search(ctx, "lon")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, env.Discard)
}

func TestSearch_SupersededResponseIsDiscarded(t *testing.T) {
	slow := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("text") == "lon" {
			<-slow
		}
		w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, Params{})

	type result struct {
		env Envelope
		err error
	}
	lonCh := make(chan result, 1)
	go func() {
		env, err := c.Search(context.Background(), "lon")
		lonCh <- result{env, err}
	}()

	// Wait until the "lon" request has taken its sequence number.
	require.Eventually(t, func() bool { return c.issued.Load() == 1 }, time.Second, time.Millisecond)

	env, err := c.Search(context.Background(), "london")
	require.NoError(t, err)
	assert.False(t, env.Discard)

	close(slow)
	lon := <-lonCh
	require.NoError(t, lon.err)
	assert.True(t, lon.env.Discard, "older response arriving late must be discarded")
}

func TestNewClient_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		params Params
		opts   []Option
		field  string
	}{
		{"missing key", " ", Params{}, nil, "api_key"},
		{"size too large", "k", Params{Size: 41}, nil, "size"},
		{"bad focus", "k", Params{Focus: &LatLon{Lat: 91}}, nil, "focus.point.lat"},
		{"bad host", "k", Params{}, []Option{WithHost("not a url")}, "host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.key, tt.params, tt.opts...)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestNewClient_CopiesParams(t *testing.T) {
	layers := []string{"address"}
	c, err := NewClient("k", Params{Layers: layers})
	require.NoError(t, err)

	layers[0] = "venue"
	assert.Equal(t, []string{"address"}, c.Params().Layers)
}
