package main

import (
	"context"
	"time"

	"github.com/abelbrown/geocomplete/internal/config"
	"github.com/abelbrown/geocomplete/internal/geocode"
)

// freshClients builds a new client for every search so terms in a batch are
// never flagged as superseded by one another. The HTTP client and rate
// limiter are shared.
type freshClients struct {
	apiKey string
	params geocode.Params
	opts   []geocode.Option
}

func (f freshClients) Search(ctx context.Context, term string) (geocode.Envelope, error) {
	c, err := geocode.NewClient(f.apiKey, f.params, f.opts...)
	if err != nil {
		return geocode.Envelope{}, err
	}
	return c.Search(ctx, term)
}

// batchSearcher validates cfg and returns a searcher for independent terms,
// cached when cache.size is set.
func batchSearcher(cfg *config.Config) (geocode.Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := append([]geocode.Option{geocode.WithHost(cfg.Host)}, cfg.ClientOptions()...)

	// fail fast on a bad host before fanning out
	if _, err := geocode.NewClient(cfg.APIKey, cfg.GeocodeParams(), opts...); err != nil {
		return nil, err
	}

	var s geocode.Searcher = freshClients{apiKey: cfg.APIKey, params: cfg.GeocodeParams(), opts: opts}
	if cfg.Cache.Size > 0 {
		s = geocode.NewCachedSearcher(s, cfg.Cache.Size, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	}
	return s, nil
}

// truncate shortens s to max runes, appending "..." if cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
