package geocode

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedSearcher memoises successful envelopes by term.
type CachedSearcher struct {
	next  Searcher
	cache *expirable.LRU[string, []Feature]
}

// NewCachedSearcher wraps next with an LRU of the given size whose entries
// expire after ttl. A ttl of zero keeps entries until evicted.
func NewCachedSearcher(next Searcher, size int, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{
		next:  next,
		cache: expirable.NewLRU[string, []Feature](size, nil, ttl),
	}
}

func (s *CachedSearcher) Search(ctx context.Context, term string) (Envelope, error) {
	key := strings.TrimSpace(term)
	if key == "" {
		return Envelope{Discard: true}, nil
	}
	if features, ok := s.cache.Get(key); ok {
		return Envelope{Features: features}, nil
	}

	env, err := s.next.Search(ctx, term)
	if err == nil && !env.Discard {
		s.cache.Add(key, env.Features)
	}
	return env, err
}

// Len returns the number of cached terms.
func (s *CachedSearcher) Len() int { return s.cache.Len() }

// Purge empties the cache.
func (s *CachedSearcher) Purge() { s.cache.Purge() }
